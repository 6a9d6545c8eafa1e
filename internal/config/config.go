package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone  = "UTC"
	configPathEnv    = "ARTICLE_SHELF_CONFIG"
	databaseDriver   = "DATABASE_DRIVER"
	databaseDSNEnv   = "DATABASE_DSN"
	redisURLEnv      = "REDIS_URL"
	queueBackendEnv  = "QUEUE_BACKEND"
	httpAddrEnv      = "HTTP_ADDR"
	workerCountEnv   = "WORKER_COUNT"
	logLevelEnv      = "LOG_LEVEL"
	classifierKeyEnv = "CLASSIFIER_API_KEY"
)

// Queue backends.
const (
	QueueMemory = "memory"
	QueueRedis  = "redis"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Queue     QueueConfig     `yaml:"queue"`
	Worker    WorkerConfig    `yaml:"worker"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Classify  ClassifyConfig  `yaml:"classifier"`
	ML        MLConfig        `yaml:"ml"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// QueueConfig picks and sizes the ingestion queue.
type QueueConfig struct {
	Backend           string        `yaml:"backend"`
	Capacity          int           `yaml:"capacity"`
	RedisURL          string        `yaml:"redisUrl"`
	KeyPrefix         string        `yaml:"keyPrefix"`
	PollInterval      time.Duration `yaml:"pollInterval"`
	VisibilityTimeout time.Duration `yaml:"visibilityTimeout"`
}

// WorkerConfig carries pool size and the retry policy.
type WorkerConfig struct {
	Count       int           `yaml:"count"`
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	MaxBackoff  time.Duration `yaml:"maxBackoff"`
}

// FetchConfig bounds every outbound request to user supplied URLs.
type FetchConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	MaxBodyBytes         int64         `yaml:"maxBodyBytes"`
	MaxRedirects         int           `yaml:"maxRedirects"`
	UserAgent            string        `yaml:"userAgent"`
	HostInterval         time.Duration `yaml:"hostInterval"`
	AllowPrivateNetworks bool          `yaml:"allowPrivateNetworks"`
}

// ExtractorConfig lists extraction strategies in fallback order.
type ExtractorConfig struct {
	Strategies []string `yaml:"strategies"`
}

// ClassifyConfig tunes the keyword classifier.
type ClassifyConfig struct {
	RulesPath string `yaml:"rulesPath"`
	MinWords  int    `yaml:"minWords"`
}

// MLConfig describes an optional remote inference service used for classification.
type MLConfig struct {
	InferenceURL string        `yaml:"inferenceUrl"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SchedulerConfig defines when the queue janitor runs.
type SchedulerConfig struct {
	JanitorSchedule string         `yaml:"janitorSchedule"`
	Timezone        string         `yaml:"timezone"`
	location        *time.Location
	locationErr     error
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	DefaultUserID   int64         `yaml:"defaultUserId"`
	SubmitRate      float64       `yaml:"submitRate"`
	SubmitBurst     int           `yaml:"submitBurst"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Load reads the YAML file named by ARTICLE_SHELF_CONFIG (if any) and applies environment overrides.
func Load() Config {
	return LoadFile(os.Getenv(configPathEnv))
}

// LoadFile is Load with an explicit path. An empty path means defaults plus environment.
func LoadFile(path string) Config {
	cfg := defaultConfig()

	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			fileCfg := defaultConfig()
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = fileCfg
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Extractor.Strategies) == 0 {
		cfg.Extractor.Strategies = defaultConfig().Extractor.Strategies
	}

	return cfg
}

// Validate reports settings the application cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	switch c.Queue.Backend {
	case QueueMemory:
	case QueueRedis:
		if c.Queue.RedisURL == "" {
			errs = append(errs, errors.New("queue.redisUrl is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue.backend %q is not supported", c.Queue.Backend))
	}
	if c.Queue.Capacity <= 0 {
		errs = append(errs, errors.New("queue.capacity must be positive"))
	}

	if c.Worker.Count <= 0 {
		errs = append(errs, errors.New("worker.count must be positive"))
	}
	if c.Worker.MaxAttempts <= 0 {
		errs = append(errs, errors.New("worker.maxAttempts must be positive"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch.timeout must be positive"))
	}
	if c.Fetch.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("fetch.maxBodyBytes must be positive"))
	}
	if c.Scheduler.locationErr != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone %q: %w", c.Scheduler.Timezone, c.Scheduler.locationErr))
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDriver); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Queue.RedisURL = v
	}

	if v := os.Getenv(queueBackendEnv); v != "" {
		c.Queue.Backend = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(workerCountEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Worker.Count = n
		} else {
			log.Printf("config: ignoring %s=%q: %v", workerCountEnv, v, err)
		}
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(classifierKeyEnv); v != "" {
		c.ML.APIKey = v
	}
}

// bindTimezone resolves the scheduler zone once; Validate reports a name that does not resolve.
func (c *Config) bindTimezone() {
	c.Scheduler.location, c.Scheduler.locationErr = loadLocation(c.Scheduler.Timezone)
}

func loadLocation(name string) (*time.Location, error) {
	switch name = strings.TrimSpace(name); {
	case name == "", strings.EqualFold(name, "utc"):
		return time.UTC, nil
	case strings.EqualFold(name, "local"):
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "articleshelf.db"},
		Queue: QueueConfig{
			Backend:           QueueMemory,
			Capacity:          1000,
			RedisURL:          "redis://localhost:6379/0",
			KeyPrefix:         "articleshelf:ingest",
			PollInterval:      time.Second,
			VisibilityTimeout: 10 * time.Minute,
		},
		Worker: WorkerConfig{
			Count:       4,
			MaxAttempts: 3,
			BaseBackoff: 2 * time.Second,
			MaxBackoff:  30 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      15 * time.Second,
			MaxBodyBytes: 5 << 20,
			MaxRedirects: 5,
			UserAgent:    "ArticleShelf/1.0 (+https://github.com/articleshelf)",
			HostInterval: 500 * time.Millisecond,
		},
		Extractor: ExtractorConfig{
			Strategies: []string{"metadata", "readability", "heading-block", "raw-text"},
		},
		Classify: ClassifyConfig{MinWords: 5},
		ML:       MLConfig{Timeout: 10 * time.Second},
		Scheduler: SchedulerConfig{
			JanitorSchedule: "@every 1m",
			Timezone:        defaultTimezone,
		},
		HTTP: HTTPConfig{
			Addr:            ":3090",
			DefaultUserID:   1,
			SubmitRate:      5,
			SubmitBurst:     10,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
