package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect names accepted by Open.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		link TEXT NOT NULL,
		publish_date INTEGER NOT NULL,
		classification TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE (user_id, link)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_user_publish ON articles (user_id, publish_date DESC)`,
	`CREATE TABLE IF NOT EXISTS feeds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		link TEXT NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		link TEXT NOT NULL,
		publish_date BIGINT NOT NULL,
		classification TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		UNIQUE (user_id, link)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_user_publish ON articles (user_id, publish_date DESC)`,
	`CREATE TABLE IF NOT EXISTS feeds (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		link TEXT NOT NULL
	)`,
}

// Open connects to the database named by dialect and dsn and creates the schema.
func Open(ctx context.Context, dialect, dsn string) (*Repository, error) {
	var driver string
	switch dialect {
	case DialectSQLite, "":
		dialect, driver = DialectSQLite, "sqlite"
	case DialectPostgres:
		driver = "pgx"
	default:
		return nil, fmt.Errorf("unknown database dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialect == DialectSQLite {
		// A single connection serializes writers; busy_timeout covers other processes.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}

	repo := NewRepository(db, dialect)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo.owned = true
	return repo, nil
}

// Migrate creates tables and indexes that do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	schema := sqliteSchema
	if r.dialect == DialectPostgres {
		schema = postgresSchema
	}

	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Ping checks the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the pool when Open created it.
func (r *Repository) Close() error {
	if !r.owned {
		return nil
	}
	return r.db.Close()
}

func builderFor(dialect string) sq.StatementBuilderType {
	if dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
