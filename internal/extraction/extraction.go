package extraction

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Document carries a fetched page to every strategy.
type Document struct {
	URL       *url.URL
	HTML      []byte
	DOM       *goquery.Document
	FetchedAt time.Time
}

// Result holds whatever a strategy found. Empty fields mean "not found".
type Result struct {
	Title       string
	Body        string
	PublishDate time.Time
}

// Strategy captures a single extraction technique (metadata, readability, etc.).
// Strategies must not mutate the shared DOM.
type Strategy interface {
	Name() string
	Extract(doc *Document) (Result, error)
}

// ErrUnknownStrategy is returned for names nothing registered.
var ErrUnknownStrategy = errors.New("unknown extraction strategy")

// Registry maps strategy names to implementations. The zero value is usable.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds strategy under its name, replacing an earlier one with the same name.
func (r *Registry) Register(strategy Strategy) {
	if r.byName == nil {
		r.byName = make(map[string]Strategy)
	}
	r.byName[strategy.Name()] = strategy
}

// Resolve looks a strategy up by name; the error lists what is available.
func (r *Registry) Resolve(name string) (Strategy, error) {
	strategy, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownStrategy, name, strings.Join(r.Names(), ", "))
	}
	return strategy, nil
}

// ResolveAll resolves names in order.
func (r *Registry) ResolveAll(names []string) ([]Strategy, error) {
	resolved := make([]Strategy, 0, len(names))
	for _, name := range names {
		strategy, err := r.Resolve(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, strategy)
	}
	return resolved, nil
}

// Names lists registered strategies alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
