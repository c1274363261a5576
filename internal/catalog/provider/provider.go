package provider

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/radieske/race-bet-platform/internal/domain"
)

// Session is an event as reported by a sessions provider.
type Session struct {
	Key         string
	Name        string
	Country     string
	Year        *int
	SessionType string
	StartTime   *time.Time
}

// Driver is a competitor of a session.
type Driver struct {
	Number   int
	FullName string
}

// Provider fetches sessions and drivers from an external source. Failures are
// logged by the implementation and surface as empty results.
type Provider interface {
	Name() string
	FetchSessions(ctx context.Context, f domain.EventFilter) []Session
	FetchDrivers(ctx context.Context, sessionKey string) []Driver
}

// Registry looks providers up by lower-cased name. The first registered
// provider is the default.
type Registry struct {
	byName map[string]Provider
	def    string
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byName: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	name := strings.ToLower(p.Name())
	if r.def == "" {
		r.def = name
	}
	r.byName[name] = p
}

// SetDefault changes the provider used for blank names.
func (r *Registry) SetDefault(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := r.byName[name]; !ok {
		return domain.Invalidf("unknown provider %q", name)
	}
	r.def = name
	return nil
}

// Get returns the named provider; blank means the default.
func (r *Registry) Get(name string) (Provider, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = r.def
	}
	p, ok := r.byName[name]
	if !ok {
		return nil, domain.Invalidf("unknown provider %q (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return p, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
