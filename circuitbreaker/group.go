package circuitbreaker

import (
	"fmt"
	"sort"
	"sync"
)

// Group holds one breaker per provider, created lazily from a shared config
type Group struct {
	base     Config
	breakers map[string]*CircuitBreaker
	mu       sync.Mutex
}

// NewGroup creates a group whose breakers share base (Name is ignored)
func NewGroup(base Config) *Group {
	return &Group{base: base, breakers: make(map[string]*CircuitBreaker)}
}

// For returns the breaker for a provider, creating it on first use
func (g *Group) For(name string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, ok := g.breakers[name]; ok {
		return cb
	}
	cfg := g.base
	cfg.Name = name
	cb := New(cfg)
	g.breakers[name] = cb
	return cb
}

// Names returns the providers that have a breaker, sorted
func (g *Group) Names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	names := make([]string, 0, len(g.breakers))
	for name := range g.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the status of every breaker
func (g *Group) Snapshot() map[string]Status {
	out := make(map[string]Status)
	for _, name := range g.Names() {
		out[name] = g.For(name).Status()
	}
	return out
}

// Reset closes one breaker
func (g *Group) Reset(name string) error {
	g.mu.Lock()
	cb, ok := g.breakers[name]
	g.mu.Unlock()

	if !ok {
		return fmt.Errorf("no circuit breaker for provider %q", name)
	}
	cb.Reset()
	return nil
}

// ResetAll closes every breaker
func (g *Group) ResetAll() {
	for _, name := range g.Names() {
		g.For(name).Reset()
	}
}
