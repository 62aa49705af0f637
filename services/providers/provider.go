package providers

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Provider defines the interface that all lyrics providers must implement.
// Implementations must be safe for concurrent use and must not touch shared state.
type Provider interface {
	// Name returns the provider's identifier (e.g., "lrclib", "kugou", "gemini")
	Name() string

	// Configured reports whether the provider has the credentials it needs
	Configured() bool

	// Fetch returns a viable candidate for the query or a *ProviderError.
	// Fetch must honour ctx cancellation.
	Fetch(ctx context.Context, q Query) (*Candidate, error)
}

// TimeoutProvider is implemented by providers that need a non-default call budget
type TimeoutProvider interface {
	Timeout() time.Duration
}

// Settings are the knobs shared by every adapter constructor
type Settings struct {
	// Timeout bounds a single Fetch
	Timeout time.Duration

	// MinLength is the shortest transcript (in characters) treated as viable
	MinLength int

	// BaseURL overrides the provider endpoint (used by tests)
	BaseURL string

	// Credential is the ready-to-use secret, if the provider needs one
	Credential string
}

// WithDefaults fills zero fields with the given fallbacks
func (s Settings) WithDefaults(timeout time.Duration, baseURL string) Settings {
	if s.Timeout <= 0 {
		s.Timeout = timeout
	}
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.MinLength <= 0 {
		s.MinLength = DefaultMinLength
	}
	return s
}

// Registry holds the providers available to the resolver
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider to the registry, replacing one with the same name
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", name)
	}
	return p, nil
}

// List returns all registered provider names in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Has checks if a provider is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Configured returns the registered providers that report themselves configured,
// in registration order
func (r *Registry) Configured() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Provider
	for _, name := range r.order {
		if p := r.providers[name]; p.Configured() {
			out = append(out, p)
		}
	}
	return out
}

// Status reports the configured flag of every registered provider
func (r *Registry) Status() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]bool, len(r.providers))
	for name, p := range r.providers {
		status[name] = p.Configured()
	}
	return status
}
