package providers

import (
	"context"
	"sync"
	"testing"
)

// mockProvider is a simple provider for testing
type mockProvider struct {
	name       string
	configured bool
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Configured() bool {
	return m.configured
}

func (m *mockProvider) Fetch(ctx context.Context, q Query) (*Candidate, error) {
	return &Candidate{
		Source: m.name,
		Lyrics: "test lyrics",
	}, nil
}

func newMockProvider(name string, configured bool) *mockProvider {
	return &mockProvider{name: name, configured: configured}
}

func TestRegistry_Register(t *testing.T) {
	t.Run("Register single provider", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockProvider("test", true))

		if !r.Has("test") {
			t.Error("Provider 'test' should be registered")
		}
	})

	t.Run("Register multiple providers keeps order", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockProvider("lrclib", true))
		r.Register(newMockProvider("kugou", true))
		r.Register(newMockProvider("genius", true))

		names := r.List()
		expected := []string{"lrclib", "kugou", "genius"}
		if len(names) != len(expected) {
			t.Fatalf("Expected %d providers, got %d", len(expected), len(names))
		}
		for i := range expected {
			if names[i] != expected[i] {
				t.Errorf("List()[%d] = %q, expected %q", i, names[i], expected[i])
			}
		}
	})

	t.Run("Register overwrites existing provider", func(t *testing.T) {
		r := NewRegistry()
		r.Register(newMockProvider("test", false))
		r.Register(newMockProvider("test", true))

		p, err := r.Get("test")
		if err != nil {
			t.Fatalf("Failed to get provider: %v", err)
		}
		if !p.Configured() {
			t.Error("Expected the replacement provider")
		}
		if len(r.List()) != 1 {
			t.Errorf("Expected 1 provider, got %d", len(r.List()))
		}
	})
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockProvider("kugou", true))

	t.Run("Get existing provider", func(t *testing.T) {
		p, err := r.Get("kugou")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if p.Name() != "kugou" {
			t.Errorf("Expected 'kugou', got %s", p.Name())
		}
	})

	t.Run("Get non-existent provider returns error", func(t *testing.T) {
		_, err := r.Get("nonexistent")
		if err == nil {
			t.Fatal("Expected error for non-existent provider")
		}
		if err.Error() != "provider not found: nonexistent" {
			t.Errorf("Unexpected error %q", err.Error())
		}
	})
}

func TestRegistry_Configured(t *testing.T) {
	r := NewRegistry()
	r.Register(newMockProvider("lrclib", true))
	r.Register(newMockProvider("genius", false))
	r.Register(newMockProvider("ovh", true))

	configured := r.Configured()
	if len(configured) != 2 {
		t.Fatalf("Expected 2 configured providers, got %d", len(configured))
	}
	if configured[0].Name() != "lrclib" || configured[1].Name() != "ovh" {
		t.Errorf("Unexpected configured providers: %s, %s", configured[0].Name(), configured[1].Name())
	}

	status := r.Status()
	if status["genius"] {
		t.Error("Expected genius to be reported as not configured")
	}
	if !status["lrclib"] {
		t.Error("Expected lrclib to be reported as configured")
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 5; i++ {
		r.Register(newMockProvider("provider"+string(rune('0'+i)), true))
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.List()
				r.Has("provider0")
				r.Get("provider1")
				r.Configured()
			}
		}()
	}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				r.Register(newMockProvider("concurrent"+string(rune('a'+id)), true))
			}
		}(i)
	}
	wg.Wait()

	if len(r.List()) != 15 {
		t.Errorf("Expected 15 providers, got %d", len(r.List()))
	}
}

func TestSettings_WithDefaults(t *testing.T) {
	s := Settings{}.WithDefaults(5e9, "https://example.test")
	if s.Timeout != 5e9 {
		t.Errorf("Expected default timeout, got %v", s.Timeout)
	}
	if s.BaseURL != "https://example.test" {
		t.Errorf("Expected default base URL, got %q", s.BaseURL)
	}
	if s.MinLength != DefaultMinLength {
		t.Errorf("Expected default min length, got %d", s.MinLength)
	}

	custom := Settings{Timeout: 1, BaseURL: "http://local", MinLength: 10}.WithDefaults(5e9, "https://example.test")
	if custom.Timeout != 1 || custom.BaseURL != "http://local" || custom.MinLength != 10 {
		t.Errorf("Explicit settings were overwritten: %+v", custom)
	}
}
