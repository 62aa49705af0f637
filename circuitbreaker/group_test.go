package circuitbreaker

import (
	"testing"
	"time"
)

func TestGroup_ForIsStablePerName(t *testing.T) {
	g := NewGroup(Config{Threshold: 1, Cooldown: time.Minute})

	a := g.For("lrclib")
	if g.For("lrclib") != a {
		t.Error("Expected the same breaker for the same provider")
	}
	if g.For("genius") == a {
		t.Error("Expected a distinct breaker per provider")
	}
	if a.Name() != "lrclib" || a.threshold != 1 {
		t.Errorf("Breaker should inherit base config with its own name, got %s/%d", a.Name(), a.threshold)
	}
}

func TestGroup_SnapshotAndReset(t *testing.T) {
	g := NewGroup(Config{Threshold: 1, Cooldown: time.Minute})
	g.For("ovh").RecordFailure()
	g.For("lrclib")

	snap := g.Snapshot()
	if len(snap) != 2 || snap["ovh"].State != "OPEN" || snap["lrclib"].State != "CLOSED" {
		t.Fatalf("Unexpected snapshot %+v", snap)
	}

	if err := g.Reset("ovh"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if g.For("ovh").State() != StateClosed {
		t.Error("Expected ovh breaker closed after reset")
	}
	if err := g.Reset("missing"); err == nil {
		t.Error("Expected error resetting an unknown provider")
	}

	g.For("ovh").RecordFailure()
	g.ResetAll()
	if g.For("ovh").State() != StateClosed {
		t.Error("Expected ResetAll to close every breaker")
	}
}

func TestGroup_Names(t *testing.T) {
	g := NewGroup(Config{})
	g.For("ovh")
	g.For("genius")
	g.For("lrclib")

	names := g.Names()
	want := []string{"genius", "lrclib", "ovh"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
}
