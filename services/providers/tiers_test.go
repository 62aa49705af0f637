package providers

import "testing"

func TestPriorityTable_Score(t *testing.T) {
	table := NewPriorityTable(nil)

	tests := []struct {
		source   string
		expected int
	}{
		{"lrclib", 100},
		{"LRCLIB", 100},
		{"genius", 30},
		{"unknown", UnknownPriority},
		{"genius+lrclib", 100},
		{"gemini+genius", 40},
		{"", UnknownPriority},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if got := table.Score(tt.source); got != tt.expected {
				t.Errorf("Score(%q) = %d, expected %d", tt.source, got, tt.expected)
			}
		})
	}
}

func TestNewPriorityTable_Overrides(t *testing.T) {
	table := NewPriorityTable(map[string]int{"Genius": 95, "custom": 70})

	if table.Score("genius") != 95 {
		t.Errorf("Expected override for genius, got %d", table.Score("genius"))
	}
	if table.Score("custom") != 70 {
		t.Errorf("Expected custom source, got %d", table.Score("custom"))
	}
	if table.Score("lrclib") != DefaultPriorityTiers["lrclib"] {
		t.Error("Defaults should survive overrides")
	}
	if DefaultPriorityTiers["genius"] != 30 {
		t.Error("Overrides must not mutate the default table")
	}
}
