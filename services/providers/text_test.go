package providers

import (
	"strings"
	"testing"
)

func TestHasTimestamps(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"synced", "[00:12.34]Hello\n[00:15.00]World", true},
		{"three digit millis", "[01:02.345]Hello", true},
		{"no millis", "[01:02]Hello", true},
		{"plain", "Hello\nWorld", false},
		{"section marker", "[Verse 1]\nHello", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTimestamps(tt.text); got != tt.expected {
				t.Errorf("HasTimestamps() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestStripTimestamps(t *testing.T) {
	input := "[ar:Artist]\n[ti:Title]\n[00:01.00]First line\n[00:03.00][00:40.00]Repeated line\n[00:05.00]\n[00:06.00]After break\n[Chorus: Someone]"
	expected := "First line\nRepeated line\n\nAfter break\n[Chorus: Someone]"

	if got := StripTimestamps(input); got != expected {
		t.Errorf("StripTimestamps() = %q, expected %q", got, expected)
	}
}

func TestCleanLyrics(t *testing.T) {
	input := "\r\n  Line one  \r\nLine two\n\n\n\n\nLine three&apos;s\n\n"
	expected := "Line one\nLine two\n\nLine three's"

	if got := CleanLyrics(input); got != expected {
		t.Errorf("CleanLyrics() = %q, expected %q", got, expected)
	}
}

func TestLooksLikeAIText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{"refusal", "I'm sorry, but I can't provide the full lyrics to that song.", true},
		{"copyright", "These lyrics are copyrighted material.", true},
		{"as an ai", "As an AI language model I do not...", true},
		{"korean refusal", "죄송합니다. 저작권 때문에", true},
		{"real lyrics", "[Verse 1]\nI walked along the empty road\nThe night was cold", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeAIText(tt.text); got != tt.expected {
				t.Errorf("LooksLikeAIText() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCheckViable(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		reason   Reason
		wantNone bool
	}{
		{"empty", "   ", ReasonEmpty, false},
		{"too short", strings.Repeat("a", 150), ReasonTooShort, false},
		{"viable", strings.Repeat("a", 151), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckViable("test", tt.text, 150)
			if tt.wantNone {
				if err != nil {
					t.Errorf("Expected viable text, got %v", err)
				}
				return
			}
			if ReasonOf(err) != tt.reason {
				t.Errorf("Expected reason %s, got %v", tt.reason, err)
			}
		})
	}
}
