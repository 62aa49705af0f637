package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeGenerator struct {
	out    string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.out, f.err
}

func TestGeminiVerifier(t *testing.T) {
	tests := []struct {
		name           string
		out            string
		err            error
		wantErr        bool
		wantKnown      bool
		wantMatch      bool
		wantConfidence int
	}{
		{
			name:           "plain json",
			out:            `{"knownSong": true, "lyricsMatch": true, "isAIText": false, "confidence": 88, "reason": "matches"}`,
			wantKnown:      true,
			wantMatch:      true,
			wantConfidence: 88,
		},
		{
			name:           "fenced json",
			out:            "```json\n{\"knownSong\": true, \"lyricsMatch\": false, \"confidence\": 70}\n```",
			wantKnown:      true,
			wantConfidence: 70,
		},
		{
			name:           "confidence clamped",
			out:            `{"knownSong": true, "lyricsMatch": true, "confidence": 250}`,
			wantKnown:      true,
			wantMatch:      true,
			wantConfidence: 100,
		},
		{name: "not json", out: "I think these lyrics are correct.", wantErr: true},
		{name: "broken json", out: `{"knownSong": tru}`, wantErr: true},
		{name: "generation error", err: errors.New("quota"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{out: tt.out, err: tt.err}
			got, err := NewGeminiVerifier(gen).Verify(context.Background(), Request{Artist: "Queen", Title: "Bohemian Rhapsody", Lyrics: "Is this the real life"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.KnownSong != tt.wantKnown || got.LyricsMatch != tt.wantMatch || got.Confidence != tt.wantConfidence {
				t.Errorf("got %+v", got)
			}
			if !strings.Contains(gen.prompt, "Bohemian Rhapsody") || !strings.Contains(gen.prompt, "Is this the real life") {
				t.Error("Prompt should carry the song and transcript")
			}
		})
	}
}

func TestGeminiVerifier_TruncatesLongTranscripts(t *testing.T) {
	gen := &fakeGenerator{out: `{"confidence": 10}`}
	long := strings.Repeat("x", maxPromptLyrics+500)

	if _, err := NewGeminiVerifier(gen).Verify(context.Background(), Request{Lyrics: long}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(gen.prompt, strings.Repeat("x", maxPromptLyrics+1)) {
		t.Error("Prompt contains more than the allowed transcript length")
	}
}
