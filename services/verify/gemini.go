package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/providers/gemini"
)

// maxPromptLyrics caps how much of the transcript is sent to the model
const maxPromptLyrics = 2000

const verifyPrompt = `You are checking a lyrics database entry.

Song: %q by %q
Transcript:
"""
%s
"""

Answer with JSON only, no code fences, using exactly these fields:
{"knownSong": bool, "lyricsMatch": bool, "isAIText": bool, "confidence": integer 0-100, "reason": string}

knownSong: you know this exact song.
lyricsMatch: the transcript is this song's lyrics (minor typos are fine).
isAIText: the transcript is an explanation, apology or refusal instead of lyrics.
confidence: how sure you are of your answer.`

// GeminiVerifier asks a generative model whether the transcript is right
type GeminiVerifier struct {
	gen gemini.Generator
}

// NewGeminiVerifier verifies with gen
func NewGeminiVerifier(gen gemini.Generator) *GeminiVerifier {
	return &GeminiVerifier{gen: gen}
}

func (g *GeminiVerifier) Name() string {
	return "gemini"
}

type geminiAnswer struct {
	KnownSong   bool   `json:"knownSong"`
	LyricsMatch bool   `json:"lyricsMatch"`
	IsAIText    bool   `json:"isAIText"`
	Confidence  int    `json:"confidence"`
	Reason      string `json:"reason"`
}

func (g *GeminiVerifier) Verify(ctx context.Context, req Request) (providers.Verification, error) {
	lyrics := []rune(req.Lyrics)
	if len(lyrics) > maxPromptLyrics {
		lyrics = lyrics[:maxPromptLyrics]
	}

	out, err := g.gen.Generate(ctx, fmt.Sprintf(verifyPrompt, req.Title, req.Artist, string(lyrics)))
	if err != nil {
		return providers.Verification{}, fmt.Errorf("generation failed: %w", err)
	}

	answer, err := parseAnswer(out)
	if err != nil {
		return providers.Verification{}, err
	}

	return providers.Verification{
		KnownSong:   answer.KnownSong,
		LyricsMatch: answer.LyricsMatch,
		IsAIText:    answer.IsAIText || providers.LooksLikeAIText(req.Lyrics),
		Confidence:  min(max(answer.Confidence, 0), 100),
		Reason:      answer.Reason,
	}, nil
}

// parseAnswer extracts the JSON object from the model output, tolerating
// code fences and chatter around it
func parseAnswer(out string) (geminiAnswer, error) {
	var answer geminiAnswer
	start, end := strings.IndexByte(out, '{'), strings.LastIndexByte(out, '}')
	if start < 0 || end <= start {
		return answer, fmt.Errorf("no JSON object in model answer: %q", truncate(out, 80))
	}
	if err := json.Unmarshal([]byte(out[start:end+1]), &answer); err != nil {
		return answer, fmt.Errorf("failed to parse model answer: %w", err)
	}
	return answer, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
