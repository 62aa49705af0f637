package verify

import (
	"context"
	"fmt"
	"strings"

	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/scoring"
)

// matchRatio is the share of lines that must appear in the reference for the
// transcript to count as matching
const matchRatio = 0.5

// ReferenceVerifier compares a transcript against an independent provider's
// transcript of the same song
type ReferenceVerifier struct {
	provider providers.Provider
}

// NewReferenceVerifier uses p as the reference source
func NewReferenceVerifier(p providers.Provider) *ReferenceVerifier {
	return &ReferenceVerifier{provider: p}
}

func (r *ReferenceVerifier) Name() string {
	return "reference:" + r.provider.Name()
}

func (r *ReferenceVerifier) Verify(ctx context.Context, req Request) (providers.Verification, error) {
	if !r.provider.Configured() {
		return providers.Verification{}, fmt.Errorf("%s is not configured", r.provider.Name())
	}

	if req.FromSource(r.provider.Name()) {
		return providers.Verification{Reason: "transcript came from the reference source"}, nil
	}

	ref, err := r.provider.Fetch(ctx, providers.Query{Artist: req.Artist, Title: req.Title})
	if err != nil {
		if providers.IsNotFound(err) {
			return providers.Verification{Reason: "reference has no lyrics for this song"}, nil
		}
		return providers.Verification{}, fmt.Errorf("fetching reference: %w", err)
	}

	ratio := LineOverlap(req.Lyrics, ref.Lyrics)
	return providers.Verification{
		KnownSong:   true,
		LyricsMatch: ratio >= matchRatio,
		IsAIText:    providers.LooksLikeAIText(req.Lyrics),
		Confidence:  int(ratio * 100),
		Reason:      fmt.Sprintf("%.0f%% of lines found in %s", ratio*100, r.provider.Name()),
	}, nil
}

// LineOverlap returns the share of distinct lyric lines of text that also
// appear in reference, ignoring case, spacing, punctuation and headings
func LineOverlap(text, reference string) float64 {
	refLines := make(map[string]bool)
	for _, l := range comparableLines(reference) {
		refLines[l] = true
	}

	lines := comparableLines(text)
	if len(lines) == 0 || len(refLines) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(lines))
	total, hits := 0, 0
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		total++
		if refLines[l] {
			hits++
		}
	}
	return float64(hits) / float64(total)
}

func comparableLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if scoring.IsMarkerLine(line) {
			continue
		}
		line = strings.Map(func(r rune) rune {
			if strings.ContainsRune(".,!?;:\"'()\u2026-", r) {
				return -1
			}
			return r
		}, strings.ToLower(line))
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return out
}
