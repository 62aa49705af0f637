package selector

import (
	"fmt"
	"strings"

	"lyrics-resolver-go/services/providers"
)

func lyricBlock(heading, name string, n int) string {
	lines := []string{heading}
	for i := 1; i <= n; i++ {
		lines = append(lines, fmt.Sprintf("%s line %d under the city lights tonight we ride", name, i))
	}
	return strings.Join(lines, "\n")
}

var (
	verse1 = lyricBlock("[Verse 1]", "first verse", 6)
	chorus = lyricBlock("[Chorus]", "chorus", 4)
	verse2 = lyricBlock("[Verse 2]", "second verse", 6)
	bridge = lyricBlock("[Bridge]", "bridge", 4)
)

func song(blocks ...string) string {
	return strings.Join(blocks, "\n\n")
}

func candidate(source, lyrics string) providers.Candidate {
	return providers.Candidate{Lyrics: lyrics, Source: source, Confidence: 0.9, Metadata: map[string]string{}}
}

// completeSong is a long transcript with every structural section
func completeSong() string {
	return song(
		lyricBlock("[Verse 1]", "opening verse", 8),
		lyricBlock("[Chorus]", "big chorus", 6),
		lyricBlock("[Verse 2]", "following verse", 8),
		lyricBlock("[Chorus]", "big chorus again", 6),
		lyricBlock("[Bridge]", "quiet bridge", 4),
		lyricBlock("[Chorus]", "final chorus", 6),
	)
}
