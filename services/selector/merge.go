package selector

import (
	"strings"
	"unicode/utf8"

	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/scoring"
)

const (
	// sameSongLeadLines is how many leading lyric lines are compared
	sameSongLeadLines = 5

	// sameSongMinOverlap is how many of those lines must overlap
	sameSongMinOverlap = 2

	// Lines shorter than this must match exactly; substring matches on
	// very short lines ("oh", "yeah") are meaningless
	minSubstringRunes = 8
)

// Merge combines two candidates for the same song into a new candidate.
// It reports false when no merge happened: secondary is empty, or the two
// transcripts are not the same song, in which case the longer one is returned
// unchanged.
func Merge(primary, secondary providers.Candidate) (providers.Candidate, bool) {
	if strings.TrimSpace(secondary.Lyrics) == "" {
		return primary, false
	}
	if strings.TrimSpace(primary.Lyrics) == "" {
		return secondary, false
	}
	if !SameSong(primary.Lyrics, secondary.Lyrics) {
		if utf8.RuneCountInString(secondary.Lyrics) > utf8.RuneCountInString(primary.Lyrics) {
			return secondary, false
		}
		return primary, false
	}

	metadata := primary.MetadataCopy()
	delete(metadata, "synced")
	metadata["merged"] = "true"
	metadata["sources"] = primary.Source + "," + secondary.Source

	return providers.Candidate{
		Lyrics:     MergeText(primary.Lyrics, secondary.Lyrics),
		Source:     primary.Source + "+" + secondary.Source,
		Confidence: min(primary.Confidence, secondary.Confidence),
		Metadata:   metadata,
	}, true
}

// SameSong reports whether at least two of the first five lyric lines of
// either transcript overlap (case-insensitive substring) with a line of the other
func SameSong(a, b string) bool {
	la, lb := lyricLines(a), lyricLines(b)
	return leadingOverlap(la, lb) >= sameSongMinOverlap || leadingOverlap(lb, la) >= sameSongMinOverlap
}

func leadingOverlap(lead, against []string) int {
	hits := 0
	for _, p := range lead[:min(sameSongLeadLines, len(lead))] {
		for _, q := range against {
			if linesOverlap(p, q) {
				hits++
				break
			}
		}
	}
	return hits
}

func linesOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < minSubstringRunes || utf8.RuneCountInString(b) < minSubstringRunes {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// lyricLines returns the lowercased non-blank, non-heading lines
func lyricLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" || scoring.IsMarkerLine(line) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// MergeText merges secondary into primary:
//  1. headings present in secondary but missing before the matching lyric
//     line in primary are interleaved
//  2. later-verse and bridge sections of secondary with no counterpart in
//     primary are spliced after the last first-verse or chorus section
//  3. blank-line runs collapse to one blank line and consecutive duplicate
//     lines are dropped
func MergeText(primary, secondary string) string {
	if strings.TrimSpace(secondary) == "" {
		return primary
	}

	lines := interleaveMarkers(splitLines(primary), splitLines(secondary))
	for _, block := range missingBlocks(lines, parseBlocks(splitLines(secondary))) {
		lines = splice(lines, block)
	}
	return strings.Join(tidy(lines), "\n")
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func normalizeLine(line string) string {
	return strings.ToLower(strings.Join(strings.Fields(line), " "))
}

// interleaveMarkers copies primary and inserts a secondary heading before the
// primary lyric line that follows it in secondary, when primary has no
// heading there already
func interleaveMarkers(primary, secondary []string) []string {
	// first lyric line under each secondary heading -> heading
	headingFor := make(map[string]string)
	for i := 0; i < len(secondary); i++ {
		if !scoring.IsMarkerLine(secondary[i]) {
			continue
		}
		for j := i + 1; j < len(secondary); j++ {
			next := strings.TrimSpace(secondary[j])
			if next == "" {
				continue
			}
			if !scoring.IsMarkerLine(next) {
				key := normalizeLine(next)
				if _, seen := headingFor[key]; !seen {
					headingFor[key] = strings.TrimSpace(secondary[i])
				}
			}
			break
		}
	}

	out := make([]string, 0, len(primary))
	used := make(map[string]bool)
	for _, line := range primary {
		key := normalizeLine(line)
		if heading, ok := headingFor[key]; ok && !used[key] && !previousIsMarker(out) {
			used[key] = true
			out = append(out, heading)
		}
		out = append(out, line)
	}
	return out
}

func previousIsMarker(lines []string) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return scoring.IsMarkerLine(lines[i])
		}
	}
	return false
}

// block is a heading and the lines under it, up to the next heading
type block struct {
	kind    scoring.MarkerKind
	heading string
	lines   []string
}

func parseBlocks(lines []string) []block {
	var blocks []block
	var cur *block
	for _, line := range lines {
		if kind := scoring.ClassifyMarker(line); kind != scoring.MarkerNone {
			blocks = append(blocks, block{kind: kind, heading: strings.TrimSpace(line)})
			cur = &blocks[len(blocks)-1]
			continue
		}
		if cur != nil {
			cur.lines = append(cur.lines, line)
		}
	}
	for i := range blocks {
		blocks[i].lines = trimBlank(blocks[i].lines)
	}
	return blocks
}

func trimBlank(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// missingBlocks returns the later-verse and bridge blocks of secondary whose
// heading and opening lyric line are both absent from primary
func missingBlocks(primary []string, secondary []block) []block {
	headings := make(map[string]bool)
	lyrics := make(map[string]bool)
	for _, line := range primary {
		if scoring.IsMarkerLine(line) {
			headings[markerKey(line)] = true
		} else if key := normalizeLine(line); key != "" {
			lyrics[key] = true
		}
	}

	var out []block
	for _, b := range secondary {
		if b.kind != scoring.MarkerLaterVerse && b.kind != scoring.MarkerBridge {
			continue
		}
		if len(b.lines) == 0 || headings[markerKey(b.heading)] {
			continue
		}
		if first := firstLyric(b.lines); first == "" || lyrics[normalizeLine(first)] {
			continue
		}
		out = append(out, b)
	}
	return out
}

// markerKey identifies a heading regardless of brackets and performer credits
func markerKey(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.Trim(s, "[]()")
	if i := strings.IndexAny(s, ":："); i >= 0 {
		s = s[:i]
	}
	return strings.Join(strings.Fields(s), " ")
}

func firstLyric(lines []string) string {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

// splice inserts b after the section of the last first-verse or chorus
// heading in lines, or appends it when there is no such anchor
func splice(lines []string, b block) []string {
	insertion := []string{"", b.heading}
	insertion = append(insertion, b.lines...)

	anchor := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if k := scoring.ClassifyMarker(lines[i]); k == scoring.MarkerVerse1 || k == scoring.MarkerChorus {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return append(trimTrailingBlank(lines), insertion...)
	}

	// End of the anchor section: next heading, minus trailing blanks
	end := len(lines)
	for i := anchor + 1; i < len(lines); i++ {
		if scoring.IsMarkerLine(lines[i]) {
			end = i
			break
		}
	}
	for end > anchor+1 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	out := make([]string, 0, len(lines)+len(insertion)+1)
	out = append(out, lines[:end]...)
	out = append(out, insertion...)
	if end < len(lines) {
		out = append(out, "")
	}
	return append(out, lines[end:]...)
}

func trimTrailingBlank(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

// tidy collapses blank runs to a single blank line, drops lines equal to the
// preceding non-blank line, and trims leading and trailing blanks
func tidy(lines []string) []string {
	out := make([]string, 0, len(lines))
	prev := ""
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank = true
			continue
		}
		if strings.TrimSpace(line) == prev {
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
		prev = strings.TrimSpace(line)
	}
	return out
}
