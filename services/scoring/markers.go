package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// MarkerKind classifies a section heading line
type MarkerKind int

const (
	MarkerNone MarkerKind = iota
	MarkerVerse1
	MarkerLaterVerse // second verse and beyond
	MarkerChorus
	MarkerBridge
	MarkerOther // intro, outro, pre-chorus, hook, interlude...
)

func (k MarkerKind) String() string {
	switch k {
	case MarkerVerse1:
		return "verse1"
	case MarkerLaterVerse:
		return "verse2+"
	case MarkerChorus:
		return "chorus"
	case MarkerBridge:
		return "bridge"
	case MarkerOther:
		return "other"
	default:
		return "none"
	}
}

var (
	// "verse 2", "verse two", "strophe ii", "couplet 3"
	verseRegex = regexp.MustCompile(`^(?:verse|verso|strophe|couplet|strofa|vers)\s*(\d+|one|two|three|four|i{1,3}|iv)?$`)

	// Korean numbered verse: "1절", "2 절"
	koreanVerseRegex = regexp.MustCompile(`^(\d+)\s*절$`)

	chorusLabels = []string{"chorus", "refrain", "coro", "estribillo", "ritornello", "후렴", "サビ", "副歌"}
	bridgeLabels = []string{"bridge", "puente", "pont", "brücke", "ponte", "브릿지", "브리지", "ブリッジ", "桥段"}
	otherLabels  = []string{
		"intro", "outro", "pre-chorus", "prechorus", "pre chorus", "post-chorus", "hook",
		"interlude", "instrumental", "breakdown", "skit", "spoken", "ad-lib", "ad-libs",
		"인트로", "아웃트로", "프리코러스",
	}
)

var verseWords = map[string]int{"one": 1, "two": 2, "three": 3, "four": 4, "i": 1, "ii": 2, "iii": 3, "iv": 4}

// markerLabel extracts the heading label from a line such as
// "[Verse 1: Artist]", "(Chorus)", "Chorus:" or "1절". Lines that do not
// look like a heading return "".
func markerLabel(line string) string {
	s := strings.TrimSpace(line)
	if s == "" || len([]rune(s)) > 60 {
		return ""
	}

	bracketed := false
	if (strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) {
		s = s[1 : len(s)-1]
		bracketed = true
	}

	// Drop performer credits: "Verse 1: Artist", "Chorus - Artist"
	if i := strings.IndexAny(s, ":："); i >= 0 {
		s = s[:i]
	} else if i := strings.Index(s, " - "); i >= 0 && bracketed {
		s = s[:i]
	}

	s = strings.ToLower(strings.TrimSpace(s))

	// Unbracketed headings must be short to avoid matching lyric lines
	if !bracketed && len(strings.Fields(s)) > 3 {
		return ""
	}
	return s
}

// ClassifyMarker returns what kind of section heading line is
func ClassifyMarker(line string) MarkerKind {
	label := markerLabel(line)
	if label == "" {
		return MarkerNone
	}

	if m := verseRegex.FindStringSubmatch(label); m != nil {
		return verseKind(m[1])
	}
	if m := koreanVerseRegex.FindStringSubmatch(label); m != nil {
		return verseKind(m[1])
	}

	// Check other labels first so "pre-chorus" is not counted as a chorus
	if hasLabel(label, otherLabels) {
		return MarkerOther
	}
	if hasLabel(label, chorusLabels) {
		return MarkerChorus
	}
	if hasLabel(label, bridgeLabels) {
		return MarkerBridge
	}
	return MarkerNone
}

func verseKind(number string) MarkerKind {
	if number == "" {
		return MarkerVerse1
	}
	n, err := strconv.Atoi(number)
	if err != nil {
		n = verseWords[number]
	}
	if n <= 1 {
		return MarkerVerse1
	}
	return MarkerLaterVerse
}

// hasLabel matches a label exactly or followed by a number ("chorus 2")
func hasLabel(label string, labels []string) bool {
	for _, l := range labels {
		if label == l {
			return true
		}
		if rest, ok := strings.CutPrefix(label, l); ok {
			rest = strings.TrimSpace(rest)
			if _, err := strconv.Atoi(rest); err == nil {
				return true
			}
		}
	}
	return false
}

// IsMarkerLine reports whether line is any section heading
func IsMarkerLine(line string) bool {
	return ClassifyMarker(line) != MarkerNone
}

// MarkerSet records which structural sections a transcript declares
type MarkerSet struct {
	Verse1 bool
	Verse2 bool
	Chorus bool
	Bridge bool
}

// DetectMarkers scans every line of text for section headings.
// An unnumbered "[Verse]" heading counts as the first verse the first time
// and as a later verse afterwards.
func DetectMarkers(text string) MarkerSet {
	var set MarkerSet
	for _, line := range strings.Split(text, "\n") {
		switch ClassifyMarker(line) {
		case MarkerVerse1:
			if set.Verse1 && isUnnumberedVerse(line) {
				set.Verse2 = true
			}
			set.Verse1 = true
		case MarkerLaterVerse:
			set.Verse2 = true
		case MarkerChorus:
			set.Chorus = true
		case MarkerBridge:
			set.Bridge = true
		}
	}
	return set
}

func isUnnumberedVerse(line string) bool {
	m := verseRegex.FindStringSubmatch(markerLabel(line))
	return m != nil && m[1] == ""
}
