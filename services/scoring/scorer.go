package scoring

import (
	"strings"
	"unicode/utf8"
)

// Threshold awards Points when a measured value is strictly above Above
type Threshold struct {
	Above  int
	Points int
}

// Weights is the scoring table. Threshold lists are checked in order and the
// first match wins, so they must be sorted by Above descending.
type Weights struct {
	Length      []Threshold
	LengthFloor int // points when no length threshold matches

	Lines      []Threshold
	Paragraphs []Threshold

	// ParagraphMinChars is the size a blank-line separated block must exceed to count
	ParagraphMinChars int

	Verse1 int
	Verse2 int
	Chorus int
	Bridge int
}

// DefaultWeights sums to 100 for a long, fully structured transcript
var DefaultWeights = Weights{
	Length: []Threshold{
		{Above: 1500, Points: 30},
		{Above: 1000, Points: 25},
		{Above: 700, Points: 20},
		{Above: 500, Points: 15},
		{Above: 300, Points: 10},
	},
	LengthFloor: 5,
	Lines: []Threshold{
		{Above: 40, Points: 20},
		{Above: 30, Points: 15},
		{Above: 20, Points: 10},
		{Above: 10, Points: 5},
	},
	Paragraphs: []Threshold{
		{Above: 5, Points: 20},
		{Above: 4, Points: 15},
		{Above: 3, Points: 10},
		{Above: 2, Points: 5},
	},
	ParagraphMinChars: 20,
	Verse1:            10,
	Verse2:            10,
	Chorus:            7,
	Bridge:            3,
}

// MaxScore is the upper bound of any completeness score
const MaxScore = 100

// Scorer computes completeness scores from a weight table
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer for w
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

var defaultScorer = NewScorer(DefaultWeights)

// Score rates text with DefaultWeights
func Score(text string) int {
	return defaultScorer.Score(text)
}

// Breakdown is the per-signal contribution to a score
type Breakdown struct {
	Length     int `json:"length"`
	Lines      int `json:"lines"`
	Markers    int `json:"markers"`
	Paragraphs int `json:"paragraphs"`
	Total      int `json:"total"`
}

// Score returns the completeness of text in [0, 100]
func (s *Scorer) Score(text string) int {
	return s.Explain(text).Total
}

// Explain returns the score along with each signal's contribution
func (s *Scorer) Explain(text string) Breakdown {
	w := s.weights
	var b Breakdown

	b.Length = points(w.Length, utf8.RuneCountInString(text), w.LengthFloor)
	b.Lines = points(w.Lines, NonBlankLines(text), 0)
	b.Paragraphs = points(w.Paragraphs, Paragraphs(text, w.ParagraphMinChars), 0)

	m := DetectMarkers(text)
	if m.Verse1 {
		b.Markers += w.Verse1
	}
	if m.Verse2 {
		b.Markers += w.Verse2
	}
	if m.Chorus {
		b.Markers += w.Chorus
	}
	if m.Bridge {
		b.Markers += w.Bridge
	}

	b.Total = min(max(b.Length+b.Lines+b.Markers+b.Paragraphs, 0), MaxScore)
	return b
}

func points(table []Threshold, value, floor int) int {
	for _, t := range table {
		if value > t.Above {
			return t.Points
		}
	}
	return floor
}

// NonBlankLines counts lines containing anything besides whitespace
func NonBlankLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Paragraphs counts blank-line separated blocks longer than minChars
func Paragraphs(text string, minChars int) int {
	n := 0
	var block []string
	flush := func() {
		if utf8.RuneCountInString(strings.Join(block, "\n")) > minChars {
			n++
		}
		block = block[:0]
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			if len(block) > 0 {
				flush()
			}
			continue
		}
		block = append(block, strings.TrimSpace(line))
	}
	if len(block) > 0 {
		flush()
	}
	return n
}
