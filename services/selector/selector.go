package selector

import (
	"errors"
	"sort"
	"unicode/utf8"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"
	"lyrics-resolver-go/services/scoring"

	log "github.com/sirupsen/logrus"
)

// ErrNoCandidates is returned by Select for an empty candidate list
var ErrNoCandidates = errors.New("no candidates to select from")

const (
	DefaultGoodEnough      = 70
	DefaultSignificanceGap = 10
)

// Scored is a candidate with its derived ranking signals
type Scored struct {
	Candidate    providers.Candidate
	Completeness int
	Priority     int
}

func (s Scored) length() int {
	return utf8.RuneCountInString(s.Candidate.Lyrics)
}

// Options tune ranking and merging
type Options struct {
	// GoodEnough is the completeness at or above which no merge is attempted
	GoodEnough int

	// SignificanceGap is how far apart two scores must be for that signal alone to decide
	SignificanceGap int

	Tiers  providers.PriorityTable
	Scorer *scoring.Scorer
}

// Selector ranks candidates and merges partial transcripts
type Selector struct {
	goodEnough int
	gap        int
	tiers      providers.PriorityTable
	scorer     *scoring.Scorer
}

// New creates a Selector, filling zero options with defaults
func New(opts Options) *Selector {
	if opts.GoodEnough <= 0 {
		opts.GoodEnough = DefaultGoodEnough
	}
	if opts.SignificanceGap <= 0 {
		opts.SignificanceGap = DefaultSignificanceGap
	}
	if opts.Tiers == nil {
		opts.Tiers = providers.NewPriorityTable(nil)
	}
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewScorer(scoring.DefaultWeights)
	}
	return &Selector{
		goodEnough: opts.GoodEnough,
		gap:        opts.SignificanceGap,
		tiers:      opts.Tiers,
		scorer:     opts.Scorer,
	}
}

// GoodEnough is the completeness at or above which a result is considered confident
func (s *Selector) GoodEnough() int {
	return s.goodEnough
}

// Score derives the ranking signals for one candidate
func (s *Selector) Score(c providers.Candidate) Scored {
	return Scored{
		Candidate:    c,
		Completeness: s.scorer.Score(c.Lyrics),
		Priority:     s.tiers.Score(c.Source),
	}
}

// Rank scores candidates and sorts them best first
func (s *Selector) Rank(candidates []providers.Candidate) []Scored {
	ranked := make([]Scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = s.Score(c)
	}
	return s.rank(ranked)
}

// rank sorts by completeness, priority, length and source, which is a total
// order, so arrival order never matters. The significance gap then only
// arbitrates between the top two.
func (s *Selector) rank(ranked []Scored) []Scored {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ordered(ranked[i], ranked[j])
	})
	if len(ranked) > 1 && s.better(ranked[1], ranked[0]) {
		ranked[0], ranked[1] = ranked[1], ranked[0]
	}
	return ranked
}

func ordered(a, b Scored) bool {
	if a.Completeness != b.Completeness {
		return a.Completeness > b.Completeness
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if la, lb := a.length(), b.length(); la != lb {
		return la > lb
	}
	if a.Candidate.Source != b.Candidate.Source {
		return a.Candidate.Source < b.Candidate.Source
	}
	return a.Candidate.Lyrics < b.Candidate.Lyrics
}

// better decides between the top two: completeness when the gap exceeds the
// significance gap, else priority under the same rule, else length
func (s *Selector) better(a, b Scored) bool {
	if d := a.Completeness - b.Completeness; d > s.gap || d < -s.gap {
		return d > 0
	}
	if d := a.Priority - b.Priority; d > s.gap || d < -s.gap {
		return d > 0
	}
	return a.length() > b.length()
}

// Selection is the outcome of Select
type Selection struct {
	Best   Scored
	Ranked []Scored

	// Merged is true when Best was synthesized from the top two candidates
	Merged  bool
	Sources []string
}

// Select ranks candidates, and when the best is not good enough tries to
// merge it with the runner-up. The merge is kept only if it scores higher.
func (s *Selector) Select(candidates []providers.Candidate) (*Selection, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	ranked := s.Rank(candidates)
	top := ranked[0]
	sel := &Selection{Best: top, Ranked: ranked, Sources: []string{top.Candidate.Source}}

	log.Debugf("%s Top candidate %s (completeness: %d, priority: %d, of %d)",
		logcolors.LogSelect, top.Candidate.Source, top.Completeness, top.Priority, len(ranked))

	if top.Completeness >= s.goodEnough || len(ranked) < 2 {
		return sel, nil
	}

	runnerUp := ranked[1]
	merged, ok := Merge(top.Candidate, runnerUp.Candidate)
	if !ok {
		log.Debugf("%s %s and %s do not look like the same song, merge skipped",
			logcolors.LogMerge, top.Candidate.Source, runnerUp.Candidate.Source)
		return sel, nil
	}

	scored := s.Score(merged)
	if scored.Completeness <= top.Completeness {
		log.Debugf("%s Merge of %s did not improve completeness (%d <= %d), discarded",
			logcolors.LogMerge, merged.Source, scored.Completeness, top.Completeness)
		return sel, nil
	}

	log.Infof("%s Merged %s (completeness %d -> %d)", logcolors.LogMerge, merged.Source, top.Completeness, scored.Completeness)
	sel.Best = scored
	sel.Merged = true
	sel.Sources = []string{top.Candidate.Source, runnerUp.Candidate.Source}
	return sel, nil
}
