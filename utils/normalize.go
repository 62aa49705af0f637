package utils

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// KeySeparator joins the normalized artist and title in cache keys
const KeySeparator = "|"

var foldPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)), // zero-width joiners, BOMs
			width.Fold,
		)
	},
}

// NormalizeField trims, collapses internal whitespace and case-folds s.
// Fullwidth forms are folded so "ＡＢＣ" and "abc" compare equal.
func NormalizeField(s string) string {
	s = strings.ToValidUTF8(s, "")
	if strings.TrimSpace(s) == "" {
		return ""
	}

	tr := foldPool.Get().(transform.Transformer)
	folded, _, err := transform.String(tr, s)
	tr.Reset()
	foldPool.Put(tr)
	if err != nil {
		folded = strings.ToLower(s)
	}

	return strings.Join(strings.Fields(folded), " ")
}

// BuildCacheKey derives the cache identity of an (artist, title) pair.
// Reads and writes must both go through this function or lookups miss.
func BuildCacheKey(artist, title string) string {
	return NormalizeField(artist) + KeySeparator + NormalizeField(title)
}
