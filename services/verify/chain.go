// Package verify checks that a transcript really is the lyrics of the
// requested song.
package verify

import (
	"context"
	"strings"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

// DefaultThreshold is the confidence a verifier must exceed to be accepted
const DefaultThreshold = 50

// Request is the transcript under verification
type Request struct {
	Artist string
	Title  string
	Lyrics string

	// Source names the provider(s) the transcript came from, "+" separated.
	// Empty for transcripts obtained elsewhere.
	Source string
}

// FromSource reports whether provider contributed to the transcript
func (r Request) FromSource(provider string) bool {
	if r.Source == "" {
		return false
	}
	for _, part := range strings.Split(r.Source, "+") {
		if strings.EqualFold(strings.TrimSpace(part), provider) {
			return true
		}
	}
	return false
}

// Verifier gives one opinion about a transcript
type Verifier interface {
	Name() string
	Verify(ctx context.Context, req Request) (providers.Verification, error)
}

// Chain asks verifiers in order and stops at the first confident answer
type Chain struct {
	verifiers []Verifier
	threshold int
}

// NewChain creates a chain. A threshold <= 0 uses DefaultThreshold.
func NewChain(threshold int, verifiers ...Verifier) *Chain {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Chain{verifiers: verifiers, threshold: threshold}
}

// Threshold returns the acceptance confidence
func (c *Chain) Threshold() int {
	return c.threshold
}

// Names lists the verifiers in the order they are consulted
func (c *Chain) Names() []string {
	names := make([]string, len(c.verifiers))
	for i, v := range c.verifiers {
		names[i] = v.Name()
	}
	return names
}

// Verify returns the first outcome whose confidence exceeds the threshold.
// Verifier errors are logged and skipped. When nobody is confident the
// result is an unverified, zero-confidence outcome; it is never an error.
func (c *Chain) Verify(ctx context.Context, artist, title, lyrics string) providers.Verification {
	return c.VerifyRequest(ctx, Request{Artist: artist, Title: title, Lyrics: lyrics})
}

// VerifyRequest is Verify for a transcript whose source is known, so that
// verifiers backed by that same source can stand aside
func (c *Chain) VerifyRequest(ctx context.Context, req Request) providers.Verification {
	artist, title := req.Artist, req.Title

	for _, v := range c.verifiers {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		out, err := v.Verify(ctx, req)
		if err != nil {
			log.Warnf("%s %s failed: %v", logcolors.LogVerify, v.Name(), err)
			continue
		}

		log.Debugf("%s %s answered confidence %d in %v", logcolors.LogVerify, v.Name(), out.Confidence, time.Since(start).Round(time.Millisecond))
		if out.Confidence > c.threshold {
			out.Verifier = v.Name()
			log.Infof("%s %s - %s accepted from %s (known: %v, match: %v, ai: %v, confidence: %d)",
				logcolors.LogVerify, artist, title, v.Name(), out.KnownSong, out.LyricsMatch, out.IsAIText, out.Confidence)
			return out
		}
	}

	log.Infof("%s %s - %s inconclusive", logcolors.LogVerify, artist, title)
	return providers.Verification{
		IsAIText: providers.LooksLikeAIText(req.Lyrics),
		Reason:   "no verifier reached the confidence threshold",
	}
}
