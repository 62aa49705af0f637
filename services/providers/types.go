package providers

import (
	"errors"
	"time"

	"lyrics-resolver-go/utils"
)

// Query identifies the song being resolved
type Query struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// Key returns the normalized cache identity of the query
func (q Query) Key() string {
	return utils.BuildCacheKey(q.Artist, q.Title)
}

// Normalized returns the query with both fields normalized
func (q Query) Normalized() Query {
	return Query{
		Artist: utils.NormalizeField(q.Artist),
		Title:  utils.NormalizeField(q.Title),
	}
}

// IsEmpty reports whether the query has no usable title
func (q Query) IsEmpty() bool {
	return utils.NormalizeField(q.Title) == ""
}

func (q Query) String() string {
	return q.Artist + " - " + q.Title
}

// Candidate is one provider's transcript for a query.
// Candidates are never mutated after an adapter returns them; merging builds a new one.
type Candidate struct {
	// Lyrics is the plain-text transcript, one lyric line per line
	Lyrics string `json:"lyrics"`

	// Source is the provider name (or "a+b" for merged candidates)
	Source string `json:"source"`

	// HasTimestamps is true when the provider returned line-synchronized lyrics
	HasTimestamps bool `json:"hasTimestamps"`

	// Confidence is the provider's match confidence (0.0 to 1.0)
	Confidence float64 `json:"confidence"`

	// Metadata carries provider-specific details (synced LRC, language, track id...)
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MetadataCopy returns a copy of the metadata map that callers may modify
func (c Candidate) MetadataCopy() map[string]string {
	out := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		out[k] = v
	}
	return out
}

// Verification is the outcome of asking verifiers about a transcript
type Verification struct {
	KnownSong   bool   `json:"knownSong"`
	LyricsMatch bool   `json:"lyricsMatch"`
	IsAIText    bool   `json:"isAIText"`
	Confidence  int    `json:"confidence"`
	Verifier    string `json:"verifier,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Verified reports whether the outcome confirms the transcript
func (v Verification) Verified(threshold int) bool {
	return v.KnownSong && v.LyricsMatch && !v.IsAIText && v.Confidence > threshold
}

// ResolutionResult is the engine's answer for a query
type ResolutionResult struct {
	Lyrics            string            `json:"lyrics"`
	Source            string            `json:"source"`
	Confidence        float64           `json:"confidence"`
	HasTimestamps     bool              `json:"hasTimestamps"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	Merged            bool              `json:"merged,omitempty"`
	Sources           []string          `json:"sources,omitempty"`
	CompletenessScore int               `json:"completenessScore"`
	LowConfidence     bool              `json:"lowConfidence,omitempty"`
	Verification      *Verification     `json:"verification,omitempty"`
	ResolvedAt        time.Time         `json:"resolvedAt"`
}

// Reason enumerates why a provider produced no candidate
type Reason string

const (
	ReasonNetwork       Reason = "network"
	ReasonHTTPStatus    Reason = "http_status"
	ReasonRateLimited   Reason = "rate_limited"
	ReasonEmpty         Reason = "empty"
	ReasonTooShort      Reason = "too_short"
	ReasonNotFound      Reason = "not_found"
	ReasonNotConfigured Reason = "not_configured"
	ReasonCircuitOpen   Reason = "circuit_open"
	ReasonTimeout       Reason = "timeout"
	ReasonParse         Reason = "parse"
	ReasonPanic         Reason = "panic"
)

// ProviderError represents an error from a provider with additional context
type ProviderError struct {
	Provider string
	Reason   Reason
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Provider + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Provider + ": " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider string, reason Reason, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Reason:   reason,
		Message:  message,
		Err:      err,
	}
}

// ReasonOf extracts the failure reason from err, or ReasonNetwork for foreign errors
func ReasonOf(err error) Reason {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ReasonNetwork
}

// IsNotFound reports whether err means the provider simply has no lyrics for the song.
// These outcomes are not health failures of the provider.
func IsNotFound(err error) bool {
	switch ReasonOf(err) {
	case ReasonNotFound, ReasonEmpty, ReasonTooShort:
		return true
	}
	return false
}

// IsRTLLanguage checks if a language code is right-to-left
func IsRTLLanguage(langCode string) bool {
	rtlLanguages := map[string]bool{
		"ar": true, // Arabic
		"fa": true, // Persian (Farsi)
		"he": true, // Hebrew
		"ur": true, // Urdu
		"ps": true, // Pashto
		"sd": true, // Sindhi
		"ug": true, // Uyghur
		"yi": true, // Yiddish
		"ku": true, // Kurdish (some dialects)
		"dv": true, // Divehi (Maldivian)
	}
	return rtlLanguages[langCode]
}
