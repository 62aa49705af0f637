package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lyrics-resolver-go/logcolors"
	"lyrics-resolver-go/services/providers"

	log "github.com/sirupsen/logrus"
)

const (
	// ProviderName is the identifier for the generative recall provider
	ProviderName = "gemini"

	defaultTimeout = 40 * time.Second

	// notFoundToken is what the model is told to answer when it does not know the song
	notFoundToken = "NOT_FOUND"

	confidence = 0.4
)

const recallPrompt = `You are a lyrics archive. Reproduce the complete original lyrics of the song %q by %q.

Rules:
- Output only the lyrics, no commentary, no title line, no code fences.
- Mark sections on their own line, e.g. [Verse 1], [Chorus], [Verse 2], [Bridge].
- Separate sections with one blank line.
- If you do not know this exact song, answer with the single word %s.`

// Provider recalls lyrics from a generative model. It is the slowest and
// least trusted source, so it carries its own longer call budget.
type Provider struct {
	settings providers.Settings
	gen      Generator
}

// NewProvider creates a Gemini-backed provider. settings.Credential is the API key.
func NewProvider(settings providers.Settings, model string) *Provider {
	return NewProviderWithGenerator(settings, NewClient(settings.Credential, model))
}

// NewProviderWithGenerator creates a provider around an arbitrary generator
func NewProviderWithGenerator(settings providers.Settings, gen Generator) *Provider {
	return &Provider{
		settings: settings.WithDefaults(defaultTimeout, ""),
		gen:      gen,
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

// Configured reports whether an API key was supplied
func (p *Provider) Configured() bool {
	if _, ok := p.gen.(*Client); ok {
		return p.settings.Credential != ""
	}
	return p.gen != nil
}

func (p *Provider) Timeout() time.Duration {
	return p.settings.Timeout
}

func (p *Provider) Fetch(ctx context.Context, q providers.Query) (*providers.Candidate, error) {
	if !p.Configured() {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotConfigured, "api key not set", nil)
	}
	if q.IsEmpty() {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "title cannot be empty", nil)
	}

	log.Infof("%s %s Recalling: %s", logcolors.LogSearch, logcolors.Provider(ProviderName), q)

	out, err := p.gen.Generate(ctx, fmt.Sprintf(recallPrompt, q.Title, q.Artist, notFoundToken))
	if err != nil {
		reason := providers.ReasonNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			reason = providers.ReasonTimeout
		}
		return nil, providers.NewProviderError(ProviderName, reason, "generation failed", err)
	}

	text := providers.CleanLyrics(stripFences(out))
	if strings.EqualFold(strings.TrimSpace(text), notFoundToken) {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "model does not know this song", nil)
	}
	if providers.LooksLikeAIText(text) {
		return nil, providers.NewProviderError(ProviderName, providers.ReasonNotFound, "model answered with commentary", nil)
	}
	if err := providers.CheckViable(ProviderName, text, p.settings.MinLength); err != nil {
		return nil, err
	}

	log.Infof("%s %s Recalled %d chars for: %s", logcolors.LogSuccess, logcolors.Provider(ProviderName), len(text), q)

	return &providers.Candidate{
		Lyrics:     text,
		Source:     ProviderName,
		Confidence: confidence,
		Metadata:   map[string]string{"generated": "true"},
	}, nil
}

// stripFences removes a surrounding markdown code fence
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
