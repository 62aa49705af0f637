package verify

import (
	"context"

	"lyrics-resolver-go/services/providers"
)

// AITextVerifier flags transcripts that read like a model explanation or
// refusal. It is only confident when it finds one; otherwise it defers to
// the next verifier.
type AITextVerifier struct{}

func (AITextVerifier) Name() string {
	return "ai-text"
}

func (AITextVerifier) Verify(_ context.Context, req Request) (providers.Verification, error) {
	if !providers.LooksLikeAIText(req.Lyrics) {
		return providers.Verification{}, nil
	}
	return providers.Verification{
		IsAIText:   true,
		Confidence: 95,
		Reason:     "text reads like an assistant reply, not lyrics",
	}, nil
}
