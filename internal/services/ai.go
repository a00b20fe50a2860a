package services

import (
	"context"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// Classifier judges a player utterance in scenario context and returns a
// structured decision: response route, boundary flag, goal flag, and the
// emotion/direction bundle for the generated route. The audio variant
// additionally transcribes the utterance.
type Classifier interface {
	Classify(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, utterance string) (*turn.Decision, error)
	ClassifyAudio(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, audio []byte, mimeType string) (*turn.Decision, error)
}

// Renderer produces the NPC's natural-language line from the classifier's
// directive. Only invoked on the generated route.
type Renderer interface {
	Render(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, dec *turn.Decision, utterance string) (string, error)
}

// Synthesizer converts a rendered line to audio. Failures are expected to
// be survivable: callers degrade to a text-only response.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

// NoopSynthesizer is used when no TTS provider is configured. Responses
// come back text-only.
type NoopSynthesizer struct{}

func (NoopSynthesizer) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	return nil, nil
}
