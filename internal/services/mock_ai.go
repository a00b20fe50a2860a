package services

import (
	"context"
	"sync"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// MockAI is a mock Classifier and Renderer for testing.
type MockAI struct {
	ClassifyFunc      func(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, utterance string) (*turn.Decision, error)
	ClassifyAudioFunc func(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, audio []byte, mimeType string) (*turn.Decision, error)
	RenderFunc        func(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, dec *turn.Decision, utterance string) (string, error)

	// Track calls for testing
	ClassifyCalls      []ClassifyCall
	ClassifyAudioCalls []ClassifyAudioCall
	RenderCalls        []RenderCall

	mu sync.Mutex // protects all fields above
}

type ClassifyCall struct {
	Utterance string
	History   []turn.HistoryLine
}

type ClassifyAudioCall struct {
	Audio    []byte
	MimeType string
	History  []turn.HistoryLine
}

type RenderCall struct {
	Decision  turn.Decision
	Utterance string
	History   []turn.HistoryLine
}

// NewMockAI creates a mock classifier/renderer pair.
func NewMockAI() *MockAI {
	return &MockAI{}
}

func (m *MockAI) Classify(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, utterance string) (*turn.Decision, error) {
	m.mu.Lock()
	m.ClassifyCalls = append(m.ClassifyCalls, ClassifyCall{Utterance: utterance, History: history})
	fn := m.ClassifyFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, sc, history, utterance)
	}
	return &turn.Decision{
		Route:      turn.RouteGenerated,
		Understood: turn.UnderstoodFull,
		Direction:  "자연스럽게 대답하라",
	}, nil
}

func (m *MockAI) ClassifyAudio(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, audio []byte, mimeType string) (*turn.Decision, error) {
	m.mu.Lock()
	m.ClassifyAudioCalls = append(m.ClassifyAudioCalls, ClassifyAudioCall{Audio: audio, MimeType: mimeType, History: history})
	fn := m.ClassifyAudioFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, sc, history, audio, mimeType)
	}
	return &turn.Decision{
		Route:           turn.RouteGenerated,
		Understood:      turn.UnderstoodFull,
		Direction:       "자연스럽게 대답하라",
		TranscribedText: "안녕하세요",
	}, nil
}

func (m *MockAI) Render(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, dec *turn.Decision, utterance string) (string, error) {
	m.mu.Lock()
	m.RenderCalls = append(m.RenderCalls, RenderCall{Decision: *dec, Utterance: utterance, History: history})
	fn := m.RenderFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, sc, history, dec, utterance)
	}
	return "네, 알겠습니다.", nil
}

// CountRenderCalls returns how many times Render was invoked.
func (m *MockAI) CountRenderCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RenderCalls)
}

// CountClassifyCalls returns how many times Classify was invoked.
func (m *MockAI) CountClassifyCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ClassifyCalls)
}

// LastRenderCall returns the most recent Render invocation, or nil.
func (m *MockAI) LastRenderCall() *RenderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.RenderCalls) == 0 {
		return nil
	}
	call := m.RenderCalls[len(m.RenderCalls)-1]
	return &call
}

// SetClassifyError sets up the mock to fail every classification.
func (m *MockAI) SetClassifyError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassifyFunc = func(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, utterance string) (*turn.Decision, error) {
		return nil, err
	}
}

// SetDecision sets up the mock to return the same decision for every
// text classification.
func (m *MockAI) SetDecision(dec *turn.Decision) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassifyFunc = func(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, utterance string) (*turn.Decision, error) {
		return dec.Clone(), nil
	}
}

// Reset clears all call tracking.
func (m *MockAI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClassifyCalls = nil
	m.ClassifyAudioCalls = nil
	m.RenderCalls = nil
}
