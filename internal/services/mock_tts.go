package services

import (
	"context"
	"sync"
)

// MockSynthesizer is a mock Synthesizer for testing.
type MockSynthesizer struct {
	SynthesizeFunc func(ctx context.Context, text string, voiceID string) ([]byte, error)

	SynthesizeCalls []SynthesizeCall

	mu sync.Mutex
}

type SynthesizeCall struct {
	Text    string
	VoiceID string
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{}
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	m.mu.Lock()
	m.SynthesizeCalls = append(m.SynthesizeCalls, SynthesizeCall{Text: text, VoiceID: voiceID})
	fn := m.SynthesizeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voiceID)
	}
	return []byte("mock-audio"), nil
}

// CountSynthesizeCalls returns how many times Synthesize was invoked.
func (m *MockSynthesizer) CountSynthesizeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SynthesizeCalls)
}

// SetSynthesizeError sets up the mock to fail every synthesis call.
func (m *MockSynthesizer) SetSynthesizeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SynthesizeFunc = func(ctx context.Context, text string, voiceID string) ([]byte, error) {
		return nil, err
	}
}
