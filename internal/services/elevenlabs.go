package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io/v1"
	elevenLabsOutputFormat = "mp3_44100_128"
	elevenLabsLanguage     = "ko"
)

// ElevenLabsService implements Synthesizer over the ElevenLabs
// text-to-speech REST API.
type ElevenLabsService struct {
	apiKey         string
	modelID        string
	defaultVoiceID string
	baseURL        string
	httpClient     *http.Client
	logger         *slog.Logger
}

type elevenLabsRequest struct {
	Text         string `json:"text"`
	ModelID      string `json:"model_id"`
	LanguageCode string `json:"language_code"`
}

// NewElevenLabsService creates an ElevenLabs speech synthesizer.
func NewElevenLabsService(apiKey, modelID, defaultVoiceID string, logger *slog.Logger) *ElevenLabsService {
	return &ElevenLabsService{
		apiKey:         apiKey,
		modelID:        modelID,
		defaultVoiceID: defaultVoiceID,
		baseURL:        elevenLabsBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (e *ElevenLabsService) SetBaseURL(url string) {
	e.baseURL = strings.TrimRight(url, "/")
}

// Synthesize renders text to MP3 bytes with the given voice, falling back
// to the service default voice when the scenario has none.
func (e *ElevenLabsService) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if e.apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is not configured")
	}
	if voiceID == "" {
		voiceID = e.defaultVoiceID
	}

	reqBody, err := json.Marshal(elevenLabsRequest{
		Text:         text,
		ModelID:      e.modelID,
		LanguageCode: elevenLabsLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.baseURL, voiceID, elevenLabsOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, truncateBody(body))
	}
	return body, nil
}

func truncateBody(body []byte) string {
	const max = 200
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
