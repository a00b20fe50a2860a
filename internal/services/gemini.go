package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/harkida/Gemini-WebExersice/pkg/prompts"
	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	AnalystTemperature = 0.3
	AnalystMaxTokens   = 2048
	ActorMaxTokens     = 1024
)

// GeminiService implements Classifier and Renderer over the Generative
// Language REST API.
type GeminiService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *geminiBlob `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingLevel string `json:"thinkingLevel"`
}

type geminiGenerationConfig struct {
	Temperature      float64               `json:"temperature"`
	MaxOutputTokens  int                   `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string                `json:"responseMimeType,omitempty"`
	ThinkingConfig   *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiGenerateRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// NewGeminiService creates a Gemini-backed classifier and renderer.
func NewGeminiService(apiKey string, modelName string, logger *slog.Logger) *GeminiService {
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   geminiBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (g *GeminiService) SetBaseURL(url string) {
	g.baseURL = strings.TrimRight(url, "/")
}

// generateContent runs one non-streaming generation call and returns the
// concatenated text of the first candidate.
func (g *GeminiService) generateContent(ctx context.Context, parts []geminiPart, cfg *geminiGenerationConfig) (string, error) {
	reqBody, err := json.Marshal(geminiGenerateRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiGenerateResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("API error: %s", geminiResp.Error.Message)
	}
	if len(geminiResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var b strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String()), nil
}

func (g *GeminiService) analystConfig() *geminiGenerationConfig {
	return &geminiGenerationConfig{
		Temperature:      AnalystTemperature,
		MaxOutputTokens:  AnalystMaxTokens,
		ResponseMimeType: "application/json",
		ThinkingConfig:   &geminiThinkingConfig{ThinkingLevel: scenario.ThinkingLow},
	}
}

// Classify judges a text utterance.
func (g *GeminiService) Classify(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, utterance string) (*turn.Decision, error) {
	prompt := prompts.Analyst(sc, history, utterance)
	raw, err := g.generateContent(ctx, []geminiPart{{Text: prompt}}, g.analystConfig())
	if err != nil {
		return nil, fmt.Errorf("analyst call failed: %w", err)
	}
	dec, err := turn.ParseDecision(raw)
	if err != nil {
		g.logger.Warn("Analyst returned malformed output", "scenario_id", sc.ID, "error", err)
		return nil, err
	}
	return dec, nil
}

// ClassifyAudio transcribes and judges a spoken utterance. The audio
// travels inline beside the prompt text.
func (g *GeminiService) ClassifyAudio(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, audio []byte, mimeType string) (*turn.Decision, error) {
	if mimeType == "" {
		mimeType = "audio/mp4"
	}
	parts := []geminiPart{
		{InlineData: &geminiBlob{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(audio),
		}},
		{Text: prompts.AnalystAudio(sc, history)},
	}
	raw, err := g.generateContent(ctx, parts, g.analystConfig())
	if err != nil {
		return nil, fmt.Errorf("analyst audio call failed: %w", err)
	}
	dec, err := turn.ParseDecision(raw)
	if err != nil {
		g.logger.Warn("Analyst returned malformed output for audio", "scenario_id", sc.ID, "error", err)
		return nil, err
	}
	return dec, nil
}

// Render produces the NPC line from the analyst's directive. The
// scenario controls sampling temperature and reasoning effort.
func (g *GeminiService) Render(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, dec *turn.Decision, utterance string) (string, error) {
	prompt := prompts.Actor(sc, history, dec, utterance)
	cfg := &geminiGenerationConfig{
		Temperature:     sc.EffectiveTemperature(),
		MaxOutputTokens: ActorMaxTokens,
		ThinkingConfig:  &geminiThinkingConfig{ThinkingLevel: sc.EffectiveThinkingLevel()},
	}
	line, err := g.generateContent(ctx, []geminiPart{{Text: prompt}}, cfg)
	if err != nil {
		return "", fmt.Errorf("actor call failed: %w", err)
	}
	line = strings.Trim(line, `"'`)
	if line == "" {
		return "", fmt.Errorf("actor returned an empty line")
	}
	return line, nil
}
