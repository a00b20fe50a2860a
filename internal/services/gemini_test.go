package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		ID:    uuid.New(),
		Title: "길 묻기",
		NPC: scenario.NPC{
			Name:        "민서",
			Job:         "행인",
			Personality: "친절하다",
		},
		Situation:        "지하철역 앞",
		ConversationGoal: "길을 알아낸다",
	}
}

func geminiTextResponse(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestGeminiClassify(t *testing.T) {
	var captured geminiGenerateRequest
	var gotPath, gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiTextResponse("```json\n{\"route\": \"DYN\", \"understood\": true, \"main_emotion\": \"기쁨\", \"boundary\": 0, \"goal_achieved\": false}\n```")))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key", "gemini-3-flash-preview", testLogger())
	svc.SetBaseURL(server.URL)

	dec, err := svc.Classify(context.Background(), testScenario(), nil, "저기요, 길 좀 물을게요")
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-3-flash-preview:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, turn.RouteGenerated, dec.Route)
	assert.Equal(t, turn.UnderstoodFull, dec.Understood)
	assert.Equal(t, "기쁨", dec.MainEmotion)

	require.NotNil(t, captured.GenerationConfig)
	assert.Equal(t, AnalystTemperature, captured.GenerationConfig.Temperature)
	assert.Equal(t, AnalystMaxTokens, captured.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.GenerationConfig.ThinkingConfig)
	assert.Equal(t, scenario.ThinkingLow, captured.GenerationConfig.ThinkingConfig.ThinkingLevel)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 1)
	assert.Contains(t, captured.Contents[0].Parts[0].Text, "저기요, 길 좀 물을게요")
}

func TestGeminiClassifyMalformedOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiTextResponse("I cannot classify this.")))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key", "gemini-3-flash-preview", testLogger())
	svc.SetBaseURL(server.URL)

	_, err := svc.Classify(context.Background(), testScenario(), nil, "안녕하세요")
	assert.Error(t, err)
}

func TestGeminiClassifyAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exceeded"}}`))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key", "gemini-3-flash-preview", testLogger())
	svc.SetBaseURL(server.URL)

	_, err := svc.Classify(context.Background(), testScenario(), nil, "안녕하세요")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGeminiClassifyAudio(t *testing.T) {
	var captured geminiGenerateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(geminiTextResponse(`{"route": "DYN", "transcribed_text": "안녕하세요", "boundary": 0, "goal_achieved": false}`)))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key", "gemini-3-flash-preview", testLogger())
	svc.SetBaseURL(server.URL)

	dec, err := svc.ClassifyAudio(context.Background(), testScenario(), nil, []byte("raw-audio"), "audio/webm")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", dec.TranscribedText)

	require.Len(t, captured.Contents, 1)
	require.Len(t, captured.Contents[0].Parts, 2)
	audioPart := captured.Contents[0].Parts[0]
	require.NotNil(t, audioPart.InlineData)
	assert.Equal(t, "audio/webm", audioPart.InlineData.MimeType)
	assert.NotEmpty(t, audioPart.InlineData.Data)
	assert.NotEmpty(t, captured.Contents[0].Parts[1].Text)
}

func TestGeminiRender(t *testing.T) {
	var captured geminiGenerateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(geminiTextResponse(`"[warmly] 어서 오세요!"`)))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key", "gemini-3-flash-preview", testLogger())
	svc.SetBaseURL(server.URL)

	sc := testScenario()
	sc.Temperature = 0.7
	sc.ThinkingLevel = scenario.ThinkingMedium

	line, err := svc.Render(context.Background(), sc, nil, &turn.Decision{Route: turn.RouteGenerated, Direction: "인사하라"}, "안녕하세요")
	require.NoError(t, err)
	assert.Equal(t, "[warmly] 어서 오세요!", line)

	require.NotNil(t, captured.GenerationConfig)
	assert.Equal(t, 0.7, captured.GenerationConfig.Temperature)
	assert.Equal(t, ActorMaxTokens, captured.GenerationConfig.MaxOutputTokens)
	assert.Empty(t, captured.GenerationConfig.ResponseMimeType)
	require.NotNil(t, captured.GenerationConfig.ThinkingConfig)
	assert.Equal(t, scenario.ThinkingMedium, captured.GenerationConfig.ThinkingConfig.ThinkingLevel)
}

func TestGeminiRenderEmptyLine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(geminiTextResponse(`""`)))
	}))
	defer server.Close()

	svc := NewGeminiService("test-key", "gemini-3-flash-preview", testLogger())
	svc.SetBaseURL(server.URL)

	_, err := svc.Render(context.Background(), testScenario(), nil, &turn.Decision{Route: turn.RouteGenerated}, "안녕하세요")
	assert.Error(t, err)
}
