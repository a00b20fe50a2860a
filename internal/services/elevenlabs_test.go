package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsSynthesize(t *testing.T) {
	var captured elevenLabsRequest
	var gotPath, gotQuery, gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("xi-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	svc := NewElevenLabsService("test-key", "eleven_v3", "default-voice", testLogger())
	svc.SetBaseURL(server.URL)

	audio, err := svc.Synthesize(context.Background(), "[warmly] 어서 오세요!", "scenario-voice")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)

	assert.Equal(t, "/text-to-speech/scenario-voice", gotPath)
	assert.Equal(t, "output_format=mp3_44100_128", gotQuery)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "[warmly] 어서 오세요!", captured.Text)
	assert.Equal(t, "eleven_v3", captured.ModelID)
	assert.Equal(t, "ko", captured.LanguageCode)
}

func TestElevenLabsSynthesizeDefaultVoice(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	svc := NewElevenLabsService("test-key", "eleven_v3", "default-voice", testLogger())
	svc.SetBaseURL(server.URL)

	_, err := svc.Synthesize(context.Background(), "안녕하세요", "")
	require.NoError(t, err)
	assert.Equal(t, "/text-to-speech/default-voice", gotPath)
}

func TestElevenLabsSynthesizeUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "invalid api key"}`))
	}))
	defer server.Close()

	svc := NewElevenLabsService("bad-key", "eleven_v3", "default-voice", testLogger())
	svc.SetBaseURL(server.URL)

	_, err := svc.Synthesize(context.Background(), "안녕하세요", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestElevenLabsSynthesizeMissingKey(t *testing.T) {
	svc := NewElevenLabsService("", "eleven_v3", "default-voice", testLogger())

	_, err := svc.Synthesize(context.Background(), "안녕하세요", "")
	assert.Error(t, err)
}
