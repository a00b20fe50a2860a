package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harkida/Gemini-WebExersice/internal/engine"
	"github.com/harkida/Gemini-WebExersice/internal/services"
	"github.com/harkida/Gemini-WebExersice/internal/storage"
	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

type testEnv struct {
	store *storage.MockStorage
	ai    *services.MockAI
	eng   *engine.Engine

	sessionID  uuid.UUID
	scenarioID uuid.UUID
	userID     uuid.UUID
	teamID     uuid.UUID
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	env := &testEnv{
		store:      storage.NewMockStorage(),
		ai:         services.NewMockAI(),
		sessionID:  uuid.New(),
		scenarioID: uuid.New(),
		userID:     uuid.New(),
		teamID:     uuid.New(),
	}

	require.NoError(t, env.store.SaveScenario(ctx, &scenario.Scenario{
		ID:    env.scenarioID,
		Title: "빵집에서 주문하기",
		NPC:   scenario.NPC{Name: "하늘", Job: "제빵사"},
	}))
	require.NoError(t, env.store.SaveSession(ctx, &session.Session{
		ID:          env.sessionID,
		Name:        "회화 수업",
		Status:      session.StatusActive,
		ScenarioIDs: []uuid.UUID{env.scenarioID},
		TeamCount:   1,
	}))
	require.NoError(t, env.store.SaveTeam(ctx, &session.Team{
		ID:        env.teamID,
		SessionID: env.sessionID,
		Code:      session.NewTeamCode(env.teamID),
	}))
	require.NoError(t, env.store.AddTeamMember(ctx, env.teamID, session.Member{UserID: env.userID}))

	env.eng = engine.New(env.store, env.ai, env.ai, services.NewMockSynthesizer(), testLogger())
	return env
}

func (env *testEnv) postTurn(t *testing.T, handler http.Handler, body turn.SubmitRequest, userID string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewReader(data))
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestTurnHandlerText(t *testing.T) {
	env := newTestEnv(t)
	handler := NewTurnHandler(env.eng, testLogger())

	w := env.postTurn(t, handler, turn.SubmitRequest{
		SessionID:  env.sessionID,
		ScenarioID: env.scenarioID,
		Utterance:  "소금빵 있어요?",
	}, env.userID.String())

	require.Equal(t, http.StatusOK, w.Code)

	var resp turn.SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.TurnNumber)
	assert.Equal(t, "하늘", resp.NPCName)
	assert.Equal(t, "네, 알겠습니다.", resp.NPCLine)
	assert.Equal(t, turn.MaxPlayerTurns-1, resp.TurnsRemaining)
}

func TestTurnHandlerRequiresUserID(t *testing.T) {
	env := newTestEnv(t)
	handler := NewTurnHandler(env.eng, testLogger())

	w := env.postTurn(t, handler, turn.SubmitRequest{
		SessionID:  env.sessionID,
		ScenarioID: env.scenarioID,
		Utterance:  "안녕하세요",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.postTurn(t, handler, turn.SubmitRequest{
		SessionID:  env.sessionID,
		ScenarioID: env.scenarioID,
		Utterance:  "안녕하세요",
	}, "not-a-uuid")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTurnHandlerValidation(t *testing.T) {
	env := newTestEnv(t)
	handler := NewTurnHandler(env.eng, testLogger())

	w := env.postTurn(t, handler, turn.SubmitRequest{
		SessionID:  env.sessionID,
		ScenarioID: env.scenarioID,
	}, env.userID.String())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/turns", strings.NewReader("not json"))
	req.Header.Set("X-User-ID", env.userID.String())
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusBadRequest, w2.Code)
}

func TestTurnHandlerMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	handler := NewTurnHandler(env.eng, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/v1/turns", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestTurnHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T, env *testEnv) turn.SubmitRequest
		wantStatus int
	}{
		{
			name: "non-member is forbidden",
			setup: func(t *testing.T, env *testEnv) turn.SubmitRequest {
				env.userID = uuid.New()
				return turn.SubmitRequest{SessionID: env.sessionID, ScenarioID: env.scenarioID, Utterance: "안녕"}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "waiting session conflicts",
			setup: func(t *testing.T, env *testEnv) turn.SubmitRequest {
				ctx := context.Background()
				s, err := env.store.GetSession(ctx, env.sessionID)
				require.NoError(t, err)
				s.Status = session.StatusWaiting
				require.NoError(t, env.store.SaveSession(ctx, s))
				return turn.SubmitRequest{SessionID: env.sessionID, ScenarioID: env.scenarioID, Utterance: "안녕"}
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "missing scenario is not found",
			setup: func(t *testing.T, env *testEnv) turn.SubmitRequest {
				return turn.SubmitRequest{SessionID: env.sessionID, ScenarioID: uuid.New(), Utterance: "안녕"}
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "classifier outage is a bad gateway",
			setup: func(t *testing.T, env *testEnv) turn.SubmitRequest {
				env.ai.SetClassifyError(errors.New("upstream down"))
				return turn.SubmitRequest{SessionID: env.sessionID, ScenarioID: env.scenarioID, Utterance: "안녕"}
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "storage failure is internal",
			setup: func(t *testing.T, env *testEnv) turn.SubmitRequest {
				env.store.ListTurnsErr = errors.New("redis down")
				return turn.SubmitRequest{SessionID: env.sessionID, ScenarioID: env.scenarioID, Utterance: "안녕"}
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			reqBody := tt.setup(t, env)
			handler := NewTurnHandler(env.eng, testLogger())

			w := env.postTurn(t, handler, reqBody, env.userID.String())
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestTurnHandlerAudio(t *testing.T) {
	env := newTestEnv(t)
	handler := NewTurnHandler(env.eng, testLogger())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("session_id", env.sessionID.String()))
	require.NoError(t, mw.WriteField("scenario_id", env.scenarioID.String()))
	require.NoError(t, mw.WriteField("mime_type", "audio/webm"))
	fw, err := mw.CreateFormFile("audio_file", "utterance.webm")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake-audio-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/turns/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", env.userID.String())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp turn.SubmitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "안녕하세요", resp.TranscribedText)

	require.Len(t, env.ai.ClassifyAudioCalls, 1)
	assert.Equal(t, []byte("fake-audio-bytes"), env.ai.ClassifyAudioCalls[0].Audio)
	assert.Equal(t, "audio/webm", env.ai.ClassifyAudioCalls[0].MimeType)
}

func TestTurnHandlerAudioMissingFile(t *testing.T) {
	env := newTestEnv(t)
	handler := NewTurnHandler(env.eng, testLogger())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("session_id", env.sessionID.String()))
	require.NoError(t, mw.WriteField("scenario_id", env.scenarioID.String()))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/turns/audio", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", env.userID.String())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandler(t *testing.T) {
	env := newTestEnv(t)
	turnHandler := NewTurnHandler(env.eng, testLogger())
	w := env.postTurn(t, turnHandler, turn.SubmitRequest{
		SessionID:  env.sessionID,
		ScenarioID: env.scenarioID,
		Utterance:  "소금빵 있어요?",
	}, env.userID.String())
	require.Equal(t, http.StatusOK, w.Code)

	handler := NewHistoryHandler(env.eng, testLogger())
	req := httptest.NewRequest(http.MethodGet,
		"/v1/history?session_id="+env.sessionID.String()+"&scenario_id="+env.scenarioID.String(), nil)
	req.Header.Set("X-User-ID", env.userID.String())
	hw := httptest.NewRecorder()
	handler.ServeHTTP(hw, req)

	require.Equal(t, http.StatusOK, hw.Code)

	var resp turn.HistoryResponse
	require.NoError(t, json.NewDecoder(hw.Body).Decode(&resp))
	assert.Len(t, resp.Turns, 2)
	assert.Equal(t, 1, resp.CurrentTurn)
}

func TestHistoryHandlerForbiddenForNonMembers(t *testing.T) {
	env := newTestEnv(t)
	handler := NewHistoryHandler(env.eng, testLogger())

	req := httptest.NewRequest(http.MethodGet,
		"/v1/history?session_id="+env.sessionID.String()+"&scenario_id="+env.scenarioID.String(), nil)
	req.Header.Set("X-User-ID", uuid.New().String())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
