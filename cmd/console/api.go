package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/handlers"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

type apiClient struct {
	baseURL string
	userID  uuid.UUID
	client  *http.Client
}

func newAPIClient(baseURL string, userID uuid.UUID, client *http.Client) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		userID:  userID,
		client:  client,
	}
}

func (a *apiClient) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, a.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", a.userID.String())

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (a *apiClient) testConnection() bool {
	resp, err := a.client.Get(a.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (a *apiClient) joinTeam(sessionID uuid.UUID, code, name string) (*session.Team, error) {
	var team session.Team
	err := a.do(http.MethodPost, "/v1/teams/join", handlers.JoinRequest{
		SessionID: sessionID,
		Code:      code,
		Name:      name,
	}, &team)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (a *apiClient) sessionInfo(sessionID uuid.UUID) (*handlers.InfoResponse, error) {
	var info handlers.InfoResponse
	if err := a.do(http.MethodGet, fmt.Sprintf("/v1/sessions/%s/info", sessionID), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (a *apiClient) sendTurn(sessionID, scenarioID uuid.UUID, utterance string) (*turn.SubmitResponse, error) {
	var resp turn.SubmitResponse
	err := a.do(http.MethodPost, "/v1/turns", turn.SubmitRequest{
		SessionID:  sessionID,
		ScenarioID: scenarioID,
		Utterance:  utterance,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (a *apiClient) history(sessionID, scenarioID uuid.UUID) (*turn.HistoryResponse, error) {
	var resp turn.HistoryResponse
	path := fmt.Sprintf("/v1/history?session_id=%s&scenario_id=%s", sessionID, scenarioID)
	if err := a.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
