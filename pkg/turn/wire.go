package turn

import (
	"fmt"

	"github.com/google/uuid"
)

// SubmitRequest is the body of a text turn submission. The caller's
// identity travels separately (X-User-ID header); the team is implied by
// the caller's membership in the session.
type SubmitRequest struct {
	SessionID  uuid.UUID `json:"session_id"`
	ScenarioID uuid.UUID `json:"scenario_id"`
	Utterance  string    `json:"utterance"`
}

func (r *SubmitRequest) Validate() error {
	if r.SessionID == uuid.Nil {
		return fmt.Errorf("session_id is required")
	}
	if r.ScenarioID == uuid.Nil {
		return fmt.Errorf("scenario_id is required")
	}
	if r.Utterance == "" {
		return fmt.Errorf("utterance cannot be empty")
	}
	return nil
}

// SubmitResponse is returned from both the text and audio submission
// endpoints. TranscribedText is only set on the audio route.
type SubmitResponse struct {
	TurnNumber      int    `json:"turn_number"`
	NPCName         string `json:"npc_name"`
	NPCLine         string `json:"npc_line"`
	AudioBase64     string `json:"audio_base64,omitempty"`
	AudioURL        string `json:"audio_url,omitempty"`
	TranscribedText string `json:"transcribed_text,omitempty"`
	TurnsRemaining  int    `json:"turns_remaining"`
	GoalAchieved    bool   `json:"goal_achieved"`
	IsExit          bool   `json:"is_exit"`
	Error           string `json:"error,omitempty"`
}

// HistoryResponse is the idempotent ledger read used for client polling
// and resync.
type HistoryResponse struct {
	Turns          []Turn `json:"turns"`
	CurrentTurn    int    `json:"current_turn"`
	TurnsRemaining int    `json:"turns_remaining"`
	Error          string `json:"error,omitempty"`
}
