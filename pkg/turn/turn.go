package turn

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerPlayer Speaker = "player"
	SpeakerNPC    Speaker = "npc"
)

// MaxPlayerTurns caps the conversation length per (team, scenario).
const MaxPlayerTurns = 8

// Synthetic event markers recorded on NPC turns. Markers stay in the
// ledger for audit but are never shown back to the generative stages.
const (
	MarkerExit          = "[EXIT]"
	MarkerGoalAchieved  = "[GOAL_ACHIEVED]"
	MarkerBoundaryPre   = "[BOUNDARY_PRE]"
	markerCannedPattern = "[PRE:%s]"
)

// CannedMarker tags an NPC turn answered from the canned catalog.
func CannedMarker(category string) string {
	return fmt.Sprintf(markerCannedPattern, category)
}

// Turn is the atomic unit of conversation in the append-only ledger.
// Player turns carry the utterance and the full classifier decision;
// NPC turns carry the delivered line plus an optional synthetic marker.
// Player and NPC rows of the same exchange share a TurnNumber.
type Turn struct {
	TeamID       uuid.UUID `json:"team_id"`
	ScenarioID   uuid.UUID `json:"scenario_id"`
	TurnNumber   int       `json:"turn_number"`
	Speaker      Speaker   `json:"speaker"`
	PlayerUserID uuid.UUID `json:"player_user_id,omitempty"`
	Utterance    string    `json:"utterance,omitempty"`
	Decision     *Decision `json:"decision,omitempty"`
	Marker       string    `json:"marker,omitempty"`
	ActorLine    string    `json:"actor_line,omitempty"`
	AudioBase64  string    `json:"audio_base64,omitempty"`
	AudioURL     string    `json:"audio_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryLine is one entry of the conversation transcript handed to the
// generative stages.
type HistoryLine struct {
	Speaker Speaker
	Text    string
}

// HistoryText returns the turn's contribution to the generative
// transcript, or false when the turn has nothing to contribute.
func (t *Turn) HistoryText() (string, bool) {
	switch t.Speaker {
	case SpeakerPlayer:
		if t.Utterance == "" {
			return "", false
		}
		return t.Utterance, true
	case SpeakerNPC:
		if t.ActorLine == "" {
			return "", false
		}
		return t.ActorLine, true
	}
	return "", false
}

// History converts ledger turns into a transcript, skipping turns with no
// visible text. Synthetic markers are intentionally dropped here.
func History(turns []Turn) []HistoryLine {
	lines := make([]HistoryLine, 0, len(turns))
	for i := range turns {
		text, ok := turns[i].HistoryText()
		if !ok {
			continue
		}
		lines = append(lines, HistoryLine{Speaker: turns[i].Speaker, Text: text})
	}
	return lines
}

// CountPlayerTurns derives the current turn count for a (team, scenario)
// pair. Always computed from the ledger, never cached.
func CountPlayerTurns(turns []Turn) int {
	n := 0
	for i := range turns {
		if turns[i].Speaker == SpeakerPlayer {
			n++
		}
	}
	return n
}

// CountViolations derives the boundary-violation count from classifier
// records in the ledger. Recomputing this on every turn keeps the count
// consistent under retries and replay.
func CountViolations(turns []Turn) int {
	n := 0
	for i := range turns {
		t := &turns[i]
		if t.Speaker == SpeakerPlayer && t.Decision != nil && t.Decision.Boundary == 1 {
			n++
		}
	}
	return n
}

// HasExit reports whether the conversation was terminated by the
// escalation policy. A closed pair rejects further submissions.
func HasExit(turns []Turn) bool {
	for i := range turns {
		if turns[i].Speaker == SpeakerNPC && turns[i].Marker == MarkerExit {
			return true
		}
	}
	return false
}
