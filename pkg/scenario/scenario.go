package scenario

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Gemini reasoning-effort levels accepted for a scenario.
const (
	ThinkingLow    = "LOW"
	ThinkingMedium = "MEDIUM"
	ThinkingHigh   = "HIGH"
)

const DefaultTemperature = 0.3

// NPC is the persona a scenario's character plays. The Knowledge blob is
// domain knowledge the character is assumed to have (menus, prices,
// schedules) and is passed verbatim to the generative stages.
type NPC struct {
	Name         string         `json:"name"`
	Age          int            `json:"age"`
	Job          string         `json:"job"`
	Personality  string         `json:"personality"`
	CurrentState string         `json:"current_state,omitempty"`
	Knowledge    map[string]any `json:"knowledge,omitempty"`
}

// Scenario is the immutable template for one roleplay conversation.
// Scenarios are authored ahead of a session and are read-only during play.
type Scenario struct {
	ID               uuid.UUID         `json:"id"`
	Title            string            `json:"title"`
	NPC              NPC               `json:"npc"`
	Situation        string            `json:"situation"`
	ConversationGoal string            `json:"conversation_goal"`
	VoiceID          string            `json:"voice_id,omitempty"`
	Temperature      float64           `json:"temperature,omitempty"`
	ThinkingLevel    string            `json:"thinking_level,omitempty"`
	CannedCategories map[string]string `json:"canned_categories,omitempty"` // category name -> guide text for the classifier
	CreatedAt        time.Time         `json:"created_at,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at,omitempty"`
}

func (s *Scenario) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("title is required")
	}
	if s.NPC.Name == "" {
		return fmt.Errorf("npc name is required")
	}
	if s.Situation == "" {
		return fmt.Errorf("situation is required")
	}
	if s.ConversationGoal == "" {
		return fmt.Errorf("conversation goal is required")
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	switch s.ThinkingLevel {
	case "", ThinkingLow, ThinkingMedium, ThinkingHigh:
	default:
		return fmt.Errorf("invalid thinking level: %s", s.ThinkingLevel)
	}
	return nil
}

// EffectiveTemperature returns the sampling temperature for the line
// renderer, falling back to the default when the author left it unset.
func (s *Scenario) EffectiveTemperature() float64 {
	if s.Temperature == 0 {
		return DefaultTemperature
	}
	return s.Temperature
}

// EffectiveThinkingLevel returns the reasoning-effort level for the
// generative stages.
func (s *Scenario) EffectiveThinkingLevel() string {
	if s.ThinkingLevel == "" {
		return ThinkingLow
	}
	return s.ThinkingLevel
}
