package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a play session. Transitions are
// one-directional: waiting -> active -> completed.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// MaxTeamSize bounds how many participants may share one team.
const MaxTeamSize = 5

// CanTransitionTo reports whether next is a legal forward step from s.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusWaiting:
		return next == StatusActive
	case StatusActive:
		return next == StatusCompleted
	default:
		return false
	}
}

// Session is one scheduled play event for a class. It references its
// scenarios in fixed play order.
type Session struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Status      Status      `json:"status"`
	ScenarioIDs []uuid.UUID `json:"scenario_ids"`
	TeamCount   int         `json:"team_count"`
	CreatedAt   time.Time   `json:"created_at,omitempty"`
}

func (s *Session) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.ScenarioIDs) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}
	if s.TeamCount < 1 {
		return fmt.Errorf("team count must be at least 1")
	}
	switch s.Status {
	case StatusWaiting, StatusActive, StatusCompleted:
		return nil
	default:
		return fmt.Errorf("invalid status: %s", s.Status)
	}
}

// Member is one participant inside a team.
type Member struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name,omitempty"`
}

// Team is a group of 1..5 participants playing together within one session.
type Team struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Code      string    `json:"code"`
	Members   []Member  `json:"members,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// NewTeamCode derives a stable short join code from the team id.
func NewTeamCode(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
}

// HasMember reports whether the user already belongs to this team.
func (t *Team) HasMember(userID uuid.UUID) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AddMember appends a participant, enforcing the team size cap.
// Session-level exclusivity (one team per participant per session) is
// enforced by the registry, not here.
func (t *Team) AddMember(m Member) error {
	if t.HasMember(m.UserID) {
		return fmt.Errorf("user %s is already a member of team %s", m.UserID, t.Code)
	}
	if len(t.Members) >= MaxTeamSize {
		return fmt.Errorf("team %s is full (%d members)", t.Code, MaxTeamSize)
	}
	t.Members = append(t.Members, m)
	return nil
}
