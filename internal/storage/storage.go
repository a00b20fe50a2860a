package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// HealthChecker defines basic health check capabilities
type HealthChecker interface {
	// Ping tests the service connection
	Ping(ctx context.Context) error
}

// Closer defines cleanup capabilities
type Closer interface {
	// Close closes the service connection
	Close() error
}

// SharedCatalog is the sentinel scenario id for the scenario-independent
// canned catalog (the shared "confused"/boundary pools).
var SharedCatalog = uuid.Nil

// Storage persists scenarios, the canned-response catalog, the
// session/team registry, and the append-only turn ledger.
type Storage interface {
	HealthChecker
	Closer

	// Scenario store. Scenarios are written by the author workflow and
	// read-only during play.
	SaveScenario(ctx context.Context, sc *scenario.Scenario) error
	// GetScenario returns nil if the scenario doesn't exist.
	GetScenario(ctx context.Context, id uuid.UUID) (*scenario.Scenario, error)
	ListScenarios(ctx context.Context) ([]*scenario.Scenario, error)
	DeleteScenario(ctx context.Context, id uuid.UUID) error

	// Canned-response catalog. Use SharedCatalog as scenarioID for the
	// scenario-independent pools.
	AddCannedVariant(ctx context.Context, scenarioID uuid.UUID, category string, v scenario.CannedVariant) error
	ListCannedVariants(ctx context.Context, scenarioID uuid.UUID, category string) ([]scenario.CannedVariant, error)
	// RandomCannedVariant picks a uniform-random variant; returns nil
	// when the catalog has no entry for this scenario+category.
	RandomCannedVariant(ctx context.Context, scenarioID uuid.UUID, category string) (*scenario.CannedVariant, error)
	DeleteCannedVariants(ctx context.Context, scenarioID uuid.UUID, category string) error

	// Session/team registry.
	SaveSession(ctx context.Context, s *session.Session) error
	// GetSession returns nil if the session doesn't exist.
	GetSession(ctx context.Context, id uuid.UUID) (*session.Session, error)
	SaveTeam(ctx context.Context, t *session.Team) error
	// GetTeam returns nil if the team doesn't exist.
	GetTeam(ctx context.Context, id uuid.UUID) (*session.Team, error)
	// GetTeamByCode resolves a join code within a session; returns nil
	// if no team carries that code.
	GetTeamByCode(ctx context.Context, sessionID uuid.UUID, code string) (*session.Team, error)
	// AddTeamMember joins a participant to a team, enforcing the
	// one-team-per-session invariant and the team size cap.
	AddTeamMember(ctx context.Context, teamID uuid.UUID, m session.Member) error
	// GetMembership resolves a participant to their team within a
	// session; returns nil if they are not a member of any team there.
	GetMembership(ctx context.Context, sessionID, userID uuid.UUID) (*session.Team, error)

	// Turn ledger, append-only per (team, scenario).
	AppendTurn(ctx context.Context, t *turn.Turn) error
	ListTurns(ctx context.Context, teamID, scenarioID uuid.UUID) ([]turn.Turn, error)
}
