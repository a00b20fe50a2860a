package storage

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// MockStorage is an in-memory Storage for testing.
type MockStorage struct {
	mu          sync.Mutex
	scenarios   map[uuid.UUID]*scenario.Scenario
	canned      map[string][]scenario.CannedVariant
	sessions    map[uuid.UUID]*session.Session
	teams       map[uuid.UUID]*session.Team
	memberships map[string]uuid.UUID // sessionID:userID -> teamID
	ledgers     map[string][]turn.Turn

	// Error hooks for failure injection
	AppendTurnErr error
	ListTurnsErr  error
}

var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates an empty in-memory storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		scenarios:   make(map[uuid.UUID]*scenario.Scenario),
		canned:      make(map[string][]scenario.CannedVariant),
		sessions:    make(map[uuid.UUID]*session.Session),
		teams:       make(map[uuid.UUID]*session.Team),
		memberships: make(map[string]uuid.UUID),
		ledgers:     make(map[string][]turn.Turn),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error { return nil }
func (m *MockStorage) Close() error                   { return nil }

func mockCannedKey(scenarioID uuid.UUID, category string) string {
	return scenarioID.String() + ":" + category
}

func mockMembershipKey(sessionID, userID uuid.UUID) string {
	return sessionID.String() + ":" + userID.String()
}

func mockLedgerKey(teamID, scenarioID uuid.UUID) string {
	return teamID.String() + ":" + scenarioID.String()
}

func (m *MockStorage) SaveScenario(ctx context.Context, sc *scenario.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sc
	m.scenarios[sc.ID] = &cp
	return nil
}

func (m *MockStorage) GetScenario(ctx context.Context, id uuid.UUID) (*scenario.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.scenarios[id]
	if !ok {
		return nil, nil
	}
	cp := *sc
	return &cp, nil
}

func (m *MockStorage) ListScenarios(ctx context.Context) ([]*scenario.Scenario, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*scenario.Scenario, 0, len(m.scenarios))
	for _, sc := range m.scenarios {
		cp := *sc
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockStorage) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scenarios, id)
	return nil
}

func (m *MockStorage) AddCannedVariant(ctx context.Context, scenarioID uuid.UUID, category string, v scenario.CannedVariant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mockCannedKey(scenarioID, category)
	m.canned[key] = append(m.canned[key], v)
	return nil
}

func (m *MockStorage) ListCannedVariants(ctx context.Context, scenarioID uuid.UUID, category string) ([]scenario.CannedVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	variants := m.canned[mockCannedKey(scenarioID, category)]
	out := make([]scenario.CannedVariant, len(variants))
	copy(out, variants)
	return out, nil
}

func (m *MockStorage) RandomCannedVariant(ctx context.Context, scenarioID uuid.UUID, category string) (*scenario.CannedVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	variants := m.canned[mockCannedKey(scenarioID, category)]
	if len(variants) == 0 {
		return nil, nil
	}
	v := variants[rand.Intn(len(variants))]
	return &v, nil
}

func (m *MockStorage) DeleteCannedVariants(ctx context.Context, scenarioID uuid.UUID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.canned, mockCannedKey(scenarioID, category))
	return nil
}

func (m *MockStorage) SaveSession(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MockStorage) GetSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockStorage) SaveTeam(ctx context.Context, t *session.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	cp.Members = append([]session.Member(nil), t.Members...)
	m.teams[t.ID] = &cp
	return nil
}

func (m *MockStorage) GetTeam(ctx context.Context, id uuid.UUID) (*session.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	cp.Members = append([]session.Member(nil), t.Members...)
	return &cp, nil
}

func (m *MockStorage) GetTeamByCode(ctx context.Context, sessionID uuid.UUID, code string) (*session.Team, error) {
	m.mu.Lock()
	var teamID uuid.UUID
	found := false
	for id, t := range m.teams {
		if t.SessionID == sessionID && strings.EqualFold(t.Code, code) {
			teamID = id
			found = true
			break
		}
	}
	m.mu.Unlock()
	if !found {
		return nil, nil
	}
	return m.GetTeam(ctx, teamID)
}

func (m *MockStorage) AddTeamMember(ctx context.Context, teamID uuid.UUID, member session.Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.teams[teamID]
	if !ok {
		return fmt.Errorf("team not found: %s", teamID)
	}
	key := mockMembershipKey(t.SessionID, member.UserID)
	if _, exists := m.memberships[key]; exists {
		return fmt.Errorf("user %s already belongs to a team in session %s", member.UserID, t.SessionID)
	}
	if err := t.AddMember(member); err != nil {
		return err
	}
	m.memberships[key] = teamID
	return nil
}

func (m *MockStorage) GetMembership(ctx context.Context, sessionID, userID uuid.UUID) (*session.Team, error) {
	m.mu.Lock()
	teamID, ok := m.memberships[mockMembershipKey(sessionID, userID)]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.GetTeam(ctx, teamID)
}

func (m *MockStorage) AppendTurn(ctx context.Context, t *turn.Turn) error {
	if m.AppendTurnErr != nil {
		return m.AppendTurnErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := mockLedgerKey(t.TeamID, t.ScenarioID)
	m.ledgers[key] = append(m.ledgers[key], *t)
	return nil
}

func (m *MockStorage) ListTurns(ctx context.Context, teamID, scenarioID uuid.UUID) ([]turn.Turn, error) {
	if m.ListTurnsErr != nil {
		return nil, m.ListTurnsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ledger := m.ledgers[mockLedgerKey(teamID, scenarioID)]
	out := make([]turn.Turn, len(ledger))
	copy(out, ledger)
	return out, nil
}
