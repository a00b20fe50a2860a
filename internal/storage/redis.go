package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// RedisStorage implements the Storage interface on Redis. Scenarios,
// sessions and teams are JSON values; canned variants and turn ledgers
// are lists, which makes ledger appends naturally order-preserving.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance.
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

// Key layout.
func scenarioKey(id uuid.UUID) string  { return "scenario:" + id.String() }
func sessionKey(id uuid.UUID) string   { return "session:" + id.String() }
func teamKey(id uuid.UUID) string      { return "team:" + id.String() }
func membershipKey(sessionID, userID uuid.UUID) string {
	return "member:" + sessionID.String() + ":" + userID.String()
}
func teamCodeKey(sessionID uuid.UUID, code string) string {
	return "teamcode:" + sessionID.String() + ":" + strings.ToUpper(code)
}
func cannedKey(scenarioID uuid.UUID, category string) string {
	if scenarioID == SharedCatalog {
		return "canned:shared:" + category
	}
	return "canned:" + scenarioID.String() + ":" + category
}
func ledgerKey(teamID, scenarioID uuid.UUID) string {
	return "ledger:" + teamID.String() + ":" + scenarioID.String()
}

const scenarioIndexKey = "scenarios"

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Scenario operations

func (r *RedisStorage) SaveScenario(ctx context.Context, sc *scenario.Scenario) error {
	sc.UpdatedAt = time.Now()
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, scenarioKey(sc.ID), data, 0)
	pipe.SAdd(ctx, scenarioIndexKey, sc.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to save scenario", "scenario_id", sc.ID, "error", err)
		return fmt.Errorf("failed to save scenario: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetScenario(ctx context.Context, id uuid.UUID) (*scenario.Scenario, error) {
	data, err := r.client.Get(ctx, scenarioKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}

	var sc scenario.Scenario
	if err := json.Unmarshal([]byte(data), &sc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
	}
	return &sc, nil
}

func (r *RedisStorage) ListScenarios(ctx context.Context) ([]*scenario.Scenario, error) {
	ids, err := r.client.SMembers(ctx, scenarioIndexKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	scenarios := make([]*scenario.Scenario, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			r.logger.Warn("Skipping malformed scenario index entry", "entry", raw)
			continue
		}
		sc, err := r.GetScenario(ctx, id)
		if err != nil {
			return nil, err
		}
		if sc != nil {
			scenarios = append(scenarios, sc)
		}
	}
	return scenarios, nil
}

func (r *RedisStorage) DeleteScenario(ctx context.Context, id uuid.UUID) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, scenarioKey(id))
	pipe.SRem(ctx, scenarioIndexKey, id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	return nil
}

// Canned catalog operations

func (r *RedisStorage) AddCannedVariant(ctx context.Context, scenarioID uuid.UUID, category string, v scenario.CannedVariant) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal canned variant: %w", err)
	}
	if err := r.client.RPush(ctx, cannedKey(scenarioID, category), data).Err(); err != nil {
		return fmt.Errorf("failed to add canned variant: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListCannedVariants(ctx context.Context, scenarioID uuid.UUID, category string) ([]scenario.CannedVariant, error) {
	items, err := r.client.LRange(ctx, cannedKey(scenarioID, category), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list canned variants: %w", err)
	}

	variants := make([]scenario.CannedVariant, 0, len(items))
	for _, item := range items {
		var v scenario.CannedVariant
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal canned variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func (r *RedisStorage) RandomCannedVariant(ctx context.Context, scenarioID uuid.UUID, category string) (*scenario.CannedVariant, error) {
	variants, err := r.ListCannedVariants(ctx, scenarioID, category)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, nil
	}
	// Uniform random among variants; no state carried between picks.
	v := variants[rand.Intn(len(variants))]
	return &v, nil
}

func (r *RedisStorage) DeleteCannedVariants(ctx context.Context, scenarioID uuid.UUID, category string) error {
	if err := r.client.Del(ctx, cannedKey(scenarioID, category)).Err(); err != nil {
		return fmt.Errorf("failed to delete canned variants: %w", err)
	}
	return nil
}

// Session/team registry operations

func (r *RedisStorage) SaveSession(ctx context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetSession(ctx context.Context, id uuid.UUID) (*session.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStorage) SaveTeam(ctx context.Context, t *session.Team) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal team: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, teamKey(t.ID), data, 0)
	if t.Code != "" {
		pipe.Set(ctx, teamCodeKey(t.SessionID, t.Code), t.ID.String(), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetTeamByCode(ctx context.Context, sessionID uuid.UUID, code string) (*session.Team, error) {
	raw, err := r.client.Get(ctx, teamCodeKey(sessionID, code)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve team code: %w", err)
	}

	teamID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed team code entry %q: %w", raw, err)
	}
	return r.GetTeam(ctx, teamID)
}

func (r *RedisStorage) GetTeam(ctx context.Context, id uuid.UUID) (*session.Team, error) {
	data, err := r.client.Get(ctx, teamKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	var t session.Team
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal team: %w", err)
	}
	return &t, nil
}

// AddTeamMember joins a participant to a team. The membership key is
// claimed with SETNX first, which is what makes one-team-per-session an
// invariant rather than a UI rule.
func (r *RedisStorage) AddTeamMember(ctx context.Context, teamID uuid.UUID, m session.Member) error {
	t, err := r.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("team not found: %s", teamID)
	}

	claimed, err := r.client.SetNX(ctx, membershipKey(t.SessionID, m.UserID), teamID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim membership: %w", err)
	}
	if !claimed {
		return fmt.Errorf("user %s already belongs to a team in session %s", m.UserID, t.SessionID)
	}

	if err := t.AddMember(m); err != nil {
		// Roll back the claim so the user can join another team.
		if delErr := r.client.Del(ctx, membershipKey(t.SessionID, m.UserID)).Err(); delErr != nil {
			r.logger.Error("Failed to roll back membership claim", "team_id", teamID, "user_id", m.UserID, "error", delErr)
		}
		return err
	}
	return r.SaveTeam(ctx, t)
}

func (r *RedisStorage) GetMembership(ctx context.Context, sessionID, userID uuid.UUID) (*session.Team, error) {
	raw, err := r.client.Get(ctx, membershipKey(sessionID, userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up membership: %w", err)
	}

	teamID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed membership entry %q: %w", raw, err)
	}
	return r.GetTeam(ctx, teamID)
}

// Turn ledger operations

// AppendTurn pushes a turn onto the end of the pair's ledger list.
// Turns are never edited or deleted; ordering within the list is the
// ledger ordering.
func (r *RedisStorage) AppendTurn(ctx context.Context, t *turn.Turn) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}
	if err := r.client.RPush(ctx, ledgerKey(t.TeamID, t.ScenarioID), data).Err(); err != nil {
		r.logger.Error("Failed to append turn",
			"team_id", t.TeamID,
			"scenario_id", t.ScenarioID,
			"turn_number", t.TurnNumber,
			"error", err)
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

func (r *RedisStorage) ListTurns(ctx context.Context, teamID, scenarioID uuid.UUID) ([]turn.Turn, error) {
	items, err := r.client.LRange(ctx, ledgerKey(teamID, scenarioID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}

	turns := make([]turn.Turn, 0, len(items))
	for _, item := range items {
		var t turn.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}
