package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/services"
	"github.com/harkida/Gemini-WebExersice/internal/storage"
	"github.com/harkida/Gemini-WebExersice/pkg/koreantext"
	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

const transcriptionFailedPlaceholder = "(인식 실패)"

// Engine is the dialogue turn orchestrator. Given a player utterance it
// classifies, applies the boundary-escalation and goal policies, resolves
// the NPC response (canned or generated), synthesizes audio, and appends
// both sides of the exchange to the turn ledger.
//
// Every conversation, keyed by (team, scenario), is processed strictly
// serially under a keyed lock; distinct conversations run in parallel.
type Engine struct {
	storage    storage.Storage
	classifier services.Classifier
	renderer   services.Renderer
	synth      services.Synthesizer
	logger     *slog.Logger
	locks      *keyLocks
}

// New creates a turn orchestrator with its collaborators injected.
func New(store storage.Storage, classifier services.Classifier, renderer services.Renderer, synth services.Synthesizer, logger *slog.Logger) *Engine {
	return &Engine{
		storage:    store,
		classifier: classifier,
		renderer:   renderer,
		synth:      synth,
		logger:     logger,
		locks:      newKeyLocks(),
	}
}

// submission is one player turn on its way through the control loop.
type submission struct {
	sessionID  uuid.UUID
	scenarioID uuid.UUID
	userID     uuid.UUID
	text       string // text route
	audio      []byte // audio route
	mimeType   string
}

func (s *submission) isAudio() bool { return len(s.audio) > 0 }

// SubmitText processes one typed player utterance.
func (e *Engine) SubmitText(ctx context.Context, sessionID, scenarioID, userID uuid.UUID, utterance string) (*turn.SubmitResponse, error) {
	return e.submit(ctx, submission{
		sessionID:  sessionID,
		scenarioID: scenarioID,
		userID:     userID,
		text:       koreantext.Normalize(utterance),
	})
}

// SubmitAudio processes one spoken player utterance. The classifier
// doubles as the transcriber.
func (e *Engine) SubmitAudio(ctx context.Context, sessionID, scenarioID, userID uuid.UUID, audio []byte, mimeType string) (*turn.SubmitResponse, error) {
	return e.submit(ctx, submission{
		sessionID:  sessionID,
		scenarioID: scenarioID,
		userID:     userID,
		audio:      audio,
		mimeType:   mimeType,
	})
}

func (e *Engine) submit(ctx context.Context, sub submission) (*turn.SubmitResponse, error) {
	team, err := e.authorize(ctx, sub.sessionID, sub.userID, true)
	if err != nil {
		return nil, err
	}

	// Serialize per conversation: classification depends on the full
	// prior history and the violation count depends on prior
	// classifications, so interleaving would corrupt both.
	unlock := e.locks.Lock(conversationKey(team.ID, sub.scenarioID))
	defer unlock()

	turns, err := e.storage.ListTurns(ctx, team.ID, sub.scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turn ledger: %w", err)
	}
	if turn.HasExit(turns) {
		return nil, ErrConversationClosed
	}
	playerCount := turn.CountPlayerTurns(turns)
	if playerCount >= turn.MaxPlayerTurns {
		return nil, ErrTurnLimitReached
	}

	sc, err := e.storage.GetScenario(ctx, sub.scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	if sc == nil {
		return nil, ErrScenarioNotFound
	}

	history := buildHistory(turns)

	dec, err := e.classify(ctx, sc, history, &sub)
	if err != nil {
		return nil, err
	}

	utterance := sub.text
	transcript := ""
	if sub.isAudio() {
		transcript = koreantext.Normalize(dec.TranscribedText)
		utterance = transcript
	}

	// The player turn is appended right after classification, before any
	// generation, so a crash mid-generation never loses it.
	newTurn := playerCount + 1
	playerTurn := &turn.Turn{
		TeamID:       team.ID,
		ScenarioID:   sub.scenarioID,
		TurnNumber:   newTurn,
		Speaker:      turn.SpeakerPlayer,
		PlayerUserID: sub.userID,
		Utterance:    utterance,
		Decision:     dec,
	}
	if err := e.storage.AppendTurn(ctx, playerTurn); err != nil {
		return nil, fmt.Errorf("failed to append player turn: %w", err)
	}

	// Violations are recomputed from the ledger excluding this turn.
	violations := turn.CountViolations(turns)
	plan := resolveResponse(dec, violations)

	actorInput := utterance
	if sub.isAudio() && actorInput == "" {
		actorInput = transcriptionFailedPlaceholder
	}

	npcTurn, err := e.respond(ctx, sc, history, plan, actorInput, team.ID, sub.scenarioID, newTurn)
	if err != nil {
		return nil, err
	}
	if err := e.storage.AppendTurn(ctx, npcTurn); err != nil {
		return nil, fmt.Errorf("failed to append npc turn: %w", err)
	}

	e.logger.Info("Turn processed",
		"team_id", team.ID,
		"scenario_id", sub.scenarioID,
		"turn_number", newTurn,
		"route", plan.Route,
		"boundary", dec.Boundary,
		"violations", violations,
		"goal_achieved", plan.GoalAchieved,
		"is_exit", plan.IsExit)

	return &turn.SubmitResponse{
		TurnNumber:      newTurn,
		NPCName:         sc.NPC.Name,
		NPCLine:         npcTurn.ActorLine,
		AudioBase64:     npcTurn.AudioBase64,
		AudioURL:        npcTurn.AudioURL,
		TranscribedText: transcript,
		TurnsRemaining:  turn.MaxPlayerTurns - newTurn,
		GoalAchieved:    plan.GoalAchieved,
		IsExit:          plan.IsExit,
	}, nil
}

// History returns the full ledger for the caller's team, for client
// polling and resync. Read-only; membership is still required.
func (e *Engine) History(ctx context.Context, sessionID, scenarioID, userID uuid.UUID) (*turn.HistoryResponse, error) {
	team, err := e.authorize(ctx, sessionID, userID, false)
	if err != nil {
		return nil, err
	}

	turns, err := e.storage.ListTurns(ctx, team.ID, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turn ledger: %w", err)
	}

	current := turn.CountPlayerTurns(turns)
	return &turn.HistoryResponse{
		Turns:          turns,
		CurrentTurn:    current,
		TurnsRemaining: turn.MaxPlayerTurns - current,
	}, nil
}

// TeamFor resolves the caller's team in a session, or ErrUnauthorized.
func (e *Engine) TeamFor(ctx context.Context, sessionID, userID uuid.UUID) (*session.Team, error) {
	return e.authorize(ctx, sessionID, userID, false)
}

// authorize verifies membership and, when requireActive is set, that the
// session is in the active state.
func (e *Engine) authorize(ctx context.Context, sessionID, userID uuid.UUID, requireActive bool) (*session.Team, error) {
	team, err := e.storage.GetMembership(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up membership: %w", err)
	}
	if team == nil {
		return nil, ErrUnauthorized
	}

	if requireActive {
		s, err := e.storage.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		if s == nil {
			return nil, ErrUnauthorized
		}
		if s.Status != session.StatusActive {
			return nil, ErrSessionNotActive
		}
	}
	return team, nil
}

// classify runs the utterance classifier with exactly one synchronous
// retry on failure. On the audio route the classifier contract (no
// recognizable Korean speech -> canned not_understood with boundary=1)
// is enforced here as a backstop, because downstream escalation counts
// depend on it.
func (e *Engine) classify(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, sub *submission) (*turn.Decision, error) {
	var dec *turn.Decision
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if sub.isAudio() {
			dec, err = e.classifier.ClassifyAudio(ctx, sc, history, sub.audio, sub.mimeType)
		} else {
			dec, err = e.classifier.Classify(ctx, sc, history, sub.text)
		}
		if err == nil {
			break
		}
		if attempt == 0 {
			e.logger.Warn("Classification failed, retrying once",
				"scenario_id", sc.ID, "error", err)
		}
	}
	if err != nil {
		e.logger.Error("Classification failed after retry", "scenario_id", sc.ID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrClassificationFailed, err)
	}

	if sub.isAudio() && dec.Route == turn.RouteGenerated && !koreantext.ContainsHangul(dec.TranscribedText) {
		e.logger.Warn("Audio decision has no Korean transcript, coercing to not_understood",
			"scenario_id", sc.ID, "route", dec.Route)
		dec = &turn.Decision{
			Route:    turn.RouteCanned,
			Category: scenario.CategoryNotUnderstood,
			Boundary: 1,
		}
	}
	return dec, nil
}

// respond builds the NPC turn for the resolved plan.
func (e *Engine) respond(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, plan responsePlan, utterance string, teamID, scenarioID uuid.UUID, turnNumber int) (*turn.Turn, error) {
	npcTurn := &turn.Turn{
		TeamID:     teamID,
		ScenarioID: scenarioID,
		TurnNumber: turnNumber,
		Speaker:    turn.SpeakerNPC,
		Marker:     plan.Marker,
	}

	if plan.Route == turn.RouteCanned {
		variant, err := e.pickCanned(ctx, scenarioID, plan.Category)
		if err != nil {
			return nil, fmt.Errorf("failed to pick canned response: %w", err)
		}
		npcTurn.ActorLine = variant.Transcript
		npcTurn.AudioURL = variant.AudioURL
		return npcTurn, nil
	}

	line, err := e.render(ctx, sc, history, plan.Decision, utterance)
	if err != nil {
		return nil, err
	}
	npcTurn.ActorLine = line

	// Synthesis failure degrades to a text-only response; it never
	// fails the turn.
	if audio := e.synthesize(ctx, line, sc.VoiceID); audio != nil {
		npcTurn.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
	}
	return npcTurn, nil
}

// pickCanned resolves a canned line through the fallback chain:
// scenario catalog, shared catalog for the same category, the shared
// "confused" pool, then the fixed default line.
func (e *Engine) pickCanned(ctx context.Context, scenarioID uuid.UUID, category string) (*scenario.CannedVariant, error) {
	v, err := e.storage.RandomCannedVariant(ctx, scenarioID, category)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v, err = e.storage.RandomCannedVariant(ctx, storage.SharedCatalog, category)
		if err != nil {
			return nil, err
		}
	}
	if v == nil && category != scenario.CategoryConfused {
		v, err = e.storage.RandomCannedVariant(ctx, storage.SharedCatalog, scenario.CategoryConfused)
		if err != nil {
			return nil, err
		}
	}
	if v == nil {
		v = &scenario.CannedVariant{Transcript: scenario.DefaultCannedLine}
	}
	return v, nil
}

// render runs the line renderer with exactly one synchronous retry.
func (e *Engine) render(ctx context.Context, sc *scenario.Scenario, history []turn.HistoryLine, dec *turn.Decision, utterance string) (string, error) {
	var line string
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		line, err = e.renderer.Render(ctx, sc, history, dec, utterance)
		if err == nil {
			return line, nil
		}
		if attempt == 0 {
			e.logger.Warn("Line rendering failed, retrying once",
				"scenario_id", sc.ID, "error", err)
		}
	}
	e.logger.Error("Line rendering failed after retry", "scenario_id", sc.ID, "error", err)
	return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
}

func (e *Engine) synthesize(ctx context.Context, line, voiceID string) []byte {
	audio, err := e.synth.Synthesize(ctx, line, voiceID)
	if err != nil {
		e.logger.Warn("Speech synthesis failed, returning text only", "error", err)
		return nil
	}
	return audio
}

// buildHistory converts the ledger into the transcript handed to the
// generative stages. Synthesis cues are stripped; synthetic markers are
// already excluded by History.
func buildHistory(turns []turn.Turn) []turn.HistoryLine {
	lines := turn.History(turns)
	for i := range lines {
		if lines[i].Speaker == turn.SpeakerNPC {
			lines[i].Text = koreantext.StripAudioTags(lines[i].Text)
		}
	}
	return lines
}

func conversationKey(teamID, scenarioID uuid.UUID) string {
	return teamID.String() + ":" + scenarioID.String()
}
