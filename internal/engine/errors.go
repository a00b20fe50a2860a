package engine

import "errors"

// Error taxonomy for turn submissions. Handlers map these to HTTP
// statuses; everything else surfaces as an internal error.
var (
	// ErrUnauthorized: the caller is not a member of the referenced
	// team/session. No state mutated; safe to retry after joining.
	ErrUnauthorized = errors.New("caller is not a member of this session")

	// ErrSessionNotActive: the session is still waiting or already
	// completed. No state mutated.
	ErrSessionNotActive = errors.New("session is not active")

	// ErrTurnLimitReached: the 8-player-turn cap is spent. Terminal for
	// this (team, scenario) pair.
	ErrTurnLimitReached = errors.New("turn limit reached for this scenario")

	// ErrConversationClosed: an Exit turn has been recorded. The pair is
	// hard-locked; callers should move to the next scenario.
	ErrConversationClosed = errors.New("conversation has ended")

	// ErrScenarioNotFound: the referenced scenario does not exist.
	ErrScenarioNotFound = errors.New("scenario not found")

	// ErrClassificationFailed: the classifier failed twice. No turns
	// were recorded; the caller may resubmit the same utterance.
	ErrClassificationFailed = errors.New("utterance classification failed")

	// ErrRenderFailed: the line renderer failed twice. The player turn
	// is already in the ledger (appended before generation so a crash
	// never loses it); no NPC turn was recorded.
	ErrRenderFailed = errors.New("npc line generation failed")
)
