package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistorySkipsSilentTurns(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerPlayer, TurnNumber: 1, Utterance: "안녕하세요"},
		{Speaker: SpeakerNPC, TurnNumber: 1, ActorLine: "어서 오세요."},
		{Speaker: SpeakerPlayer, TurnNumber: 2, Utterance: ""},
		{Speaker: SpeakerNPC, TurnNumber: 2, ActorLine: "", Marker: MarkerBoundaryPre},
		{Speaker: SpeakerPlayer, TurnNumber: 3, Utterance: "우산 있어요?"},
	}

	lines := History(turns)
	assert.Len(t, lines, 3)
	assert.Equal(t, "안녕하세요", lines[0].Text)
	assert.Equal(t, SpeakerNPC, lines[1].Speaker)
	assert.Equal(t, "우산 있어요?", lines[2].Text)
}

func TestCountPlayerTurns(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerPlayer, TurnNumber: 1},
		{Speaker: SpeakerNPC, TurnNumber: 1},
		{Speaker: SpeakerPlayer, TurnNumber: 2},
	}
	assert.Equal(t, 2, CountPlayerTurns(turns))
	assert.Equal(t, 0, CountPlayerTurns(nil))
}

func TestCountViolations(t *testing.T) {
	turns := []Turn{
		{Speaker: SpeakerPlayer, Decision: &Decision{Route: RouteCanned, Category: "boundary_pre", Boundary: 1}},
		{Speaker: SpeakerNPC, Marker: MarkerBoundaryPre},
		{Speaker: SpeakerPlayer, Decision: &Decision{Route: RouteGenerated, Boundary: 0}},
		{Speaker: SpeakerPlayer, Decision: nil},
		{Speaker: SpeakerPlayer, Decision: &Decision{Route: RouteGenerated, Boundary: 1}},
	}
	assert.Equal(t, 2, CountViolations(turns))
}

func TestHasExit(t *testing.T) {
	open := []Turn{
		{Speaker: SpeakerPlayer, TurnNumber: 1},
		{Speaker: SpeakerNPC, TurnNumber: 1, Marker: MarkerGoalAchieved},
	}
	assert.False(t, HasExit(open))

	closed := append(open, Turn{Speaker: SpeakerNPC, TurnNumber: 2, Marker: MarkerExit})
	assert.True(t, HasExit(closed))
}

func TestCannedMarker(t *testing.T) {
	assert.Equal(t, "[PRE:not_understood]", CannedMarker("not_understood"))
	assert.Equal(t, "[PRE:confused]", CannedMarker("confused"))
}
