package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionFencedJSON(t *testing.T) {
	raw := "```json\n{\"route\": \"DYN\", \"understood\": \"full\", \"main_emotion\": \"기쁨\", \"intensity\": 2, \"boundary\": 0, \"goal_achieved\": false}\n```"

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, RouteGenerated, d.Route)
	assert.Equal(t, UnderstoodFull, d.Understood)
	assert.Equal(t, "기쁨", d.MainEmotion)
	assert.Equal(t, 2, d.Intensity)
	assert.Equal(t, 0, d.Boundary)
	assert.False(t, bool(d.GoalAchieved))
}

func TestParseDecisionLeadingProse(t *testing.T) {
	raw := "Here is the classification:\n{\"route\": \"PRE\", \"category\": \"not_understood\", \"boundary\": 1, \"goal_achieved\": false}\nHope that helps."

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, RouteCanned, d.Route)
	assert.Equal(t, "not_understood", d.Category)
	assert.Equal(t, 1, d.Boundary)
}

func TestParseDecisionStringBooleans(t *testing.T) {
	raw := `{"route": "DYN", "understood": "true", "boundary": 0, "goal_achieved": "true"}`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, UnderstoodFull, d.Understood)
	assert.True(t, bool(d.GoalAchieved))
}

func TestParseDecisionPartialUnderstanding(t *testing.T) {
	raw := `{"route": "DYN", "understood": "partial", "heard": "우산", "boundary": 0, "goal_achieved": false}`

	d, err := ParseDecision(raw)
	require.NoError(t, err)
	assert.Equal(t, UnderstoodPartial, d.Understood)
	assert.Equal(t, "우산", d.Heard)
}

func TestParseDecisionErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json object", "the student asked about umbrellas"},
		{"empty output", ""},
		{"canned without category", `{"route": "PRE", "boundary": 0, "goal_achieved": false}`},
		{"unknown route", `{"route": "FOO", "boundary": 0, "goal_achieved": false}`},
		{"boundary out of range", `{"route": "DYN", "boundary": 2, "goal_achieved": false}`},
		{"invalid understood", `{"route": "DYN", "understood": "maybe", "boundary": 0, "goal_achieved": false}`},
		{"truncated json", `{"route": "DYN", "boundary":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDecision(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestDecisionClone(t *testing.T) {
	orig := &Decision{Route: RouteGenerated, MainEmotion: "기쁨", Direction: "원래 지시", Boundary: 1}

	c := orig.Clone()
	c.Route = RouteCanned
	c.Direction = "바뀐 지시"

	assert.Equal(t, RouteGenerated, orig.Route)
	assert.Equal(t, "원래 지시", orig.Direction)
}
