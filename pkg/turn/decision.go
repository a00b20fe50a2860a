package turn

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Route selects how the NPC answers: a pre-authored catalog line or a
// freshly generated one.
type Route string

const (
	RouteCanned    Route = "PRE"
	RouteGenerated Route = "DYN"
)

// Understanding is how much of the utterance the classifier made out.
// The wire format is sloppy: full understanding arrives as JSON true,
// partial as the string "partial".
type Understanding string

const (
	UnderstoodFull    Understanding = "full"
	UnderstoodPartial Understanding = "partial"
)

func (u *Understanding) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	switch s {
	case "true", "full":
		*u = UnderstoodFull
	case "partial":
		*u = UnderstoodPartial
	case "false", "null", "":
		*u = ""
	default:
		return fmt.Errorf("invalid understood value: %s", string(data))
	}
	return nil
}

// FlexBool tolerates booleans arriving as JSON strings ("true"/"false"),
// which the classifier occasionally emits.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "true":
		*b = true
	case "false", "null", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean value: %s", string(data))
	}
	return nil
}

// Decision is the classifier's structured verdict on one player
// utterance. Boundary and GoalAchieved are present on every route; the
// remaining fields depend on the route and understanding level.
type Decision struct {
	Route           Route         `json:"route"`
	Category        string        `json:"category,omitempty"`
	Understood      Understanding `json:"understood,omitempty"`
	Heard           string        `json:"heard,omitempty"`
	MainEmotion     string        `json:"main_emotion,omitempty"`
	Intensity       int           `json:"intensity,omitempty"`
	SubEmotion      string        `json:"sub_emotion,omitempty"`
	SubIntensity    int           `json:"sub_intensity,omitempty"`
	AudioTags       string        `json:"audio_tags,omitempty"`
	Direction       string        `json:"direction,omitempty"`
	TranscribedText string        `json:"transcribed_text,omitempty"`
	Boundary        int           `json:"boundary"`
	GoalAchieved    FlexBool      `json:"goal_achieved"`
}

func (d *Decision) Validate() error {
	switch d.Route {
	case RouteCanned:
		if d.Category == "" {
			return fmt.Errorf("canned decision is missing a category")
		}
	case RouteGenerated:
	default:
		return fmt.Errorf("invalid route: %q", d.Route)
	}
	if d.Boundary != 0 && d.Boundary != 1 {
		return fmt.Errorf("boundary must be 0 or 1, got %d", d.Boundary)
	}
	return nil
}

// Clone returns a copy safe to mutate during response resolution, so the
// audited decision on the player turn stays exactly what the classifier
// returned.
func (d *Decision) Clone() *Decision {
	c := *d
	return &c
}

// ParseDecision extracts a Decision from raw model output. Models wrap
// JSON in code fences or leading prose often enough that we trim to the
// outermost braces before decoding.
func ParseDecision(raw string) (*Decision, error) {
	clean := strings.ReplaceAll(raw, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	if i := strings.Index(clean, "{"); i >= 0 {
		clean = clean[i:]
	}
	if i := strings.LastIndex(clean, "}"); i >= 0 {
		clean = clean[:i+1]
	}
	if clean == "" || !strings.HasPrefix(clean, "{") {
		return nil, fmt.Errorf("no JSON object in classifier output: %q", truncate(raw, 120))
	}

	var d Decision
	if err := json.Unmarshal([]byte(clean), &d); err != nil {
		return nil, fmt.Errorf("failed to decode classifier output: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier decision: %w", err)
	}
	return &d, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
