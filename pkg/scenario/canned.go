package scenario

// Reserved canned-response categories. boundary_pre and not_understood are
// referenced by the escalation policy and the audio classifier contract;
// confused is the scenario-independent shared fallback catalog.
const (
	CategoryBoundary      = "boundary_pre"
	CategoryNotUnderstood = "not_understood"
	CategoryConfused      = "confused"
)

// DefaultCannedLine is returned when neither the scenario catalog nor the
// shared catalog has a usable variant.
const DefaultCannedLine = "네?"

// CannedVariant is one pre-authored rendition of a canned NPC line.
// AudioURL points at a pre-recorded clip when one was uploaded; a variant
// with only a transcript is still playable as text.
type CannedVariant struct {
	Transcript string `json:"transcript"`
	AudioURL   string `json:"audio_url,omitempty"`
}
