package engine

import (
	"fmt"

	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// Escalation tiers of the boundary policy.
const (
	exitViolationThreshold   = 4 // tier 2: end the conversation
	forcedViolationThreshold = 3 // tier 1: forced generated response
	curtAftereffectThreshold = 3 // prior violations that leave the NPC curt
)

// responsePlan is the resolved shape of the NPC's next turn after the
// boundary-escalation and goal-completion policies have been applied to
// the classifier's decision.
type responsePlan struct {
	Route        turn.Route
	Category     string // canned route only
	Marker       string
	IsExit       bool
	GoalAchieved bool
	// Decision is a policy-adjusted copy handed to the renderer; the
	// original classifier record stays untouched on the player turn.
	Decision *turn.Decision
}

// resolveResponse applies the escalation tiers and the goal override.
// violations is the boundary count from the ledger excluding the current
// turn; tiers are checked highest first on that prior count.
func resolveResponse(dec *turn.Decision, violations int) responsePlan {
	d := dec.Clone()
	plan := responsePlan{
		Route:        d.Route,
		Category:     d.Category,
		GoalAchieved: bool(d.GoalAchieved),
		Decision:     d,
	}

	if d.Boundary == 1 {
		switch {
		case violations >= exitViolationThreshold:
			// Tier 2: the NPC walks out. Takes precedence over goal
			// wording; an angry exit is not also a warm farewell.
			d.Route = turn.RouteGenerated
			d.Direction = fmt.Sprintf("boundary Exit: 학생이 %d회 이탈했다. 대화를 끝내는 대사를 하라. NPC 성격에 맞게.", violations)
			d.MainEmotion = "불쾌"
			d.AudioTags = "[sigh][frustrated]"
			plan.Route = turn.RouteGenerated
			plan.Marker = turn.MarkerExit
			plan.IsExit = true
			return plan
		case violations >= forcedViolationThreshold:
			// Tier 1: forced generated response referencing the context.
			d.Route = turn.RouteGenerated
			d.Direction = fmt.Sprintf("boundary DYN: 학생이 %d회 이탈했다. 되묻기/저의확인/목표환기 중 상황에 맞게. 불쾌한 감정으로.", violations)
			d.MainEmotion = "불쾌"
			d.AudioTags = "[frustrated][sigh]"
			plan.Route = turn.RouteGenerated
			plan.Marker = ""
		default:
			// Tier 0: cheap canned "what?" line, no generation.
			plan.Route = turn.RouteCanned
			plan.Category = scenario.CategoryBoundary
			plan.Marker = turn.MarkerBoundaryPre
		}
		return applyGoalOverride(plan, d)
	}

	// Lingering effect of earlier violations: cosmetic direction for the
	// renderer, never a route change.
	if violations > 0 {
		var aftereffect string
		if violations >= curtAftereffectThreshold {
			aftereffect = "직전에 불쾌한 상황이 있었다. 불쾌하고 사무적인 톤으로. [sigh] [flatly] 활용."
		} else {
			aftereffect = "직전에 당황스러운 상황이 있었다. 약간 머뭇거리는 톤으로. [hesitates] [pause] 활용."
		}
		d.Direction = prependDirection(aftereffect, d.Direction)
	}

	if plan.Route == turn.RouteCanned {
		plan.Marker = turn.CannedMarker(plan.Category)
	}
	return applyGoalOverride(plan, d)
}

// applyGoalOverride rewrites the plan when the classifier reported the
// conversation goal as achieved: the NPC must deliver a closing line, so
// even a canned route is promoted to generated.
func applyGoalOverride(plan responsePlan, d *turn.Decision) responsePlan {
	if !bool(d.GoalAchieved) || plan.IsExit {
		return plan
	}

	d.Route = turn.RouteGenerated
	d.Direction = prependDirection("대화 목표가 달성되었다. 자연스러운 마무리 인사를 하라. NPC 성격에 맞게 따뜻하게 마무리.", d.Direction)
	if d.AudioTags == "" {
		d.AudioTags = "[warmly]"
	}

	plan.Route = turn.RouteGenerated
	plan.Marker = turn.MarkerGoalAchieved
	plan.GoalAchieved = true
	return plan
}

func prependDirection(prefix, direction string) string {
	if direction == "" {
		return prefix
	}
	return prefix + " " + direction
}
