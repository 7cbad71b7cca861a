// Package phase decides where in the five-stage funnel the conversation sits.
// The current phase is always supplied by the caller; nothing is remembered
// between calls.
package phase

import "github.com/MikeSquared-Agency/wayfinder/internal/signal"

// Reason tags explain which rule produced a Decision.
const (
	ReasonUserTurn        = "user-turn"
	ReasonStoryDepth      = "story-depth"
	ReasonStalledTeaser   = "stalled-teaser"
	ReasonIdeasRequested  = "ideas-requested"
	ReasonFavoriteChosen  = "favorite-chosen"
	ReasonStalledDecision = "stalled-decision"
	ReasonHold            = "hold"
)

// Input is the advisor's view of one turn.
type Input struct {
	Current         signal.Phase
	Turns           []signal.Turn
	Insights        []signal.Insight
	SuggestionCount int
	VoteCount       int
	// Rubric may be nil; without it only the warmup rule can fire.
	Rubric *signal.Rubric
}

// Decision is the advisor's output.
type Decision struct {
	Next           signal.Phase `json:"nextPhase"`
	SeedTeaserCard bool         `json:"shouldSeedTeaserCard"`
	Reason         string       `json:"reason"`
}

// Advise evaluates the transition rules in priority order; the first match
// wins. Advancement is always a single step forward. The one regression,
// a stalled commitment, lands on pattern-mapping so context can be regathered
// before options are offered again.
func Advise(in Input) Decision {
	current := in.Current
	if !current.Valid() {
		current = signal.PhaseWarmup
	}
	hold := Decision{Next: current, Reason: ReasonHold}
	r := in.Rubric

	switch current {
	case signal.PhaseWarmup:
		if hasUserTurn(in.Turns) {
			return Decision{Next: signal.PhaseStoryMining, Reason: ReasonUserTurn}
		}
		return hold

	case signal.PhaseStoryMining:
		if r == nil {
			return hold
		}
		if hasInterestAndStrength(in.Insights, r) && r.ContextDepth >= 2 {
			return Decision{Next: signal.PhasePatternMapping, Reason: ReasonStoryDepth}
		}
		if r.EngagementStyle == signal.EngagementBlocked {
			return Decision{Next: signal.PhaseStoryMining, SeedTeaserCard: true, Reason: ReasonStalledTeaser}
		}
		return hold

	case signal.PhasePatternMapping:
		if r == nil {
			return hold
		}
		if r.ExplicitIdeasRequest || r.ReadinessBias == signal.BiasSeekingOptions {
			return Decision{Next: signal.PhaseOptionSeeding, Reason: ReasonIdeasRequested}
		}
		return hold

	case signal.PhaseOptionSeeding:
		if r == nil {
			return hold
		}
		if r.ReadinessBias == signal.BiasDeciding && in.VoteCount >= 1 && in.SuggestionCount >= 1 {
			return Decision{Next: signal.PhaseCommitment, Reason: ReasonFavoriteChosen}
		}
		return hold

	case signal.PhaseCommitment:
		if r == nil {
			return hold
		}
		if r.EngagementStyle == signal.EngagementBlocked {
			return Decision{Next: signal.PhasePatternMapping, Reason: ReasonStalledDecision}
		}
		return hold
	}

	return hold
}

func hasUserTurn(turns []signal.Turn) bool {
	for _, t := range turns {
		if t.Role == signal.RoleUser {
			return true
		}
	}
	return false
}

// hasInterestAndStrength accepts evidence from either the raw insights or the
// rubric's coverage, since callers may pass one without the other.
func hasInterestAndStrength(insights []signal.Insight, r *signal.Rubric) bool {
	interest := r.InsightCoverage.Interests
	strength := r.InsightCoverage.Aptitudes
	for _, in := range insights {
		switch in.Kind {
		case signal.KindInterest:
			interest = true
		case signal.KindStrength:
			strength = true
		}
	}
	return interest && strength
}
