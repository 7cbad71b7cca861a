// Package rubric computes the per-turn ConversationRubric from the transcript,
// accumulated insights and suggestion votes. Every function here is pure: the
// previous rubric is threaded in by the caller, never cached.
package rubric

import (
	"strings"
	"time"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// Input is everything the scorer reads for one turn.
type Input struct {
	Turns           []signal.Turn
	Insights        []signal.Insight
	Votes           signal.Votes
	SuggestionCount int
	Prev            *signal.Rubric
	// Now stamps LastUpdatedAt. Zero means time.Now().
	Now time.Time
}

// Scorer applies a fixed set of Params. It holds no per-conversation state and
// is safe for concurrent use.
type Scorer struct {
	params Params
}

// NewScorer returns a scorer using p, with zero fields taken from DefaultParams.
func NewScorer(p Params) *Scorer {
	return &Scorer{params: p.withDefaults()}
}

// Params returns the effective thresholds.
func (s *Scorer) Params() Params {
	return s.params
}

var defaultScorer = NewScorer(DefaultParams())

// Score computes a rubric with the default thresholds.
func Score(in Input) signal.Rubric {
	return defaultScorer.Score(in)
}

// InferFromTranscript computes a rubric from turns alone with the default thresholds.
func InferFromTranscript(turns []signal.Turn, now time.Time) signal.Rubric {
	return defaultScorer.InferFromTranscript(turns, now)
}

// Score builds a fresh rubric and, when in.Prev is set, merges it with the
// previous snapshot for readiness hysteresis.
func (s *Scorer) Score(in Input) signal.Rubric {
	now := stamp(in.Now)
	b := s.behavior(in.Turns)

	coverage := Coverage(in.Insights)
	fresh := signal.Rubric{
		EngagementStyle:      b.engagement,
		ContextDepth:         b.depth,
		EnergyLevel:          b.energy,
		ReadinessBias:        bias(b.ideasRequested, in.Votes),
		ExplicitIdeasRequest: b.ideasRequested,
		InsightCoverage:      coverage,
		InsightGaps:          coverage.Gaps(),
		CardReadiness:        signal.CardReadiness{Status: Readiness(coverage, b.depth)},
		LastUpdatedAt:        now,
	}

	if in.Prev == nil {
		return fresh
	}
	return Merge(in.Prev, fresh)
}

// InferFromTranscript is the light path for callers that only have turns,
// such as a voice session starting before any insight exists. Coverage is
// all false, so readiness is never ready.
func (s *Scorer) InferFromTranscript(turns []signal.Turn, now time.Time) signal.Rubric {
	b := s.behavior(turns)

	var coverage signal.InsightCoverage
	return signal.Rubric{
		EngagementStyle:      b.engagement,
		ContextDepth:         b.depth,
		EnergyLevel:          b.energy,
		ReadinessBias:        bias(b.ideasRequested, nil),
		ExplicitIdeasRequest: b.ideasRequested,
		InsightCoverage:      coverage,
		InsightGaps:          coverage.Gaps(),
		CardReadiness:        signal.CardReadiness{Status: signal.CardNotReady},
		LastUpdatedAt:        stamp(now),
	}
}

// Coverage maps insight kinds onto the four coverage categories. Kinds with no
// category (frustration, highlight) and unknown kinds are ignored.
func Coverage(insights []signal.Insight) signal.InsightCoverage {
	var c signal.InsightCoverage
	for _, in := range insights {
		if strings.TrimSpace(in.Value) == "" {
			continue
		}
		switch in.Kind {
		case signal.KindInterest:
			c.Interests = true
		case signal.KindStrength:
			c.Aptitudes = true
		case signal.KindGoal, signal.KindHope:
			c.Goals = true
		case signal.KindConstraint, signal.KindBoundary:
			c.Constraints = true
		}
	}
	return c
}

// Readiness applies the card-readiness rule: ready needs three covered
// categories and depth of at least two; near needs exactly two.
func Readiness(c signal.InsightCoverage, depth int) signal.CardStatus {
	covered := c.Count()
	switch {
	case covered >= 3 && depth >= 2:
		return signal.CardReady
	case covered == 2:
		return signal.CardNear
	default:
		return signal.CardNotReady
	}
}

type behavior struct {
	engagement     signal.EngagementStyle
	energy         signal.EnergyLevel
	depth          int
	ideasRequested bool
}

func (s *Scorer) behavior(turns []signal.Turn) behavior {
	p := s.params
	b := behavior{
		engagement: signal.EngagementBlocked,
		energy:     signal.EnergyLow,
	}

	start := len(turns) - p.RecentWindow
	if start < 0 {
		start = 0
	}

	var (
		userTurns     int
		substantive   int
		followThrough bool
		totalRunes    int
		allTerse      = true
		seen          = make(map[string]bool)
	)
	for i := start; i < len(turns); i++ {
		t := turns[i]
		if t.Role != signal.RoleUser {
			continue
		}
		userTurns++

		n := runeLen(t.Text)
		totalRunes += n
		if n >= p.TerseMaxRunes {
			allTerse = false
		}
		if n >= p.SubstantiveMinRunes {
			substantive++
			key := strings.ToLower(strings.TrimSpace(t.Text))
			if !seen[key] {
				seen[key] = true
				b.depth++
			}
		}
		if i > 0 && turns[i-1].Role == signal.RoleAssistant && answersQuestion(turns[i-1].Text, t.Text) {
			followThrough = true
		}
	}
	if b.depth > p.MaxContextDepth {
		b.depth = p.MaxContextDepth
	}

	b.ideasRequested = s.ideasRequested(turns)

	if userTurns == 0 {
		return b
	}

	ratio := float64(substantive) / float64(userTurns)
	switch {
	case ratio < p.LowEngagementRatio:
		b.engagement = signal.EngagementBlocked
	case ratio >= p.HighEngagementRatio && followThrough:
		b.engagement = signal.EngagementLeaningIn
	default:
		b.engagement = signal.EngagementNeutral
	}

	mean := totalRunes / userTurns
	switch {
	case allTerse:
		b.energy = signal.EnergyLow
	case userTurns >= p.HighEnergyMinTurns && mean >= p.HighEnergyMeanRunes:
		b.energy = signal.EnergyHigh
	default:
		b.energy = signal.EnergyMedium
	}

	return b
}

// ideasRequested checks the latest user turns across the whole transcript.
func (s *Scorer) ideasRequested(turns []signal.Turn) bool {
	checked := 0
	for i := len(turns) - 1; i >= 0 && checked < s.params.IdeaLookback; i-- {
		if turns[i].Role != signal.RoleUser {
			continue
		}
		checked++
		if asksForIdeas(turns[i].Text) {
			return true
		}
	}
	return false
}

func bias(ideasRequested bool, votes signal.Votes) signal.ReadinessBias {
	var positive, cast int
	for _, v := range votes {
		if v > 0 {
			positive++
		}
		if v != 0 {
			cast++
		}
	}
	switch {
	case positive > 0 && !ideasRequested:
		return signal.BiasDeciding
	case ideasRequested || cast > 0:
		return signal.BiasSeekingOptions
	default:
		return signal.BiasExploring
	}
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
