// Package signal holds the value types shared by the rubric scorer, the
// phase advisor and the instruction compiler. Nothing here has behavior
// beyond parsing and ordering helpers.
package signal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who spoke a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the transcript. Slices of turns are chronological.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// InsightKind is the type of an atomic fact inferred about the user.
type InsightKind string

const (
	KindInterest    InsightKind = "interest"
	KindStrength    InsightKind = "strength"
	KindConstraint  InsightKind = "constraint"
	KindGoal        InsightKind = "goal"
	KindFrustration InsightKind = "frustration"
	KindHope        InsightKind = "hope"
	KindBoundary    InsightKind = "boundary"
	KindHighlight   InsightKind = "highlight"
)

// Valid reports whether k is one of the known insight kinds.
func (k InsightKind) Valid() bool {
	switch k {
	case KindInterest, KindStrength, KindConstraint, KindGoal,
		KindFrustration, KindHope, KindBoundary, KindHighlight:
		return true
	default:
		return false
	}
}

// Insight is one inferred fact, e.g. {strength, "explaining things simply"}.
type Insight struct {
	Kind  InsightKind `json:"kind"`
	Value string      `json:"value"`
}

// Votes maps a suggestion id to -1, 0 or 1. A missing key means no vote.
type Votes map[string]int

// EngagementStyle describes how the user is showing up in the conversation.
type EngagementStyle string

const (
	EngagementLeaningIn EngagementStyle = "leaning-in"
	EngagementNeutral   EngagementStyle = "neutral"
	EngagementBlocked   EngagementStyle = "blocked"
)

// EnergyLevel is derived from reply length and frequency.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// ReadinessBias captures whether the user wants to explore, see options or decide.
type ReadinessBias string

const (
	BiasExploring      ReadinessBias = "exploring"
	BiasSeekingOptions ReadinessBias = "seeking-options"
	BiasDeciding       ReadinessBias = "deciding"
)

// CardStatus is the three-level judgment of whether tailored suggestions can be shown.
type CardStatus string

const (
	CardNotReady CardStatus = "not-ready"
	CardNear     CardStatus = "near"
	CardReady    CardStatus = "ready"
)

// CardReadiness wraps the status so the wire shape matches {"status": "..."}.
type CardReadiness struct {
	Status CardStatus `json:"status"`
}

// CardPromptTone selects how suggestion cards are framed to the user.
type CardPromptTone string

const (
	TonePromptNormal   CardPromptTone = "normal"
	TonePromptFallback CardPromptTone = "fallback"
)

// ParseCardPromptTone maps unknown input to the normal tone.
func ParseCardPromptTone(s string) CardPromptTone {
	if CardPromptTone(s) == TonePromptFallback {
		return TonePromptFallback
	}
	return TonePromptNormal
}

// Rubric is a turn-indexed snapshot of behavioral signals. Producers return a
// new value every call; a Rubric is never mutated after it is built.
type Rubric struct {
	EngagementStyle      EngagementStyle    `json:"engagementStyle"`
	ContextDepth         int                `json:"contextDepth"`
	EnergyLevel          EnergyLevel        `json:"energyLevel"`
	ReadinessBias        ReadinessBias      `json:"readinessBias"`
	ExplicitIdeasRequest bool               `json:"explicitIdeasRequest"`
	InsightCoverage      InsightCoverage    `json:"insightCoverage"`
	InsightGaps          []CoverageCategory `json:"insightGaps"`
	CardReadiness        CardReadiness      `json:"cardReadiness"`
	LastUpdatedAt        time.Time          `json:"lastUpdatedAt"`
}

// ConservativeRubric is the fail-closed snapshot used for empty or missing input.
func ConservativeRubric(now time.Time) Rubric {
	var cov InsightCoverage
	return Rubric{
		EngagementStyle: EngagementBlocked,
		EnergyLevel:     EnergyLow,
		ReadinessBias:   BiasExploring,
		InsightCoverage: cov,
		InsightGaps:     cov.Gaps(),
		CardReadiness:   CardReadiness{Status: CardNotReady},
		LastUpdatedAt:   now,
	}
}

// CoverageCategory is one of the four signal families a suggestion needs.
type CoverageCategory string

const (
	CoverageInterests   CoverageCategory = "interests"
	CoverageAptitudes   CoverageCategory = "aptitudes"
	CoverageGoals       CoverageCategory = "goals"
	CoverageConstraints CoverageCategory = "constraints"
)

// CoverageCategories lists the categories in their canonical order.
var CoverageCategories = []CoverageCategory{
	CoverageInterests, CoverageAptitudes, CoverageGoals, CoverageConstraints,
}

// InsightCoverage records which categories have at least one supporting insight.
type InsightCoverage struct {
	Interests   bool `json:"interests"`
	Aptitudes   bool `json:"aptitudes"`
	Goals       bool `json:"goals"`
	Constraints bool `json:"constraints"`
}

// Has reports coverage for a single category.
func (c InsightCoverage) Has(cat CoverageCategory) bool {
	switch cat {
	case CoverageInterests:
		return c.Interests
	case CoverageAptitudes:
		return c.Aptitudes
	case CoverageGoals:
		return c.Goals
	case CoverageConstraints:
		return c.Constraints
	default:
		return false
	}
}

// Count returns how many categories are covered.
func (c InsightCoverage) Count() int {
	n := 0
	for _, cat := range CoverageCategories {
		if c.Has(cat) {
			n++
		}
	}
	return n
}

// Gaps returns the uncovered categories in canonical order. The result is
// never nil so it serializes as [] rather than null.
func (c InsightCoverage) Gaps() []CoverageCategory {
	gaps := []CoverageCategory{}
	for _, cat := range CoverageCategories {
		if !c.Has(cat) {
			gaps = append(gaps, cat)
		}
	}
	return gaps
}

// Phase is the position in the five-stage conversational funnel.
type Phase int

const (
	PhaseWarmup Phase = iota
	PhaseStoryMining
	PhasePatternMapping
	PhaseOptionSeeding
	PhaseCommitment
)

var phaseNames = [...]string{
	PhaseWarmup:         "warmup",
	PhaseStoryMining:    "story-mining",
	PhasePatternMapping: "pattern-mapping",
	PhaseOptionSeeding:  "option-seeding",
	PhaseCommitment:     "commitment",
}

func (p Phase) String() string {
	if p < PhaseWarmup || p > PhaseCommitment {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Valid reports whether p is inside the funnel.
func (p Phase) Valid() bool {
	return p >= PhaseWarmup && p <= PhaseCommitment
}

// Next returns the following phase, or p itself at the end of the funnel.
func (p Phase) Next() Phase {
	if p >= PhaseCommitment {
		return PhaseCommitment
	}
	return p + 1
}

// Prev returns the preceding phase, or p itself at the start of the funnel.
func (p Phase) Prev() Phase {
	if p <= PhaseWarmup {
		return PhaseWarmup
	}
	return p - 1
}

// ParsePhase accepts the kebab-case phase names.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return PhaseWarmup, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Focus is the caller-facing name for a phase, used when no phase is supplied.
type Focus string

const (
	FocusRapport  Focus = "rapport"
	FocusStory    Focus = "story"
	FocusPattern  Focus = "pattern"
	FocusIdeation Focus = "ideation"
	FocusDecision Focus = "decision"
)

func (f Focus) Valid() bool {
	switch f {
	case FocusRapport, FocusStory, FocusPattern, FocusIdeation, FocusDecision:
		return true
	}
	return false
}

// PhaseForFocus maps a focus onto its phase. Unknown focus values start at warmup.
func PhaseForFocus(f Focus) Phase {
	switch f {
	case FocusStory:
		return PhaseStoryMining
	case FocusPattern:
		return PhasePatternMapping
	case FocusIdeation:
		return PhaseOptionSeeding
	case FocusDecision:
		return PhaseCommitment
	default:
		return PhaseWarmup
	}
}

// FocusForPhase is the inverse of PhaseForFocus.
func FocusForPhase(p Phase) Focus {
	switch p {
	case PhaseStoryMining:
		return FocusStory
	case PhasePatternMapping:
		return FocusPattern
	case PhaseOptionSeeding:
		return FocusIdeation
	case PhaseCommitment:
		return FocusDecision
	default:
		return FocusRapport
	}
}

// Clone returns a copy of r that shares no slices with it.
func (r Rubric) Clone() Rubric {
	out := r
	out.InsightGaps = append([]CoverageCategory{}, r.InsightGaps...)
	return out
}

// rubricJSON guards the gaps invariant on decode: stored gaps are ignored and
// rebuilt from coverage.
type rubricJSON Rubric

func (r *Rubric) UnmarshalJSON(b []byte) error {
	var raw rubricJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Rubric(raw)
	r.InsightGaps = r.InsightCoverage.Gaps()
	return nil
}
