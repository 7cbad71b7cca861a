// Package engine runs the conversation-stage decision pipeline for one turn:
// sanitize, score the rubric, advise the phase, compile guidance. It is the
// single entry point the HTTP layer, the interview service and the CLI share.
package engine

import (
	"time"

	"github.com/MikeSquared-Agency/wayfinder/internal/guidance"
	"github.com/MikeSquared-Agency/wayfinder/internal/phase"
	"github.com/MikeSquared-Agency/wayfinder/internal/rubric"
	"github.com/MikeSquared-Agency/wayfinder/internal/sanitize"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// Request carries everything a caller knows about the conversation. State is
// always re-supplied; the engine keeps none. Phase wins over Focus when both
// are set.
type Request struct {
	Turns           []signal.Turn         `json:"turns"`
	Insights        []signal.Insight      `json:"insights,omitempty"`
	Votes           map[string]int        `json:"votes,omitempty"`
	SuggestionCount int                   `json:"suggestionCount,omitempty"`
	PrevRubric      *signal.Rubric        `json:"prevRubric,omitempty"`
	Phase           *signal.Phase         `json:"phase,omitempty"`
	Focus           signal.Focus          `json:"focus,omitempty"`
	BaseGuidance    []string              `json:"baseGuidance,omitempty"`
	AllowCardPrompt *bool                 `json:"allowCardPrompt,omitempty"`
	CardPromptTone  signal.CardPromptTone `json:"cardPromptTone,omitempty"`
	Now             time.Time             `json:"-"`
}

// Result is the engine's decision for the turn.
type Result struct {
	Rubric         signal.Rubric `json:"rubric"`
	Phase          signal.Phase  `json:"phase"`
	PreviousPhase  signal.Phase  `json:"previousPhase"`
	SeedTeaserCard bool          `json:"shouldSeedTeaserCard"`
	Reason         string        `json:"reason"`
	Guidance       string        `json:"guidance,omitempty"`
}

// PhaseChanged reports whether the advisor moved the conversation.
func (r Result) PhaseChanged() bool {
	return r.Phase != r.PreviousPhase
}

// ShouldGenerateCards is what the suggestion generator reads before
// synthesizing new cards for the turn.
func (r Result) ShouldGenerateCards() bool {
	return r.Rubric.CardReadiness.Status == signal.CardReady
}

// Defaults apply when a request leaves the card flags unset.
type Defaults struct {
	AllowCardPrompt bool
	CardPromptTone  signal.CardPromptTone
}

// Engine binds a scorer and card defaults. It is safe for concurrent use.
type Engine struct {
	scorer   *rubric.Scorer
	defaults Defaults
}

// New returns an engine. A nil scorer uses the default thresholds.
func New(scorer *rubric.Scorer, defaults Defaults) *Engine {
	if scorer == nil {
		scorer = rubric.NewScorer(rubric.DefaultParams())
	}
	if defaults.CardPromptTone == "" {
		defaults.CardPromptTone = signal.TonePromptNormal
	}
	return &Engine{scorer: scorer, defaults: defaults}
}

// Evaluate runs the full pipeline: rubric first, then phase, then guidance.
func (e *Engine) Evaluate(req Request) Result {
	turns := sanitize.Turns(req.Turns)
	insights := sanitize.Insights(req.Insights)
	votes := sanitize.Votes(req.Votes)

	r := e.scorer.Score(rubric.Input{
		Turns:           turns,
		Insights:        insights,
		Votes:           votes,
		SuggestionCount: req.SuggestionCount,
		Prev:            req.PrevRubric,
		Now:             req.Now,
	})

	current := e.currentPhase(req)
	d := phase.Advise(phase.Input{
		Current:         current,
		Turns:           turns,
		Insights:        insights,
		SuggestionCount: req.SuggestionCount,
		VoteCount:       sanitize.VoteCount(votes),
		Rubric:          &r,
	})

	return e.result(req, current, r, d)
}

// Bootstrap is the transcript-only path used before a voice session starts,
// when no insights or votes exist yet.
func (e *Engine) Bootstrap(req Request) Result {
	turns := sanitize.Turns(req.Turns)
	r := e.scorer.InferFromTranscript(turns, req.Now)

	current := e.currentPhase(req)
	d := phase.Advise(phase.Input{
		Current: current,
		Turns:   turns,
		Rubric:  &r,
	})

	return e.result(req, current, r, d)
}

func (e *Engine) result(req Request, current signal.Phase, r signal.Rubric, d phase.Decision) Result {
	allow := e.defaults.AllowCardPrompt
	if req.AllowCardPrompt != nil {
		allow = *req.AllowCardPrompt
	}
	tone := e.defaults.CardPromptTone
	if req.CardPromptTone != "" {
		tone = signal.ParseCardPromptTone(string(req.CardPromptTone))
	}

	text, _ := guidance.Compile(guidance.Input{
		Phase:           d.Next,
		Rubric:          &r,
		BaseGuidance:    req.BaseGuidance,
		SeedTeaserCard:  d.SeedTeaserCard,
		AllowCardPrompt: allow,
		CardPromptTone:  tone,
	})

	return Result{
		Rubric:         r,
		Phase:          d.Next,
		PreviousPhase:  current,
		SeedTeaserCard: d.SeedTeaserCard,
		Reason:         d.Reason,
		Guidance:       text,
	}
}

func (e *Engine) currentPhase(req Request) signal.Phase {
	if req.Phase != nil && req.Phase.Valid() {
		return *req.Phase
	}
	return signal.PhaseForFocus(req.Focus)
}
