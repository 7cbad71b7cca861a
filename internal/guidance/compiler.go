// Package guidance compiles the phase, rubric and card flags into the
// directive block handed to the reply generator. Compile is deterministic and
// idempotent by content: a directive already present in the base guidance is
// never appended a second time.
package guidance

import (
	"strings"
	"time"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// Input is everything the compiler reads.
type Input struct {
	Phase           signal.Phase
	Rubric          *signal.Rubric
	BaseGuidance    []string
	SeedTeaserCard  bool
	AllowCardPrompt bool
	CardPromptTone  signal.CardPromptTone
}

// Compile returns the directives joined by blank lines, or ok=false when no
// directive applies.
func Compile(in Input) (string, bool) {
	var d directives

	for _, g := range in.BaseGuidance {
		if g = strings.TrimSpace(g); g != "" {
			d.items = append(d.items, g)
		}
	}

	for _, s := range standingDirectives {
		d.appendIfAbsent(s)
	}

	if tip, ok := phaseTips[in.Phase]; ok {
		d.appendIfAbsent(tip)
	}

	if in.Rubric != nil {
		nudges(&d, *in.Rubric)
	}

	cards(&d, in)

	if in.SeedTeaserCard {
		d.appendIfAbsent(directiveTeaser)
	}

	if len(d.items) == 0 {
		return "", false
	}
	return strings.Join(d.items, "\n\n"), true
}

func nudges(d *directives, r signal.Rubric) {
	if r.EngagementStyle == signal.EngagementBlocked {
		d.appendIfAbsent(directiveLowEngagement)
	}
	if !r.InsightCoverage.Aptitudes {
		d.appendIfAbsent(directiveNameStrength)
	}
	if r.ExplicitIdeasRequest || r.ReadinessBias == signal.BiasSeekingOptions {
		d.appendIfAbsent(directiveExperiments)
	}
	if r.ReadinessBias == signal.BiasDeciding {
		d.appendIfAbsent(directiveFirmUpNextStep)
	}
}

// cards gates suggestion-card language. Without a rubric the conservative
// snapshot is used, so cards are never revealed on missing evidence.
func cards(d *directives, in Input) {
	r := signal.ConservativeRubric(time.Time{})
	if in.Rubric != nil {
		r = *in.Rubric
	}
	ready := r.CardReadiness.Status == signal.CardReady
	gaps := r.InsightCoverage.Gaps()

	switch {
	case !in.AllowCardPrompt:
		if ready {
			d.appendIfAbsent(directiveNoCardsYet)
			return
		}
		gapFollowUps(d, gaps)
	case in.CardPromptTone == signal.TonePromptFallback && !ready:
		d.appendIfAbsent(directiveRoughSketch)
		d.appendIfAbsent(directiveNoCardTitles)
		d.appendIfAbsent(directiveScannableShape)
		gapFollowUps(d, gaps)
	case ready:
		d.appendIfAbsent(directiveCardsReady)
		d.appendIfAbsent(directiveNoCardTitles)
		d.appendIfAbsent(directiveScannableShape)
	default:
		gapFollowUps(d, gaps)
	}
}

func gapFollowUps(d *directives, gaps []signal.CoverageCategory) {
	for _, gap := range gaps {
		if p, ok := gapPrompts[gap]; ok {
			d.appendIfAbsent(p)
		}
	}
}

// directives is an ordered list with content-based deduplication.
type directives struct {
	items []string
}

// appendIfAbsent adds s unless an existing directive already contains it,
// compared case-insensitively.
func (d *directives) appendIfAbsent(s string) {
	needle := strings.ToLower(strings.TrimSpace(s))
	if needle == "" {
		return
	}
	for _, existing := range d.items {
		if strings.Contains(strings.ToLower(existing), needle) {
			return
		}
	}
	d.items = append(d.items, s)
}
