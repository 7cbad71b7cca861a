package guidance

import "github.com/MikeSquared-Agency/wayfinder/internal/signal"

// Standing style directives apply to every turn.
var standingDirectives = []string{
	"Keep replies short and conversational: a few sentences, then at most one question.",
	"Reflect the user's own words back before offering any interpretation of them.",
	"Stay curious and non-judgmental; never tell the user what they should want.",
}

var phaseTips = map[signal.Phase]string{
	signal.PhaseWarmup:         "Phase tip (warmup): build rapport with a light, open question about what brought them here today.",
	signal.PhaseStoryMining:    "Phase tip (story-mining): ask for one specific, recent story and follow the details that carry energy.",
	signal.PhasePatternMapping: "Phase tip (pattern-mapping): name a pattern you see across their stories and check whether it rings true.",
	signal.PhaseOptionSeeding:  "Phase tip (option-seeding): offer a few concrete directions grounded in what they shared, each with a reason it fits.",
	signal.PhaseCommitment:     "Phase tip (commitment): help them pick one direction and agree on a small first step they can take this week.",
}

const (
	directiveLowEngagement  = "Engagement is low: use a lightweight prompt such as an either/or choice or a one-word answer instead of another open question."
	directiveNameStrength   = "No strengths are confirmed yet: name one strength you infer from their story explicitly and ask whether it fits."
	directiveExperiments    = "They want ideas: frame every option as a small, low-cost experiment they could try, not a life decision."
	directiveFirmUpNextStep = "They are leaning toward a choice: help firm up concrete next steps with a time frame rather than opening new options."

	directiveNoCardsYet = "Do not promise or mention suggestion cards yet; keep the focus on the conversation."

	directiveRoughSketch    = "Share only a rough sketch of possible directions and say plainly that it will sharpen as you learn more."
	directiveCardsReady     = "Tailored suggestion cards are ready: preview them in one or two sentences and invite the user to look."
	directiveNoCardTitles   = "Do not enumerate card titles in your reply."
	directiveScannableShape = "Use a short, scannable bullet structure rather than long paragraphs."

	directiveTeaser = "Offer exactly one adjacent or unexpected teaser idea as a low-stakes sketch, then ask what feels off about it."
)

var gapPrompts = map[signal.CoverageCategory]string{
	signal.CoverageInterests:   "Follow up on interests: ask what they lose track of time doing, or what they read or watch by choice.",
	signal.CoverageAptitudes:   "Follow up on strengths: ask about a moment they felt proud of, or what people usually come to them for.",
	signal.CoverageGoals:       "Follow up on goals: ask what they would want to be different a year from now.",
	signal.CoverageConstraints: "Follow up on constraints: ask what is non-negotiable right now, such as time, money, location or obligations.",
}
