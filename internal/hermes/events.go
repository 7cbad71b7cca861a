package hermes

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

const (
	// SubjectPhaseChanged fires whenever the advisor moves a session.
	SubjectPhaseChanged = "wayfinder.phase.changed"
	// SubjectCardsReady fires when a session's card readiness becomes ready.
	// The suggestion generator listens here.
	SubjectCardsReady = "wayfinder.cards.ready"
	// SubjectTurnCompleted fires after every handled dialogue turn.
	SubjectTurnCompleted = "wayfinder.turn.completed"

	// SubjectRegistered announces the service on startup.
	SubjectRegistered = "swarm.agent.wayfinder.registered"

	// SubjectVoteCast carries card votes from the UI.
	SubjectVoteCast = "wayfinder.vote.cast"
	// SubjectSuggestionsGenerated reports how many cards the generator produced.
	SubjectSuggestionsGenerated = "wayfinder.suggestions.generated"
)

type PhaseChangedEvent struct {
	SessionID string       `json:"session_id"`
	From      signal.Phase `json:"from"`
	To        signal.Phase `json:"to"`
	Reason    string       `json:"reason"`
	At        time.Time    `json:"at"`
}

type CardsReadyEvent struct {
	SessionID    string                    `json:"session_id"`
	Gaps         []signal.CoverageCategory `json:"gaps"`
	ContextDepth int                       `json:"context_depth"`
	Insights     []signal.Insight          `json:"insights"`
	At           time.Time                 `json:"at"`
}

type TurnCompletedEvent struct {
	SessionID      string                 `json:"session_id"`
	Phase          signal.Phase           `json:"phase"`
	CardStatus     signal.CardStatus      `json:"card_status"`
	Engagement     signal.EngagementStyle `json:"engagement"`
	SeedTeaserCard bool                   `json:"seed_teaser_card"`
	NewInsights    int                    `json:"new_insights"`
	At             time.Time              `json:"at"`
}

type VoteCastEvent struct {
	SessionID    string `json:"session_id"`
	SuggestionID string `json:"suggestion_id"`
	Value        int    `json:"value"`
}

type SuggestionsGeneratedEvent struct {
	SessionID string `json:"session_id"`
	Count     int    `json:"count"`
}

// DecodeVoteCast parses and checks a vote payload.
func DecodeVoteCast(data []byte) (VoteCastEvent, error) {
	var ev VoteCastEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal vote: %w", err)
	}
	if ev.SessionID == "" || ev.SuggestionID == "" {
		return ev, fmt.Errorf("vote missing session_id or suggestion_id")
	}
	return ev, nil
}

// DecodeSuggestionsGenerated parses and checks a generator report.
func DecodeSuggestionsGenerated(data []byte) (SuggestionsGeneratedEvent, error) {
	var ev SuggestionsGeneratedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("unmarshal suggestions: %w", err)
	}
	if ev.SessionID == "" {
		return ev, fmt.Errorf("suggestions event missing session_id")
	}
	if ev.Count < 0 {
		return ev, fmt.Errorf("suggestions event has negative count %d", ev.Count)
	}
	return ev, nil
}
