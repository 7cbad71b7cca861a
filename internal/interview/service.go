// Package interview drives a stored interview session one dialogue turn at a
// time. It loads the session state, runs the decision engine, asks the LLM
// for the interviewer's reply and announces what changed on the event bus.
package interview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfinder/internal/anthropic"
	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
	"github.com/MikeSquared-Agency/wayfinder/internal/hermes"
	"github.com/MikeSquared-Agency/wayfinder/internal/sanitize"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
	"github.com/MikeSquared-Agency/wayfinder/internal/store"
)

// ErrEmptyTurn is returned when the user text is blank.
var ErrEmptyTurn = errors.New("turn text is empty")

type SessionStore interface {
	CreateSession(ctx context.Context, focus signal.Focus) (*store.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*store.Session, error)
	SavePhase(ctx context.Context, id uuid.UUID, p signal.Phase) error
	CommitTurn(ctx context.Context, id uuid.UUID, c store.TurnCommit) (int, error)
	AppendTurns(ctx context.Context, id uuid.UUID, turns []signal.Turn) error
	ListTurns(ctx context.Context, id uuid.UUID) ([]signal.Turn, error)
	ListInsights(ctx context.Context, id uuid.UUID) ([]signal.Insight, error)
	SetVote(ctx context.Context, id uuid.UUID, suggestionID string, value int) error
	ListVotes(ctx context.Context, id uuid.UUID) (signal.Votes, error)
	SetSuggestionCount(ctx context.Context, id uuid.UUID, n int) error
	ResetRubric(ctx context.Context, id uuid.UUID) error
}

type Publisher interface {
	Publish(subject string, data any) error
}

// Generator produces the interviewer's reply.
type Generator interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

type InsightExtractor interface {
	Extract(ctx context.Context, turns []signal.Turn, known []signal.Insight) ([]signal.Insight, error)
}

// Service handles dialogue turns. The extractor and publisher are optional.
type Service struct {
	store     SessionStore
	engine    *engine.Engine
	llm       Generator
	extractor InsightExtractor
	publisher Publisher
	logger    *slog.Logger

	// BaseGuidance is prepended to every compiled guidance section.
	BaseGuidance []string
	now          func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sessionLock
}

// sessionLock serializes work on one session. refs counts holders and
// waiters; the entry leaves the map when it drops to zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func New(s SessionStore, eng *engine.Engine, llm Generator, ext InsightExtractor, pub Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		engine:    eng,
		llm:       llm,
		extractor: ext,
		publisher: pub,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		locks:     make(map[uuid.UUID]*sessionLock),
	}
}

// TurnOutcome is what the caller shows for one handled turn.
type TurnOutcome struct {
	SessionID   uuid.UUID     `json:"sessionId"`
	Reply       string        `json:"reply"`
	Decision    engine.Result `json:"decision"`
	NewInsights int           `json:"newInsights"`
}

func (s *Service) StartSession(ctx context.Context, focus signal.Focus) (*store.Session, error) {
	sess, err := s.store.CreateSession(ctx, focus)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session started", "session_id", sess.ID, "phase", sess.Phase.String())
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*store.Session, error) {
	return s.store.GetSession(ctx, id)
}

// HandleTurn evaluates the user's message against the session and returns
// the interviewer's reply. Nothing is stored unless the reply was generated,
// so a failed turn can be retried as is. Turns for the same session are
// handled one at a time.
func (s *Service) HandleTurn(ctx context.Context, id uuid.UUID, text string) (*TurnOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTurn
	}

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	turns, err := s.store.ListTurns(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	userTurn := signal.Turn{Role: signal.RoleUser, Text: text}
	turns = append(turns, userTurn)

	insights, err := s.store.ListInsights(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}

	var fresh []signal.Insight
	if s.extractor != nil {
		fresh, err = s.extractor.Extract(ctx, turns, insights)
		if err != nil {
			// A missed extraction only delays coverage; the turn goes on.
			s.logger.Warn("insight extraction failed", "session_id", id, "error", err)
			fresh = nil
		}
	}
	insights = append(insights, fresh...)

	votes, err := s.store.ListVotes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}

	current := sess.Phase
	res := s.engine.Evaluate(engine.Request{
		Turns:           turns,
		Insights:        insights,
		Votes:           votes,
		SuggestionCount: sess.SuggestionCount,
		PrevRubric:      sess.Rubric,
		Phase:           &current,
		BaseGuidance:    s.BaseGuidance,
		Now:             s.now(),
	})

	reply, err := s.llm.Complete(ctx, SystemPrompt(res), anthropic.MessagesFromTurns(turns), 1024)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("generate reply: %w", anthropic.ErrEmptyResponse)
	}

	added, err := s.store.CommitTurn(ctx, id, store.TurnCommit{
		User:     userTurn,
		Reply:    signal.Turn{Role: signal.RoleAssistant, Text: reply},
		Insights: fresh,
		Phase:    res.Phase,
		Rubric:   res.Rubric,
	})
	if err != nil {
		return nil, fmt.Errorf("commit turn: %w", err)
	}
	s.logDecision(id, res)
	s.announce(id, sess.Rubric, res, insights, added)

	return &TurnOutcome{
		SessionID:   id,
		Reply:       reply,
		Decision:    res,
		NewInsights: added,
	}, nil
}

// Bootstrap evaluates a session from its transcript alone, as a voice
// session does before it connects. Turns, if any, are appended to the
// stored transcript first. Only the phase is stored: the transcript-only
// rubric knows no coverage and must not replace the rubric that the next
// turn merges against.
func (s *Service) Bootstrap(ctx context.Context, id uuid.UUID, turns []signal.Turn) (*engine.Result, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := s.store.AppendTurns(ctx, id, sanitize.Turns(turns)); err != nil {
		return nil, fmt.Errorf("append turns: %w", err)
	}
	all, err := s.store.ListTurns(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	current := sess.Phase
	res := s.engine.Bootstrap(engine.Request{
		Turns:        all,
		Phase:        &current,
		BaseGuidance: s.BaseGuidance,
		Now:          s.now(),
	})

	if res.PhaseChanged() {
		if err := s.store.SavePhase(ctx, id, res.Phase); err != nil {
			return nil, fmt.Errorf("save phase: %w", err)
		}
		s.publish(hermes.SubjectPhaseChanged, phaseChanged(id, res))
	}
	s.logDecision(id, res)
	return &res, nil
}

// RecordVote stores a clamped card vote.
func (s *Service) RecordVote(ctx context.Context, id uuid.UUID, suggestionID string, value int) error {
	suggestionID = strings.TrimSpace(suggestionID)
	if suggestionID == "" {
		return fmt.Errorf("suggestion id is empty")
	}
	if err := s.store.SetVote(ctx, id, suggestionID, sanitize.Vote(value)); err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

// ResetRubric drops the stored rubric so the next turn is scored without
// hysteresis, for when the user starts over.
func (s *Service) ResetRubric(ctx context.Context, id uuid.UUID) error {
	if err := s.store.ResetRubric(ctx, id); err != nil {
		return fmt.Errorf("reset rubric: %w", err)
	}
	s.logger.Info("rubric reset", "session_id", id)
	return nil
}

// HandleVoteCast is the NATS handler for wayfinder.vote.cast.
func (s *Service) HandleVoteCast(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	evt, err := hermes.DecodeVoteCast(data)
	if err != nil {
		s.logger.Error("failed to parse vote event", "subject", subject, "error", err)
		return
	}
	id, err := uuid.Parse(evt.SessionID)
	if err != nil {
		s.logger.Error("invalid session id", "session_id", evt.SessionID, "error", err)
		return
	}
	if err := s.RecordVote(ctx, id, evt.SuggestionID, evt.Value); err != nil {
		s.logger.Error("failed to record vote", "session_id", id, "suggestion_id", evt.SuggestionID, "error", err)
		return
	}
	s.logger.Debug("vote recorded", "session_id", id, "suggestion_id", evt.SuggestionID, "value", sanitize.Vote(evt.Value))
}

// HandleSuggestionsGenerated is the NATS handler for wayfinder.suggestions.generated.
func (s *Service) HandleSuggestionsGenerated(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	evt, err := hermes.DecodeSuggestionsGenerated(data)
	if err != nil {
		s.logger.Error("failed to parse suggestions event", "subject", subject, "error", err)
		return
	}
	id, err := uuid.Parse(evt.SessionID)
	if err != nil {
		s.logger.Error("invalid session id", "session_id", evt.SessionID, "error", err)
		return
	}
	if err := s.store.SetSuggestionCount(ctx, id, evt.Count); err != nil {
		s.logger.Error("failed to update suggestion count", "session_id", id, "error", err)
		return
	}
	s.logger.Info("suggestion count updated", "session_id", id, "count", evt.Count)
}

func (s *Service) lock(id uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *Service) logDecision(id uuid.UUID, res engine.Result) {
	s.logger.Info("turn evaluated",
		"session_id", id,
		"phase", res.PreviousPhase.String(),
		"next_phase", res.Phase.String(),
		"reason", res.Reason,
		"card_status", string(res.Rubric.CardReadiness.Status),
		"engagement", string(res.Rubric.EngagementStyle),
		"teaser", res.SeedTeaserCard,
	)
}

// announce publishes the turn's events. Cards-ready fires only on the turn
// readiness first becomes ready.
func (s *Service) announce(id uuid.UUID, prev *signal.Rubric, res engine.Result, insights []signal.Insight, added int) {
	at := s.now()

	if res.PhaseChanged() {
		s.publish(hermes.SubjectPhaseChanged, phaseChanged(id, res))
	}

	wasReady := prev != nil && prev.CardReadiness.Status == signal.CardReady
	if res.ShouldGenerateCards() && !wasReady {
		s.publish(hermes.SubjectCardsReady, hermes.CardsReadyEvent{
			SessionID:    id.String(),
			Gaps:         res.Rubric.InsightGaps,
			ContextDepth: res.Rubric.ContextDepth,
			Insights:     insights,
			At:           at,
		})
	}

	s.publish(hermes.SubjectTurnCompleted, hermes.TurnCompletedEvent{
		SessionID:      id.String(),
		Phase:          res.Phase,
		CardStatus:     res.Rubric.CardReadiness.Status,
		Engagement:     res.Rubric.EngagementStyle,
		SeedTeaserCard: res.SeedTeaserCard,
		NewInsights:    added,
		At:             at,
	})
}

func (s *Service) publish(subject string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		s.logger.Error("failed to publish", "subject", subject, "error", err)
	}
}

func phaseChanged(id uuid.UUID, res engine.Result) hermes.PhaseChangedEvent {
	return hermes.PhaseChangedEvent{
		SessionID: id.String(),
		From:      res.PreviousPhase,
		To:        res.Phase,
		Reason:    res.Reason,
		At:        res.Rubric.LastUpdatedAt,
	}
}
