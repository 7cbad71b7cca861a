package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// Session is the persisted state the engine needs re-supplied each turn.
// Rubric is nil until the first evaluation and after a reset.
type Session struct {
	ID              uuid.UUID      `json:"id"`
	Focus           signal.Focus   `json:"focus"`
	Phase           signal.Phase   `json:"phase"`
	Rubric          *signal.Rubric `json:"rubric,omitempty"`
	SuggestionCount int            `json:"suggestionCount"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// CreateSession starts a session in the phase matching focus.
func (s *Store) CreateSession(ctx context.Context, focus signal.Focus) (*Session, error) {
	if focus == "" {
		focus = signal.FocusRapport
	}
	p := signal.PhaseForFocus(focus)

	sess := &Session{ID: uuid.New(), Focus: focus, Phase: p}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO wayfinder_sessions (id, focus, phase)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`,
		sess.ID, string(focus), p.String(),
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	var (
		sess   Session
		focus  string
		phase  string
		rubric []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, focus, phase, rubric, suggestion_count, created_at, updated_at
		FROM wayfinder_sessions
		WHERE id = $1`,
		id,
	).Scan(&sess.ID, &focus, &phase, &rubric, &sess.SuggestionCount, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	sess.Focus = signal.Focus(focus)
	if sess.Phase, err = signal.ParsePhase(phase); err != nil {
		sess.Phase = signal.PhaseForFocus(sess.Focus)
	}
	if len(rubric) > 0 {
		var r signal.Rubric
		if err := json.Unmarshal(rubric, &r); err != nil {
			return nil, fmt.Errorf("decode rubric: %w", err)
		}
		sess.Rubric = &r
	}
	return &sess, nil
}

// SavePhase moves the session to p and leaves the stored rubric alone.
func (s *Store) SavePhase(ctx context.Context, id uuid.UUID, p signal.Phase) error {
	return s.updateSession(ctx, `
		UPDATE wayfinder_sessions
		SET phase = $2, focus = $3, updated_at = now()
		WHERE id = $1`,
		id, p.String(), string(signal.FocusForPhase(p)),
	)
}

func (s *Store) SetSuggestionCount(ctx context.Context, id uuid.UUID, n int) error {
	if n < 0 {
		n = 0
	}
	return s.updateSession(ctx, `
		UPDATE wayfinder_sessions SET suggestion_count = $2, updated_at = now()
		WHERE id = $1`,
		id, n,
	)
}

// ResetRubric forgets the stored rubric so the next evaluation scores from
// scratch without hysteresis.
func (s *Store) ResetRubric(ctx context.Context, id uuid.UUID) error {
	return s.updateSession(ctx, `
		UPDATE wayfinder_sessions SET rubric = NULL, updated_at = now()
		WHERE id = $1`,
		id,
	)
}

func (s *Store) updateSession(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
