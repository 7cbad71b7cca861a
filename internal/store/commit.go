package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// TurnCommit is everything one handled dialogue turn writes.
type TurnCommit struct {
	User     signal.Turn
	Reply    signal.Turn
	Insights []signal.Insight
	Phase    signal.Phase
	Rubric   signal.Rubric
}

// CommitTurn writes a handled turn in one transaction: both dialogue turns,
// the new insights and the decision. Nothing is written if any step fails.
// It returns how many insights were new.
func (s *Store) CommitTurn(ctx context.Context, id uuid.UUID, c TurnCommit) (int, error) {
	raw, err := json.Marshal(c.Rubric)
	if err != nil {
		return 0, fmt.Errorf("encode rubric: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE wayfinder_sessions
		SET phase = $2, focus = $3, rubric = $4, updated_at = now()
		WHERE id = $1`,
		id, c.Phase.String(), string(signal.FocusForPhase(c.Phase)), raw,
	)
	if err != nil {
		return 0, fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	if err := insertTurns(ctx, tx, id, []signal.Turn{c.User, c.Reply}); err != nil {
		return 0, err
	}
	added, err := insertInsights(ctx, tx, id, c.Insights)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}
