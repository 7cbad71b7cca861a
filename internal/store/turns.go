package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// AppendTurns adds turns to the end of the transcript, all or none.
func (s *Store) AppendTurns(ctx context.Context, id uuid.UUID, turns []signal.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertTurns(ctx, tx, id, turns); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertTurns(ctx context.Context, tx pgx.Tx, id uuid.UUID, turns []signal.Turn) error {
	for _, turn := range turns {
		if _, err := tx.Exec(ctx, `
			INSERT INTO wayfinder_turns (session_id, role, text)
			VALUES ($1, $2, $3)`,
			id, string(turn.Role), turn.Text,
		); err != nil {
			return fmt.Errorf("insert turn: %w", notFound(err))
		}
	}
	return nil
}

// ListTurns returns the transcript in the order turns were appended.
func (s *Store) ListTurns(ctx context.Context, id uuid.UUID) ([]signal.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, text FROM wayfinder_turns
		WHERE session_id = $1
		ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []signal.Turn
	for rows.Next() {
		var role, text string
		if err := rows.Scan(&role, &text); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, signal.Turn{Role: signal.Role(role), Text: text})
	}
	return turns, rows.Err()
}
