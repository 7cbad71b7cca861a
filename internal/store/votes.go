package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// SetVote records the user's latest vote on a suggestion card. Callers clamp
// value to -1, 0 or 1 beforehand.
func (s *Store) SetVote(ctx context.Context, id uuid.UUID, suggestionID string, value int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wayfinder_votes (session_id, suggestion_id, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, suggestion_id)
		DO UPDATE SET value = $3, updated_at = now()`,
		id, suggestionID, value,
	)
	if err != nil {
		return fmt.Errorf("upsert vote: %w", notFound(err))
	}
	return nil
}

func (s *Store) ListVotes(ctx context.Context, id uuid.UUID) (signal.Votes, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT suggestion_id, value FROM wayfinder_votes
		WHERE session_id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query votes: %w", err)
	}
	defer rows.Close()

	votes := signal.Votes{}
	for rows.Next() {
		var (
			suggestionID string
			value        int
		)
		if err := rows.Scan(&suggestionID, &value); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes[suggestionID] = value
	}
	return votes, rows.Err()
}
