package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
)

// insertInsights stores insights, skipping any the session already holds
// with the same kind and case-insensitive value. It returns how many were new.
func insertInsights(ctx context.Context, tx pgx.Tx, id uuid.UUID, insights []signal.Insight) (int, error) {
	added := 0
	for _, in := range insights {
		tag, err := tx.Exec(ctx, `
			INSERT INTO wayfinder_insights (id, session_id, kind, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, kind, lower(value)) DO NOTHING`,
			uuid.New(), id, string(in.Kind), in.Value,
		)
		if err != nil {
			return 0, fmt.Errorf("insert insight: %w", notFound(err))
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (s *Store) ListInsights(ctx context.Context, id uuid.UUID) ([]signal.Insight, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT kind, value FROM wayfinder_insights
		WHERE session_id = $1
		ORDER BY created_at, id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var out []signal.Insight
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out = append(out, signal.Insight{Kind: signal.InsightKind(kind), Value: value})
	}
	return out, rows.Err()
}
