package store

import (
	"context"
	"fmt"
)

// Stats returns the aggregate counters for the admin dashboard.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM conversations),
			(SELECT count(*) FROM messages)`).
		Scan(&st.TotalUsers, &st.TotalConversations, &st.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	return &st, nil
}
