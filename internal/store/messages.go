package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const messageColumns = `id, conversation_id, user_id, role, content, model, created_at`

// AddMessage appends one turn to a conversation.
func (s *Store) AddMessage(ctx context.Context, conversationID, userID string, role Role, content string, model *string) (*Message, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, user_id, role, content, model)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+messageColumns,
		conversationID, userID, role, content, model)

	var m Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role,
		&m.Content, &m.Model, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	return &m, nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *Store) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Role,
			&m.Content, &m.Model, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
