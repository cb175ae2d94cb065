package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateSession opens a login session valid for ttl.
func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*Session, error) {
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, user_id, expires_at)
		VALUES ($1, $2, now() + $3)
		RETURNING id, user_id, created_at, expires_at`,
		id, userID, ttl)

	var sess Session
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Debug("session created", "user_id", userID, "expires_at", sess.ExpiresAt)
	return &sess, nil
}

// SessionUser resolves a session ID to its user. Expired or unknown
// sessions yield ErrNotFound.
func (s *Store) SessionUser(ctx context.Context, sessionID string) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		JOIN sessions ON sessions.user_id = users.id
		WHERE sessions.id = $1 AND sessions.expires_at > now()`,
		sessionID)
	return scanUser(row)
}

// DeleteSession removes a session on logout. Deleting a session that
// no longer exists is not an error.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions reaps sessions past their expiry and reports
// how many were removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
