package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = `id, email, password_hash, name, is_admin, messages_used, messages_limit, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name,
		&u.IsAdmin, &u.MessagesUsed, &u.MessagesLimit, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new account. The first account ever created is
// promoted to admin. Returns ErrEmailTaken on duplicate email.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, name *string, messagesLimit int) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, is_admin, messages_limit)
		VALUES ($1, $2, $3, NOT EXISTS (SELECT 1 FROM users), $4)
		RETURNING `+userColumns,
		email, passwordHash, name, messagesLimit)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Debug("user created", "user_id", u.ID, "is_admin", u.IsAdmin)
	return u, nil
}

// UserByEmail looks an account up by email for login.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// UserByID fetches one account.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListUsers returns every account with its conversation count, newest
// first, for the admin panel.
func (s *Store) ListUsers(ctx context.Context) ([]UserWithCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`,
		       (SELECT count(*) FROM conversations c WHERE c.user_id = users.id)
		FROM users
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []UserWithCount
	for rows.Next() {
		var u UserWithCount
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name,
			&u.IsAdmin, &u.MessagesUsed, &u.MessagesLimit, &u.CreatedAt,
			&u.ConversationCount); err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserLimits changes an account's message quota and admin flag.
func (s *Store) UpdateUserLimits(ctx context.Context, id string, messagesLimit *int, isAdmin *bool) (*User, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE users
		SET messages_limit = COALESCE($2, messages_limit),
		    is_admin       = COALESCE($3, is_admin)
		WHERE id = $1
		RETURNING `+userColumns,
		id, messagesLimit, isAdmin)
	return scanUser(row)
}

// IncrementMessagesUsed bumps the quota counter after a successful
// exchange. The update is atomic so concurrent sends never lose counts.
func (s *Store) IncrementMessagesUsed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET messages_used = messages_used + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment messages used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes an account and, via cascade, its conversations,
// messages and sessions.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.logger.Debug("user deleted", "user_id", id)
	return nil
}
