package api

import (
	"context"
	"time"

	"github.com/wavechat/wavechat/internal/chat"
	"github.com/wavechat/wavechat/internal/store"
)

// Store is the persistence surface the handlers need. *store.Store
// satisfies it; unit tests substitute a fake.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string, name *string, messagesLimit int) (*store.User, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UserByID(ctx context.Context, id string) (*store.User, error)
	ListUsers(ctx context.Context) ([]store.UserWithCount, error)
	UpdateUserLimits(ctx context.Context, id string, messagesLimit *int, isAdmin *bool) (*store.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateSession(ctx context.Context, userID string, ttl time.Duration) (*store.Session, error)
	SessionUser(ctx context.Context, sessionID string) (*store.User, error)
	DeleteSession(ctx context.Context, sessionID string) error

	ListConversations(ctx context.Context, userID string) ([]store.Conversation, error)
	ConversationByID(ctx context.Context, id, userID string) (*store.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]store.Message, error)
	DeleteConversation(ctx context.Context, id, userID string) error

	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	Settings(ctx context.Context) ([]store.Setting, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// ChatService runs one message exchange. *chat.Service satisfies it.
type ChatService interface {
	Send(ctx context.Context, user *store.User, req chat.SendRequest) (*chat.SendResult, error)
}
