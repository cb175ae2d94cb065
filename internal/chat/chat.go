// Package chat orchestrates a message exchange: quota check,
// conversation resolution, history replay, the upstream call and
// persistence of both turns.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/wavechat/wavechat/internal/catalog"
	"github.com/wavechat/wavechat/internal/log"
	"github.com/wavechat/wavechat/internal/store"
	"github.com/wavechat/wavechat/internal/upstream"
)

// titleLen caps how many characters of the first message become the
// conversation title.
const titleLen = 50

// ErrEmptyMessage is returned when the message is empty or whitespace.
var ErrEmptyMessage = errors.New("chat: message is empty")

// ErrLimitExceeded is returned when the user has spent their message
// quota.
var ErrLimitExceeded = errors.New("chat: message limit exceeded")

// Store is the persistence surface the service needs. *store.Store
// satisfies it; tests substitute a fake.
type Store interface {
	ConversationByID(ctx context.Context, id, userID string) (*store.Conversation, error)
	CreateConversation(ctx context.Context, userID string, title *string, model string) (*store.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]store.Message, error)
	AddMessage(ctx context.Context, conversationID, userID string, role store.Role, content string, model *string) (*store.Message, error)
	TouchConversation(ctx context.Context, id string) error
	IncrementMessagesUsed(ctx context.Context, userID string) error
	Setting(ctx context.Context, key string) (string, error)
}

// Upstream is the completion API surface. *upstream.Client satisfies it.
type Upstream interface {
	Chat(ctx context.Context, apiKey, prompt, model string) (string, error)
}

// Service wires the store and the upstream client together.
type Service struct {
	store    Store
	upstream Upstream
	logger   log.Logger
}

// NewService builds a chat Service.
func NewService(st Store, up Upstream, logger log.Logger) *Service {
	return &Service{store: st, upstream: up, logger: logger}
}

// SendRequest is one user message. ConversationID empty means start a
// new conversation. Model is optional and falls back to the
// conversation's model.
type SendRequest struct {
	ConversationID string
	Message        string
	Model          string
}

// SendResult carries both persisted turns and the conversation they
// landed in.
type SendResult struct {
	Conversation *store.Conversation `json:"conversation"`
	UserMessage  *store.Message      `json:"userMessage"`
	Reply        *store.Message      `json:"reply"`
}

// Send runs one full exchange. On upstream failure the user's message
// stays persisted so the client can retry without losing it, and the
// quota counter is not charged.
func (s *Service) Send(ctx context.Context, user *store.User, req SendRequest) (*SendResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	if user.MessagesLimit > 0 && user.MessagesUsed >= user.MessagesLimit {
		return nil, ErrLimitExceeded
	}

	conv, err := s.resolveConversation(ctx, user.ID, req, message)
	if err != nil {
		return nil, err
	}

	model := conv.Model
	if catalog.Valid(req.Model) {
		model = req.Model
	}
	model = catalog.Resolve(model)

	// History is loaded before the new message is stored so the prompt
	// replays only prior turns.
	history, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	userMsg, err := s.store.AddMessage(ctx, conv.ID, user.ID, store.RoleUser, message, nil)
	if err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	apiKey, err := s.store.Setting(ctx, store.SettingWaveSpeedAPIKey)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load API key: %w", err)
	}

	prompt := upstream.BuildPrompt(toTurns(history), message)
	output, err := s.upstream.Chat(ctx, apiKey, prompt, model)
	if err != nil {
		s.logger.Error("upstream exchange failed",
			"conversation_id", conv.ID, "model", model, "error", err)
		return nil, err
	}

	reply, err := s.store.AddMessage(ctx, conv.ID, user.ID, store.RoleAssistant, output, &model)
	if err != nil {
		return nil, fmt.Errorf("persist reply: %w", err)
	}

	if err := s.store.TouchConversation(ctx, conv.ID); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if err := s.store.IncrementMessagesUsed(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("charge quota: %w", err)
	}

	s.logger.Info("exchange completed",
		"conversation_id", conv.ID, "model", model, "user_id", user.ID)

	return &SendResult{Conversation: conv, UserMessage: userMsg, Reply: reply}, nil
}

// resolveConversation loads the referenced conversation or starts a
// new one. An ID that does not resolve for this user, because it is
// malformed, does not exist or belongs to someone else, also starts a
// new conversation rather than failing the send.
func (s *Service) resolveConversation(ctx context.Context, userID string, req SendRequest, message string) (*store.Conversation, error) {
	// A non-UUID ID can never match a row; skip the lookup instead of
	// letting the driver reject the parameter.
	if _, err := uuid.Parse(req.ConversationID); err == nil {
		conv, err := s.store.ConversationByID(ctx, req.ConversationID, userID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
	}
	title := truncate(message, titleLen)
	return s.store.CreateConversation(ctx, userID, &title, catalog.Resolve(req.Model))
}

func toTurns(msgs []store.Message) []upstream.Turn {
	turns := make([]upstream.Turn, len(msgs))
	for i, m := range msgs {
		turns[i] = upstream.Turn{Role: string(m.Role), Content: m.Content}
	}
	return turns
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
