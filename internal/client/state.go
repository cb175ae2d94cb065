package client

import (
	"sync"

	"github.com/google/uuid"

	"github.com/wavechat/wavechat/internal/catalog"
	"github.com/wavechat/wavechat/internal/store"
)

// Delivery tracks an optimistically rendered message through its
// lifecycle: shown immediately as Pending, then either Confirmed by
// the server or marked Failed so the user can retry.
type Delivery int

const (
	DeliveryConfirmed Delivery = iota
	DeliveryPending
	DeliveryFailed
)

// ViewMessage is a message as the UI sees it, including delivery state
// for optimistic sends.
type ViewMessage struct {
	ID       string
	Role     store.Role
	Content  string
	Model    *string
	Delivery Delivery
}

// State is the observable view model behind a chat frontend. All
// methods are safe for concurrent use; subscribers are notified after
// every mutation.
type State struct {
	mu sync.Mutex

	conversations         []store.Conversation
	currentConversationID string
	messages              []ViewMessage
	loading               bool
	selectedModel         string

	nextSub     int
	subscribers map[int]func()
}

// NewState creates a State with the default model selected.
func NewState() *State {
	return &State{
		selectedModel: catalog.DefaultModelID,
		subscribers:   map[int]func(){},
	}
}

// Subscribe registers a callback invoked after every state change and
// returns a function that removes it. Callbacks run on the mutating
// goroutine, outside the state lock.
func (s *State) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// notify invokes subscribers. Callers must hold s.mu; it is released
// during the callbacks and re-acquired before returning.
func (s *State) notify() {
	subs := make([]func(), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	s.mu.Lock()
}

// Conversations returns a copy of the conversation list.
func (s *State) Conversations() []store.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// SetConversations replaces the conversation list.
func (s *State) SetConversations(convs []store.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = convs
	s.notify()
}

// CurrentConversationID returns the open conversation, or "" when the
// user is composing a new one.
func (s *State) CurrentConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentConversationID
}

// SetCurrentConversation switches the open conversation and replaces
// the visible messages.
func (s *State) SetCurrentConversation(id string, msgs []store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentConversationID = id
	s.messages = make([]ViewMessage, len(msgs))
	for i, m := range msgs {
		s.messages[i] = ViewMessage{
			ID: m.ID, Role: m.Role, Content: m.Content,
			Model: m.Model, Delivery: DeliveryConfirmed,
		}
	}
	s.notify()
}

// Messages returns a copy of the visible messages.
func (s *State) Messages() []ViewMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ViewMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Loading reports whether a send is in flight.
func (s *State) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SelectedModel returns the model the next send will use.
func (s *State) SelectedModel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedModel
}

// SelectModel changes the model for subsequent sends. Unknown models
// fall back to the default.
func (s *State) SelectModel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedModel = catalog.Resolve(id)
	s.notify()
}

// Clear resets the view for a fresh conversation.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentConversationID = ""
	s.messages = nil
	s.notify()
}

// BeginSend renders the user's message immediately as Pending and
// flips the loading flag. The returned ID identifies the pending
// message for ConfirmSend or FailSend.
func (s *State) BeginSend(content string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "pending-" + uuid.NewString()
	s.messages = append(s.messages, ViewMessage{
		ID:       id,
		Role:     store.RoleUser,
		Content:  content,
		Delivery: DeliveryPending,
	})
	s.loading = true
	s.notify()
	return id
}

// ConfirmSend replaces the pending message with the server's persisted
// turns and adopts the conversation the exchange landed in.
func (s *State) ConfirmSend(pendingID string, res *SendResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.ID == pendingID {
			s.messages[i] = ViewMessage{
				ID: res.UserMessage.ID, Role: res.UserMessage.Role,
				Content: res.UserMessage.Content, Delivery: DeliveryConfirmed,
			}
			break
		}
	}
	s.messages = append(s.messages, ViewMessage{
		ID: res.Reply.ID, Role: res.Reply.Role,
		Content: res.Reply.Content, Model: res.Reply.Model,
		Delivery: DeliveryConfirmed,
	})
	s.currentConversationID = res.Conversation.ID
	s.loading = false
	s.notify()
}

// FailSend marks the pending message Failed and stops loading. The
// message stays visible so the user can retry it.
func (s *State) FailSend(pendingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.ID == pendingID {
			s.messages[i].Delivery = DeliveryFailed
			break
		}
	}
	s.loading = false
	s.notify()
}
