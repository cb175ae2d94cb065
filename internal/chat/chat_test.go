package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/wavechat/wavechat/internal/catalog"
	"github.com/wavechat/wavechat/internal/store"
	"github.com/wavechat/wavechat/internal/testutil"
)

// fakeStore is an in-memory Store for unit tests.
type fakeStore struct {
	conversations map[string]*store.Conversation
	messages      map[string][]store.Message
	settings      map[string]string
	lookups       []string
	touched       []string
	charged       []string

	addMessageErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: map[string]*store.Conversation{},
		messages:      map[string][]store.Message{},
		settings:      map[string]string{store.SettingWaveSpeedAPIKey: "sk-test"},
	}
}

func (f *fakeStore) ConversationByID(_ context.Context, id, userID string) (*store.Conversation, error) {
	f.lookups = append(f.lookups, id)
	c, ok := f.conversations[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateConversation(_ context.Context, userID string, title *string, model string) (*store.Conversation, error) {
	c := &store.Conversation{ID: uuid.NewString(), UserID: userID, Title: title, Model: model}
	f.conversations[c.ID] = c
	return c, nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID string) ([]store.Message, error) {
	return f.messages[conversationID], nil
}

func (f *fakeStore) AddMessage(_ context.Context, conversationID, userID string, role store.Role, content string, model *string) (*store.Message, error) {
	if f.addMessageErr != nil {
		return nil, f.addMessageErr
	}
	m := store.Message{
		ID: uuid.NewString(), ConversationID: conversationID, UserID: userID,
		Role: role, Content: content, Model: model,
	}
	f.messages[conversationID] = append(f.messages[conversationID], m)
	return &m, nil
}

func (f *fakeStore) TouchConversation(_ context.Context, id string) error {
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeStore) IncrementMessagesUsed(_ context.Context, userID string) error {
	f.charged = append(f.charged, userID)
	return nil
}

func (f *fakeStore) Setting(_ context.Context, key string) (string, error) {
	v, ok := f.settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

// fakeUpstream records the last call and returns a canned reply.
type fakeUpstream struct {
	lastKey    string
	lastPrompt string
	lastModel  string
	output     string
	err        error
}

func (f *fakeUpstream) Chat(_ context.Context, apiKey, prompt, model string) (string, error) {
	f.lastKey, f.lastPrompt, f.lastModel = apiKey, prompt, model
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func testUser() *store.User {
	return &store.User{ID: uuid.NewString(), Email: "u@example.com", MessagesLimit: 100}
}

func TestSend_EmptyMessage(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{}, testutil.DiscardLogger())

	for _, msg := range []string{"", "   ", "\n\t "} {
		_, err := svc.Send(context.Background(), testUser(), SendRequest{Message: msg})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) error = %v, want ErrEmptyMessage", msg, err)
		}
	}
	if len(fs.conversations) != 0 {
		t.Error("empty message must not create a conversation")
	}
}

func TestSend_LimitExceeded(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{output: "hi"}, testutil.DiscardLogger())

	user := testUser()
	user.MessagesUsed = 100
	user.MessagesLimit = 100

	_, err := svc.Send(context.Background(), user, SendRequest{Message: "hello"})
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("Send() error = %v, want ErrLimitExceeded", err)
	}
	if len(fs.conversations) != 0 {
		t.Error("over-quota send must not create a conversation")
	}
}

func TestSend_ZeroLimitMeansUnlimited(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{output: "hi"}, testutil.DiscardLogger())

	user := testUser()
	user.MessagesUsed = 5000
	user.MessagesLimit = 0

	if _, err := svc.Send(context.Background(), user, SendRequest{Message: "hello"}); err != nil {
		t.Fatalf("Send() error = %v, want nil for zero limit", err)
	}
}

func TestSend_NewConversation(t *testing.T) {
	fs := newFakeStore()
	up := &fakeUpstream{output: "the reply"}
	svc := NewService(fs, up, testutil.DiscardLogger())

	user := testUser()
	res, err := svc.Send(context.Background(), user, SendRequest{Message: "hello there"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if res.Conversation == nil || res.Conversation.Title == nil {
		t.Fatal("Send() must create a titled conversation")
	}
	if *res.Conversation.Title != "hello there" {
		t.Errorf("title = %q, want %q", *res.Conversation.Title, "hello there")
	}
	if res.Conversation.Model != catalog.DefaultModelID {
		t.Errorf("model = %q, want default", res.Conversation.Model)
	}
	if res.UserMessage.Content != "hello there" || res.UserMessage.Role != store.RoleUser {
		t.Errorf("unexpected user message %+v", res.UserMessage)
	}
	if res.Reply.Content != "the reply" || res.Reply.Role != store.RoleAssistant {
		t.Errorf("unexpected reply %+v", res.Reply)
	}
	if res.Reply.Model == nil || *res.Reply.Model != catalog.DefaultModelID {
		t.Error("reply must be tagged with the model that produced it")
	}
	if len(fs.touched) != 1 || len(fs.charged) != 1 {
		t.Errorf("touched = %v, charged = %v, want one each", fs.touched, fs.charged)
	}
	if up.lastKey != "sk-test" {
		t.Errorf("upstream key = %q, want stored setting", up.lastKey)
	}
}

func TestSend_TitleTruncation(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{output: "ok"}, testutil.DiscardLogger())

	long := strings.Repeat("héllo ", 20)
	res, err := svc.Send(context.Background(), testUser(), SendRequest{Message: long})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	title := []rune(*res.Conversation.Title)
	if len(title) != 50 {
		t.Errorf("title length = %d runes, want 50", len(title))
	}
	if !strings.HasPrefix(long, string(title)) {
		t.Errorf("title %q is not a prefix of the message", string(title))
	}
}

func TestSend_ForeignConversationStartsNew(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{output: "ok"}, testutil.DiscardLogger())

	owner := testUser()
	conv, _ := fs.CreateConversation(context.Background(), owner.ID, nil, catalog.DefaultModelID)

	intruder := testUser()
	res, err := svc.Send(context.Background(), intruder, SendRequest{
		ConversationID: conv.ID, Message: "hi",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Conversation.ID == conv.ID {
		t.Fatal("send must not land in another user's conversation")
	}
	if res.Conversation.UserID != intruder.ID {
		t.Errorf("conversation owner = %q, want sender", res.Conversation.UserID)
	}
	if len(fs.messages[conv.ID]) != 0 {
		t.Error("foreign conversation must stay untouched")
	}
}

func TestSend_UnknownConversationIDStartsNew(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{output: "ok"}, testutil.DiscardLogger())

	res, err := svc.Send(context.Background(), testUser(), SendRequest{
		ConversationID: uuid.NewString(), Message: "fresh start",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Conversation == nil || *res.Conversation.Title != "fresh start" {
		t.Error("unknown conversation ID must fall back to a new conversation")
	}
}

func TestSend_MalformedConversationIDStartsNew(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, &fakeUpstream{output: "ok"}, testutil.DiscardLogger())

	// A non-UUID ID would make the database reject the query parameter,
	// so it must never reach the store and instead start a new
	// conversation, like an unknown ID does.
	res, err := svc.Send(context.Background(), testUser(), SendRequest{
		ConversationID: "abc", Message: "hello",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if res.Conversation == nil || *res.Conversation.Title != "hello" {
		t.Error("malformed conversation ID must fall back to a new conversation")
	}
	if len(fs.lookups) != 0 {
		t.Errorf("lookups = %v, want none for a malformed ID", fs.lookups)
	}
}

func TestSend_PromptReplaysPriorHistoryOnly(t *testing.T) {
	fs := newFakeStore()
	up := &fakeUpstream{output: "ok"}
	svc := NewService(fs, up, testutil.DiscardLogger())

	user := testUser()
	conv, _ := fs.CreateConversation(context.Background(), user.ID, nil, catalog.DefaultModelID)
	_, _ = fs.AddMessage(context.Background(), conv.ID, user.ID, store.RoleUser, "earlier question", nil)
	_, _ = fs.AddMessage(context.Background(), conv.ID, user.ID, store.RoleAssistant, "earlier answer", nil)

	_, err := svc.Send(context.Background(), user, SendRequest{
		ConversationID: conv.ID, Message: "new question",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := "User: earlier question\n\n" +
		"Assistant: earlier answer\n\n" +
		"User: new question\n\nAssistant:"
	if up.lastPrompt != want {
		t.Errorf("prompt = %q, want %q", up.lastPrompt, want)
	}
	if strings.Count(up.lastPrompt, "new question") != 1 {
		t.Error("new message must appear exactly once in the prompt")
	}
}

func TestSend_ModelFallsBackToConversation(t *testing.T) {
	fs := newFakeStore()
	up := &fakeUpstream{output: "ok"}
	svc := NewService(fs, up, testutil.DiscardLogger())

	user := testUser()
	conv, _ := fs.CreateConversation(context.Background(), user.ID, nil, "openai/gpt-4o")

	// Invalid model in the request falls back to the conversation's model.
	_, err := svc.Send(context.Background(), user, SendRequest{
		ConversationID: conv.ID, Message: "hi", Model: "bogus/model",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if up.lastModel != "openai/gpt-4o" {
		t.Errorf("model = %q, want conversation model", up.lastModel)
	}

	// A valid request model overrides it.
	_, err = svc.Send(context.Background(), user, SendRequest{
		ConversationID: conv.ID, Message: "hi again", Model: "anthropic/claude-3-haiku",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if up.lastModel != "anthropic/claude-3-haiku" {
		t.Errorf("model = %q, want request model", up.lastModel)
	}
}

func TestSend_UpstreamFailureKeepsUserMessage(t *testing.T) {
	fs := newFakeStore()
	upErr := errors.New("upstream down")
	svc := NewService(fs, &fakeUpstream{err: upErr}, testutil.DiscardLogger())

	user := testUser()
	_, err := svc.Send(context.Background(), user, SendRequest{Message: "hello"})
	if !errors.Is(err, upErr) {
		t.Fatalf("Send() error = %v, want upstream error", err)
	}

	var conv *store.Conversation
	for _, c := range fs.conversations {
		conv = c
	}
	if conv == nil {
		t.Fatal("conversation should exist despite upstream failure")
	}
	msgs := fs.messages[conv.ID]
	if len(msgs) != 1 || msgs[0].Role != store.RoleUser {
		t.Errorf("messages = %+v, want only the user turn persisted", msgs)
	}
	if len(fs.charged) != 0 {
		t.Error("failed exchange must not charge the quota")
	}
	if len(fs.touched) != 0 {
		t.Error("failed exchange must not bump the conversation")
	}
}

func TestSend_MissingAPIKeyPassedThrough(t *testing.T) {
	fs := newFakeStore()
	delete(fs.settings, store.SettingWaveSpeedAPIKey)
	up := &fakeUpstream{output: "ok"}
	svc := NewService(fs, up, testutil.DiscardLogger())

	if _, err := svc.Send(context.Background(), testUser(), SendRequest{Message: "hi"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if up.lastKey != "" {
		t.Errorf("key = %q, want empty when setting is absent", up.lastKey)
	}
}
