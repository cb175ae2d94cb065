package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/wavechat/wavechat/internal/chat"
	"github.com/wavechat/wavechat/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testSecret = []byte("test-secret-at-least-32-characters!!")

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeStore is an in-memory Store implementation for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*store.User
	sessions map[string]string // session ID -> user ID
	convs    map[string]*store.Conversation
	msgs     map[string][]store.Message
	settings map[string]string

	sessionUserErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*store.User{},
		sessions: map[string]string{},
		convs:    map[string]*store.Conversation{},
		msgs:     map[string][]store.Message{},
		settings: map[string]string{},
	}
}

func (f *fakeStore) CreateUser(_ context.Context, email, passwordHash string, name *string, messagesLimit int) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return nil, store.ErrEmailTaken
		}
	}
	u := &store.User{
		ID: uuid.NewString(), Email: email, PasswordHash: passwordHash,
		Name: name, IsAdmin: len(f.users) == 0,
		MessagesLimit: messagesLimit, CreatedAt: time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) UserByEmail(_ context.Context, email string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) UserByID(_ context.Context, id string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]store.UserWithCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.UserWithCount
	for _, u := range f.users {
		count := 0
		for _, c := range f.convs {
			if c.UserID == u.ID {
				count++
			}
		}
		out = append(out, store.UserWithCount{User: *u, ConversationCount: count})
	}
	return out, nil
}

func (f *fakeStore) UpdateUserLimits(_ context.Context, id string, messagesLimit *int, isAdmin *bool) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if messagesLimit != nil {
		u.MessagesLimit = *messagesLimit
	}
	if isAdmin != nil {
		u.IsAdmin = *isAdmin
	}
	return u, nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) CreateSession(_ context.Context, userID string, ttl time.Duration) (*store.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &store.Session{
		ID: uuid.NewString(), UserID: userID,
		CreatedAt: time.Now(), ExpiresAt: time.Now().Add(ttl),
	}
	f.sessions[s.ID] = userID
	return s, nil
}

func (f *fakeStore) setSessionUserErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionUserErr = err
}

func (f *fakeStore) SessionUser(_ context.Context, sessionID string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionUserErr != nil {
		return nil, f.sessionUserErr
	}
	userID, ok := f.sessions[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeStore) ListConversations(_ context.Context, userID string) ([]store.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Conversation
	for _, c := range f.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeStore) ConversationByID(_ context.Context, id, userID string) (*store.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListMessages(_ context.Context, conversationID string) ([]store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[conversationID], nil
}

func (f *fakeStore) DeleteConversation(_ context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.convs, id)
	delete(f.msgs, id)
	return nil
}

func (f *fakeStore) Setting(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) SetSetting(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = value
	return nil
}

func (f *fakeStore) Settings(_ context.Context) ([]store.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Setting
	for k, v := range f.settings {
		out = append(out, store.Setting{Key: k, Value: v})
	}
	return out, nil
}

func (f *fakeStore) Stats(_ context.Context) (*store.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := 0
	for _, m := range f.msgs {
		msgs += len(m)
	}
	return &store.Stats{
		TotalUsers:         len(f.users),
		TotalConversations: len(f.convs),
		TotalMessages:      msgs,
	}, nil
}

// addConversation seeds a conversation directly.
func (f *fakeStore) addConversation(userID string) *store.Conversation {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &store.Conversation{
		ID: uuid.NewString(), UserID: userID,
		Model: "google/gemini-2.5-flash",
	}
	f.convs[c.ID] = c
	return c
}

// fakeChat is a canned ChatService.
type fakeChat struct {
	result *chat.SendResult
	err    error
	last   chat.SendRequest
}

func (f *fakeChat) Send(_ context.Context, _ *store.User, req chat.SendRequest) (*chat.SendResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type testEnv struct {
	store  *fakeStore
	chat   *fakeChat
	server *httptest.Server
	client *http.Client
}

// newTestEnv spins up the full middleware stack and routes against the
// fakes, with a cookie-jar client so sessions persist across calls.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fs := newFakeStore()
	fc := &fakeChat{}

	srv, err := NewServer(ServerConfig{
		Logger:        discard(),
		Store:         fs,
		Chat:          fc,
		HMACSecret:    testSecret,
		SessionTTL:    time.Hour,
		MessagesLimit: 100,
		CORSOrigins:   []string{"http://localhost:3000"},
		IsDev:         true,
		RateBurst:     1000,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	client := &http.Client{Jar: jar}
	t.Cleanup(client.CloseIdleConnections)

	return &testEnv{
		store:  fs,
		chat:   fc,
		server: ts,
		client: client,
	}
}

// doJSON issues a request with a JSON body and decodes the response
// into out when it is non-nil.
func (e *testEnv) doJSON(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

// register creates an account through the API and returns the user ID.
// The client's cookie jar holds the session afterwards.
func (e *testEnv) register(t *testing.T, email string) string {
	t.Helper()

	var body struct {
		Data struct {
			User store.User `json:"user"`
		} `json:"data"`
	}
	resp := e.doJSON(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    email,
		"password": "secret123",
	}, &body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	return body.Data.User.ID
}
