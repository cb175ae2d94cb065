package store

import "time"

// Role distinguishes who authored a message inside a conversation.
type Role string

const (
	RoleUser      Role = "USER"
	RoleAssistant Role = "ASSISTANT"
)

// User is an account row. PasswordHash is never serialized.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          *string   `json:"name"`
	IsAdmin       bool      `json:"isAdmin"`
	MessagesUsed  int       `json:"messagesUsed"`
	MessagesLimit int       `json:"messagesLimit"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UserWithCount augments User with the number of conversations the
// account owns, for the admin listing.
type UserWithCount struct {
	User
	ConversationCount int `json:"conversationCount"`
}

// Conversation groups messages for one user. Title is nil until the
// first message sets it.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     *string   `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a single turn. Model is set on assistant replies only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Model          *string   `json:"model"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Setting is a key/value pair of runtime configuration stored in the
// database, such as the upstream API credential.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is a server-side login session referenced by a signed cookie.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Stats is the aggregate counters shown on the admin dashboard.
type Stats struct {
	TotalUsers         int `json:"totalUsers"`
	TotalConversations int `json:"totalConversations"`
	TotalMessages      int `json:"totalMessages"`
}
