// ABOUTME: Data models for conversations and messages shared by both store variants.
// ABOUTME: JSON tags match the local blob wire format; remote rows use snake_case columns.

package store

import "time"

// Message is a single chat message. Messages are immutable once created and
// ordered by insertion within their conversation; the timestamp is
// informational, not a sort key.
type Message struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsUser     bool      `json:"isUser"`
	IsMarkdown bool      `json:"isMarkdown,omitempty"`
}

// Conversation is a titled, ordered sequence of messages. Messages may be
// empty on instances returned by RemoteStore.ListConversations; use
// ListMessages to hydrate them.
type Conversation struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Messages    []*Message `json:"messages"`
	LastMessage string     `json:"lastMessage"`
	UpdatedAt   time.Time  `json:"timestamp"`
}
