// ABOUTME: Store interface and shared errors for conversation persistence.
// ABOUTME: Implemented by LocalStore (sqlite blob) and RemoteStore (PostgREST).

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store provides CRUD over conversations and their ordered messages.
// Identifiers are always caller-supplied; implementations never assign ids.
type Store interface {
	// ListConversations returns all conversations sorted by UpdatedAt descending.
	ListConversations(ctx context.Context) ([]*Conversation, error)

	// CreateConversation persists a new conversation. The conversation's ID
	// must be set by the caller.
	CreateConversation(ctx context.Context, conv *Conversation) error

	// UpdateConversation sets the title and last-message preview of a
	// conversation and bumps its UpdatedAt.
	UpdateConversation(ctx context.Context, id, title, preview string) error

	// DeleteConversation removes a conversation and all of its messages.
	DeleteConversation(ctx context.Context, id string) error

	// ListMessages returns the messages of a conversation in insertion order.
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// AppendMessage adds a message to the end of a conversation. The
	// message's ID must be set by the caller.
	AppendMessage(ctx context.Context, conversationID string, msg *Message) error
}
