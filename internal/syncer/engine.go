// ABOUTME: Sync engine selecting remote-vs-local persistence per operation.
// ABOUTME: Remote preferred when configured, local always mirrored, status advisory.

package syncer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sitebuilder/sitechat/internal/store"
)

// Status reflects the outcome of the last remote persistence operation.
// It is process-wide, advisory UI state: overwritten by whichever operation
// completes last, never persisted.
type Status string

const (
	StatusSynced  Status = "synced"
	StatusSyncing Status = "syncing"
	StatusOffline Status = "offline"
)

const (
	// WelcomeMessage seeds every fresh conversation.
	WelcomeMessage = "Hello! I'm SiteBuilder, your AI assistant. How can I help you build your website today?"

	welcomePreview = "Hello! I'm SiteBuilder..."
	newChatTitle   = "New Chat"
)

// Engine orchestrates the two store variants. When a remote store is
// configured it is authoritative; any remote failure degrades the status to
// offline and falls back to the local variant for that operation, without
// retrying the remote call. The local variant is always written as a
// best-effort mirror so data is never lost solely because the remote path
// failed; the two stores are allowed to drift (see package doc).
type Engine struct {
	remote store.Store // nil when no backend is configured
	local  store.Store
	status atomic.Value // Status
	notify func(Status)
	logger *slog.Logger
}

// New creates a sync engine. remote may be nil for local-only mode.
func New(remote, local store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		remote: remote,
		local:  local,
		logger: logger.With("component", "syncer"),
	}
	e.status.Store(StatusSynced)
	return e
}

// OnStatusChange registers a callback invoked whenever the status changes.
// Must be called before the engine is used; there is no unregistration.
func (e *Engine) OnStatusChange(fn func(Status)) {
	e.notify = fn
}

// Status returns the current sync status.
func (e *Engine) Status() Status {
	return e.status.Load().(Status)
}

func (e *Engine) setStatus(s Status) {
	prev := e.status.Swap(s)
	if prev != s && e.notify != nil {
		e.notify(s)
	}
}

// remoteCall runs one remote operation, maintaining the status transitions.
// Returns true when the remote path succeeded, false when the remote store
// is absent or the call failed and the caller should use the local variant.
func (e *Engine) remoteCall(op string, fn func() error) bool {
	if e.remote == nil {
		return false
	}
	e.setStatus(StatusSyncing)
	if err := fn(); err != nil {
		e.logger.Warn("remote store failed, falling back to local",
			"op", op,
			"error", err)
		e.setStatus(StatusOffline)
		return false
	}
	e.setStatus(StatusSynced)
	return true
}

// mirror applies the same mutation to the local store, logging failures.
// Local persistence is best-effort: the in-memory conversation state owned by
// the controller stays consistent either way.
func (e *Engine) mirror(op string, fn func() error) {
	if err := fn(); err != nil {
		e.logger.Warn("local mirror write failed", "op", op, "error", err)
	}
}

// ListConversations enumerates conversations, remote first with local
// fallback. The returned list is sorted by UpdatedAt descending.
func (e *Engine) ListConversations(ctx context.Context) ([]*store.Conversation, error) {
	var convs []*store.Conversation
	ok := e.remoteCall("list conversations", func() error {
		var err error
		convs, err = e.remote.ListConversations(ctx)
		return err
	})
	if ok {
		return convs, nil
	}
	return e.local.ListConversations(ctx)
}

// ListMessages returns the ordered messages of a conversation, remote first
// with local fallback.
func (e *Engine) ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error) {
	var msgs []*store.Message
	ok := e.remoteCall("list messages", func() error {
		var err error
		msgs, err = e.remote.ListMessages(ctx, conversationID)
		return err
	})
	if ok {
		return msgs, nil
	}
	return e.local.ListMessages(ctx, conversationID)
}

// CreateConversation persists a new conversation to both stores and returns
// it. The id is generated here; both variants receive the same row.
func (e *Engine) CreateConversation(ctx context.Context, title, preview string) *store.Conversation {
	conv := &store.Conversation{
		ID:          uuid.New().String(),
		Title:       title,
		LastMessage: preview,
		UpdatedAt:   time.Now().UTC(),
	}
	e.remoteCall("create conversation", func() error {
		return e.remote.CreateConversation(ctx, conv)
	})
	e.mirror("create conversation", func() error {
		return e.local.CreateConversation(ctx, &store.Conversation{
			ID:          conv.ID,
			Title:       conv.Title,
			LastMessage: conv.LastMessage,
			UpdatedAt:   conv.UpdatedAt,
		})
	})
	return conv
}

// UpdateConversation sets title and preview on both stores.
func (e *Engine) UpdateConversation(ctx context.Context, id, title, preview string) {
	e.remoteCall("update conversation", func() error {
		return e.remote.UpdateConversation(ctx, id, title, preview)
	})
	e.mirror("update conversation", func() error {
		return e.local.UpdateConversation(ctx, id, title, preview)
	})
}

// DeleteConversation removes a conversation and its messages from both
// stores.
func (e *Engine) DeleteConversation(ctx context.Context, id string) {
	e.remoteCall("delete conversation", func() error {
		return e.remote.DeleteConversation(ctx, id)
	})
	e.mirror("delete conversation", func() error {
		return e.local.DeleteConversation(ctx, id)
	})
}

// AppendMessage persists a message to both stores. The message id is
// generated here when unset, and returned.
func (e *Engine) AppendMessage(ctx context.Context, conversationID string, msg *store.Message) string {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	e.remoteCall("append message", func() error {
		return e.remote.AppendMessage(ctx, conversationID, msg)
	})
	e.mirror("append message", func() error {
		return e.local.AppendMessage(ctx, conversationID, msg)
	})
	return msg.ID
}

// Load performs the startup enumeration: remote first, local fallback, and
// when neither yields any conversation a fresh one is created holding only
// the fixed welcome message.
func (e *Engine) Load(ctx context.Context) []*store.Conversation {
	convs, err := e.ListConversations(ctx)
	if err != nil {
		e.logger.Warn("loading conversations failed, starting fresh", "error", err)
		convs = nil
	}
	if len(convs) == 0 {
		convs = []*store.Conversation{e.SeedConversation(ctx)}
	}
	return convs
}

// SeedConversation creates a new conversation containing only the welcome
// message, persisted through both stores.
func (e *Engine) SeedConversation(ctx context.Context) *store.Conversation {
	conv := e.CreateConversation(ctx, newChatTitle, welcomePreview)
	welcome := &store.Message{
		ID:        uuid.New().String(),
		Content:   WelcomeMessage,
		Timestamp: time.Now().UTC(),
		IsUser:    false,
	}
	e.AppendMessage(ctx, conv.ID, welcome)
	conv.Messages = []*store.Message{welcome}
	return conv
}
