// ABOUTME: Conversation controller, the top-level use-case orchestrator.
// ABOUTME: Gates submissions, drives delivery, and persists both sides of each turn.

package chat

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitebuilder/sitechat/internal/store"
	"github.com/sitebuilder/sitechat/internal/webhook"
)

const (
	// minSubmitInterval is the client-side rate gate between accepted
	// submissions, independent of server-side 429 handling.
	minSubmitInterval = 500 * time.Millisecond

	newChatTitle = "New Chat"
	titleLimit   = 30
	previewLimit = 50
)

// Deliverer sends one user message to the webhook. Satisfied by
// *webhook.Client.
type Deliverer interface {
	Send(ctx context.Context, sessionID, message string, ts time.Time) (*webhook.Reply, error)
}

// Sessions provides the per-device session identifier. Satisfied by
// *session.Manager.
type Sessions interface {
	SessionID() string
}

// Engine is what the controller needs from the sync layer.
type Engine interface {
	Load(ctx context.Context) []*store.Conversation
	SeedConversation(ctx context.Context) *store.Conversation
	ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error)
	UpdateConversation(ctx context.Context, id, title, preview string)
	DeleteConversation(ctx context.Context, id string)
	AppendMessage(ctx context.Context, conversationID string, msg *store.Message) string
}

// Controller owns the current conversation state and runs one user turn at a
// time: Idle -> Sending -> Idle. All mutations of the message list happen
// here; the engine only persists.
type Controller struct {
	sessions Sessions
	delivery Deliverer
	engine   Engine
	events   *Broadcaster
	logger   *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	conversations []*store.Conversation
	currentID     string
	messages      []*store.Message
	lastSubmit    time.Time
}

// NewController wires the controller. events may be shared with the UI layer.
func NewController(sessions Sessions, delivery Deliverer, engine Engine, events *Broadcaster, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sessions: sessions,
		delivery: delivery,
		engine:   engine,
		events:   events,
		logger:   logger.With("component", "controller"),
		now:      time.Now,
	}
}

// Start loads the conversation list and selects the most recent conversation
// as current, hydrating its messages.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conversations = c.engine.Load(ctx)
	c.selectLocked(ctx, c.conversations[0])
}

// selectLocked makes conv current and loads its messages if not embedded.
func (c *Controller) selectLocked(ctx context.Context, conv *store.Conversation) {
	c.currentID = conv.ID
	if len(conv.Messages) > 0 {
		c.messages = append([]*store.Message(nil), conv.Messages...)
	} else {
		msgs, err := c.engine.ListMessages(ctx, conv.ID)
		if err != nil {
			c.logger.Warn("loading messages failed", "conversation_id", conv.ID, "error", err)
			msgs = nil
		}
		c.messages = msgs
	}
	c.events.Publish(&Event{Type: EventConversation, ConversationID: conv.ID})
}

// Submit runs one user turn. Within 500ms of the previous accepted
// submission it is a silent no-op: no message is appended and no delivery
// call is made.
func (c *Controller) Submit(ctx context.Context, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitLocked(ctx, text)
}

func (c *Controller) submitLocked(ctx context.Context, text string) {
	if text == "" {
		return
	}

	now := c.now()
	if now.Sub(c.lastSubmit) < minSubmitInterval {
		return
	}
	c.lastSubmit = now

	// Clear any previously displayed error and follow-up suggestions.
	c.events.Publish(&Event{Type: EventError, Err: nil})
	c.events.Publish(&Event{Type: EventFollowUps, FollowUps: nil})

	userMsg := &store.Message{
		ID:        uuid.New().String(),
		Content:   text,
		Timestamp: now.UTC(),
		IsUser:    true,
	}
	c.appendLocked(ctx, userMsg)

	c.events.Publish(&Event{Type: EventTyping, Typing: true})
	defer c.events.Publish(&Event{Type: EventTyping, Typing: false})

	reply, err := c.delivery.Send(ctx, c.sessions.SessionID(), text, userMsg.Timestamp)
	if err != nil {
		var chatErr *webhook.Error
		if !errors.As(err, &chatErr) {
			chatErr = &webhook.Error{Kind: webhook.KindUnknown, Message: err.Error(), Retryable: true}
		}
		c.logger.Debug("delivery failed", "kind", chatErr.Kind, "retryable", chatErr.Retryable)
		c.events.Publish(&Event{Type: EventError, Err: chatErr})
		return
	}

	botMsg := &store.Message{
		ID:         uuid.New().String(),
		Content:    reply.Text,
		Timestamp:  c.now().UTC(),
		IsUser:     false,
		IsMarkdown: true,
	}
	c.appendLocked(ctx, botMsg)

	if len(reply.FollowUps) > 0 {
		c.events.Publish(&Event{Type: EventFollowUps, FollowUps: reply.FollowUps})
	}
}

// RetryLast re-submits the content of the most recent user message in the
// current conversation, subject to the same rate gate.
func (c *Controller) RetryLast(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].IsUser {
			c.submitLocked(ctx, c.messages[i].Content)
			return
		}
	}
}

// appendLocked appends msg to the current conversation: in-memory first
// (atomic from the caller's point of view), then persisted via the engine,
// then the conversation metadata is derived and updated.
func (c *Controller) appendLocked(ctx context.Context, msg *store.Message) {
	c.messages = append(c.messages, msg)
	c.engine.AppendMessage(ctx, c.currentID, msg)

	conv := findConversation(c.conversations, c.currentID)
	if conv != nil {
		// The title is derived from the first user message, then frozen.
		if conv.Title == newChatTitle && msg.IsUser {
			conv.Title = truncateRunes(msg.Content, titleLimit) + "..."
		}
		conv.LastMessage = previewOf(msg.Content)
		conv.UpdatedAt = msg.Timestamp
		conv.Messages = nil // hydrated lazily from the stores
		c.engine.UpdateConversation(ctx, conv.ID, conv.Title, conv.LastMessage)
		c.sortLocked()
	}

	c.events.Publish(&Event{Type: EventMessage, Message: msg, ConversationID: c.currentID})
}

// NewConversation creates a fresh welcome-seeded conversation and makes it
// current.
func (c *Controller) NewConversation(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := c.engine.SeedConversation(ctx)
	c.conversations = append([]*store.Conversation{conv}, c.conversations...)
	c.events.Publish(&Event{Type: EventError, Err: nil})
	c.events.Publish(&Event{Type: EventFollowUps, FollowUps: nil})
	c.selectLocked(ctx, conv)
}

// SwitchConversation makes the conversation with the given id current.
func (c *Controller) SwitchConversation(ctx context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv := findConversation(c.conversations, id)
	if conv == nil {
		return false
	}
	c.events.Publish(&Event{Type: EventError, Err: nil})
	c.events.Publish(&Event{Type: EventFollowUps, FollowUps: nil})
	c.selectLocked(ctx, conv)
	return true
}

// DeleteConversation removes a conversation and its messages. Deleting the
// current conversation switches to the next most recent one, or seeds a
// fresh welcome conversation when none remain.
func (c *Controller) DeleteConversation(ctx context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filtered := c.conversations[:0]
	for _, conv := range c.conversations {
		if conv.ID != id {
			filtered = append(filtered, conv)
		}
	}
	if len(filtered) == len(c.conversations) {
		return
	}
	c.conversations = filtered
	c.engine.DeleteConversation(ctx, id)

	if id != c.currentID {
		return
	}
	if len(c.conversations) > 0 {
		c.selectLocked(ctx, c.conversations[0])
		return
	}
	conv := c.engine.SeedConversation(ctx)
	c.conversations = []*store.Conversation{conv}
	c.selectLocked(ctx, conv)
}

// Conversations returns a snapshot of the conversation list, most recent
// first.
func (c *Controller) Conversations() []*store.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*store.Conversation(nil), c.conversations...)
}

// Messages returns a snapshot of the current conversation's messages.
func (c *Controller) Messages() []*store.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*store.Message(nil), c.messages...)
}

// CurrentID returns the id of the current conversation.
func (c *Controller) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

func (c *Controller) sortLocked() {
	sort.SliceStable(c.conversations, func(i, j int) bool {
		return c.conversations[i].UpdatedAt.After(c.conversations[j].UpdatedAt)
	})
}

func findConversation(convs []*store.Conversation, id string) *store.Conversation {
	for _, conv := range convs {
		if conv.ID == id {
			return conv
		}
	}
	return nil
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// previewOf derives the conversation list preview from a message: at most 50
// runes, with an ellipsis only when truncated.
func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLimit {
		return content
	}
	return string(runes[:previewLimit]) + "..."
}
