// ABOUTME: In-memory fan-out broadcaster for UI-facing chat events.
// ABOUTME: Publishes controller state changes to all subscribers without blocking.

package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sitebuilder/sitechat/internal/store"
	"github.com/sitebuilder/sitechat/internal/syncer"
	"github.com/sitebuilder/sitechat/internal/webhook"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// EventType identifies what a published Event carries.
type EventType string

const (
	// EventMessage: a message was appended to the current conversation.
	EventMessage EventType = "message"
	// EventTyping: the typing indicator turned on or off.
	EventTyping EventType = "typing"
	// EventError: a delivery error to display; a nil Err clears the display.
	EventError EventType = "error"
	// EventFollowUps: quick-reply suggestions; an empty list clears them.
	EventFollowUps EventType = "follow_ups"
	// EventSyncStatus: the engine's sync status changed.
	EventSyncStatus EventType = "sync_status"
	// EventConversation: the current conversation changed.
	EventConversation EventType = "conversation"
)

// Event is one UI-visible state change.
type Event struct {
	Type           EventType
	Message        *store.Message
	Typing         bool
	Err            *webhook.Error
	FollowUps      []string
	Status         syncer.Status
	ConversationID string
}

// Broadcaster provides in-memory pub/sub for Events. The UI layer subscribes
// once and renders whatever arrives; slow subscribers drop events rather than
// blocking the controller.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]chan *Event),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber. Returns a receive channel and a
// subscription id for later unsubscription. The subscription is cleaned up
// automatically when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan *Event, string) {
	subID := uuid.New().String()
	ch := make(chan *Event, subscriberBufferSize)

	b.mu.Lock()
	b.subscribers[subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return ch, subID
}

// Publish sends an event to all subscribers. Non-blocking: events are
// dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(event *Event) {
	b.mu.RLock()
	targets := make([]chan *Event, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		default:
			b.logger.Debug("dropped event for slow subscriber", "type", event.Type)
		}
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[subID]
	if !ok {
		return
	}
	delete(b.subscribers, subID)
	close(ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subID, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, subID)
	}
}
