package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx := context.Background()
	ch1, _ := b.Subscribe(ctx)
	ch2, _ := b.Subscribe(ctx)

	b.Publish(&Event{Type: EventTyping, Typing: true})

	for _, ch := range []<-chan *Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, EventTyping, ev.Type)
			assert.True(t, ev.Typing)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, subID := b.Subscribe(context.Background())
	b.Unsubscribe(subID)

	_, open := <-ch
	assert.False(t, open, "channel must be closed after unsubscribe")

	// Publishing afterwards must not panic
	b.Publish(&Event{Type: EventTyping})

	// Double unsubscribe is harmless
	b.Unsubscribe(subID)
}

func TestBroadcaster_ContextCancelUnsubscribes(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("channel was not closed after context cancellation")
	}
}

func TestBroadcaster_SlowSubscriberDropsEvents(t *testing.T) {
	b := NewBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(context.Background())

	// Overfill the buffer; the excess must be dropped, never blocking
	for i := 0; i < subscriberBufferSize+10; i++ {
		b.Publish(&Event{Type: EventMessage})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			require.Equal(t, subscriberBufferSize, received)
			return
		}
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster(nil)

	ch, _ := b.Subscribe(context.Background())
	b.Close()

	_, open := <-ch
	assert.False(t, open)
}
