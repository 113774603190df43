package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	return NewLocalStore(setupTestKV(t), nil)
}

func testConversation(id string, updatedAt time.Time) *Conversation {
	return &Conversation{
		ID:          id,
		Title:       "New Chat",
		LastMessage: "Hello! I'm SiteBuilder...",
		UpdatedAt:   updatedAt,
	}
}

func TestLocalStore_CreateAndList(t *testing.T) {
	s := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1", time.Now().UTC())))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-1", convs[0].ID)
	assert.Equal(t, "New Chat", convs[0].Title)
}

func TestLocalStore_List_Empty(t *testing.T) {
	s := setupLocalStore(t)

	convs, err := s.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestLocalStore_List_OrderedByUpdatedAt(t *testing.T) {
	s := setupLocalStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, s.CreateConversation(ctx, testConversation("old", base.Add(-2*time.Hour))))
	require.NoError(t, s.CreateConversation(ctx, testConversation("newest", base)))
	require.NoError(t, s.CreateConversation(ctx, testConversation("middle", base.Add(-time.Hour))))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 3)
	assert.Equal(t, "newest", convs[0].ID)
	assert.Equal(t, "middle", convs[1].ID)
	assert.Equal(t, "old", convs[2].ID)
}

func TestLocalStore_AppendMessage_RoundTrip(t *testing.T) {
	// Appending N messages and reloading must reproduce the same ordered
	// sequence of content/isUser/isMarkdown.
	kv := setupTestKV(t)
	s := NewLocalStore(kv, nil)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1", time.Now().UTC())))

	type triple struct {
		content            string
		isUser, isMarkdown bool
	}
	want := []triple{
		{"I want a store", true, false},
		{"Great choice!", false, true},
		{"Tell me more", true, false},
		{"Here are the **details**", false, true},
	}
	for i, w := range want {
		msg := &Message{
			ID:         fmt.Sprintf("msg-%d", i),
			Content:    w.content,
			Timestamp:  time.Now().UTC(),
			IsUser:     w.isUser,
			IsMarkdown: w.isMarkdown,
		}
		require.NoError(t, s.AppendMessage(ctx, "conv-1", msg))
	}

	// Reload through a fresh store over the same kv database
	reloaded := NewLocalStore(kv, nil)
	msgs, err := reloaded.ListMessages(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, len(want))
	for i, w := range want {
		assert.Equal(t, w.content, msgs[i].Content)
		assert.Equal(t, w.isUser, msgs[i].IsUser)
		assert.Equal(t, w.isMarkdown, msgs[i].IsMarkdown)
	}
}

func TestLocalStore_AppendMessage_BumpsUpdatedAt(t *testing.T) {
	s := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1", time.Now().UTC().Add(-time.Hour))))

	ts := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.AppendMessage(ctx, "conv-1", &Message{
		ID:        "msg-1",
		Content:   "hi",
		Timestamp: ts,
		IsUser:    true,
	}))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.True(t, convs[0].UpdatedAt.Equal(ts))
}

func TestLocalStore_UpdateConversation(t *testing.T) {
	s := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1", time.Now().UTC())))
	require.NoError(t, s.UpdateConversation(ctx, "conv-1", "I want a store...", "Great choice!"))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "I want a store...", convs[0].Title)
	assert.Equal(t, "Great choice!", convs[0].LastMessage)
}

func TestLocalStore_UpdateConversation_NotFound(t *testing.T) {
	s := setupLocalStore(t)

	err := s.UpdateConversation(context.Background(), "missing", "t", "p")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_DeleteConversation(t *testing.T) {
	s := setupLocalStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-1", time.Now().UTC())))
	require.NoError(t, s.CreateConversation(ctx, testConversation("conv-2", time.Now().UTC())))

	require.NoError(t, s.DeleteConversation(ctx, "conv-1"))

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "conv-2", convs[0].ID)

	// Messages are gone with the conversation
	_, err = s.ListMessages(ctx, "conv-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_DeleteConversation_NotFound(t *testing.T) {
	s := setupLocalStore(t)

	err := s.DeleteConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_AppendMessage_NotFound(t *testing.T) {
	s := setupLocalStore(t)

	err := s.AppendMessage(context.Background(), "missing", &Message{ID: "m", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}
