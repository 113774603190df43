package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the fake backend received.
type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]any
}

// fakeBackend is a minimal PostgREST stand-in recording all requests.
type fakeBackend struct {
	t        *testing.T
	requests []recordedRequest
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  map[string]string{},
		}
		for k := range r.URL.Query() {
			rec.Query[k] = r.URL.Query().Get(k)
		}
		if r.Body != nil {
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				rec.Body = body
			}
		}
		f.requests = append(f.requests, rec)

		if f.respond != nil {
			f.respond(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func setupRemoteStore(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*RemoteStore, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{t: t, respond: respond}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return NewRemoteStore(srv.URL, "anon-key", "user-123", nil), backend
}

func TestRemoteStore_ListConversations(t *testing.T) {
	s, backend := setupRemoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"conv-1","user_id":"user-123","title":"Store plans","last_message":"Great choice!","updated_at":"2025-05-02T10:00:00+00:00"},
			{"id":"conv-2","user_id":"user-123","title":"New Chat","last_message":"Hello!","updated_at":"2025-05-01T10:00:00+00:00"}
		]`))
	})

	convs, err := s.ListConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "conv-1", convs[0].ID)
	assert.Equal(t, "Store plans", convs[0].Title)
	assert.Equal(t, 2025, convs[0].UpdatedAt.Year())

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "/rest/v1/conversations", req.Path)
	assert.Equal(t, "eq.user-123", req.Query["user_id"])
	assert.Equal(t, "updated_at.desc", req.Query["order"])
}

func TestRemoteStore_SendsAuthHeaders(t *testing.T) {
	var gotAPIKey, gotAuth string
	s, _ := setupRemoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})

	_, err := s.ListConversations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "anon-key", gotAPIKey)
	assert.Equal(t, "Bearer anon-key", gotAuth)
}

func TestRemoteStore_CreateConversation(t *testing.T) {
	s, backend := setupRemoteStore(t, nil)

	err := s.CreateConversation(context.Background(), &Conversation{
		ID:          "conv-1",
		Title:       "New Chat",
		LastMessage: "Hello! I'm SiteBuilder...",
	})
	require.NoError(t, err)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/conversations", req.Path)
	assert.Equal(t, "conv-1", req.Body["id"])
	assert.Equal(t, "user-123", req.Body["user_id"])
	assert.Equal(t, "New Chat", req.Body["title"])
}

func TestRemoteStore_DeleteConversation_MessagesFirst(t *testing.T) {
	s, backend := setupRemoteStore(t, nil)

	require.NoError(t, s.DeleteConversation(context.Background(), "conv-1"))

	// Referential cleanup: messages must be deleted before the conversation
	require.Len(t, backend.requests, 2)
	assert.Equal(t, http.MethodDelete, backend.requests[0].Method)
	assert.Equal(t, "/rest/v1/messages", backend.requests[0].Path)
	assert.Equal(t, "eq.conv-1", backend.requests[0].Query["conversation_id"])

	assert.Equal(t, http.MethodDelete, backend.requests[1].Method)
	assert.Equal(t, "/rest/v1/conversations", backend.requests[1].Path)
	assert.Equal(t, "eq.conv-1", backend.requests[1].Query["id"])
	assert.Equal(t, "eq.user-123", backend.requests[1].Query["user_id"])
}

func TestRemoteStore_ListMessages(t *testing.T) {
	s, backend := setupRemoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"m1","conversation_id":"conv-1","content":"I want a store","is_user":true,"is_markdown":false,"timestamp":"2025-05-02T10:00:00Z"},
			{"id":"m2","conversation_id":"conv-1","content":"Great choice!","is_user":false,"is_markdown":true,"timestamp":"2025-05-02T10:00:05Z"}
		]`))
	})

	msgs, err := s.ListMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "I want a store", msgs[0].Content)
	assert.True(t, msgs[0].IsUser)
	assert.Equal(t, "Great choice!", msgs[1].Content)
	assert.True(t, msgs[1].IsMarkdown)

	req := backend.requests[0]
	assert.Equal(t, "eq.conv-1", req.Query["conversation_id"])
	assert.Equal(t, "timestamp.asc", req.Query["order"])
}

func TestRemoteStore_AppendMessage(t *testing.T) {
	s, backend := setupRemoteStore(t, nil)

	ts := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	err := s.AppendMessage(context.Background(), "conv-1", &Message{
		ID:         "m1",
		Content:    "Great choice!",
		Timestamp:  ts,
		IsUser:     false,
		IsMarkdown: true,
	})
	require.NoError(t, err)

	req := backend.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/rest/v1/messages", req.Path)
	assert.Equal(t, "m1", req.Body["id"])
	assert.Equal(t, "conv-1", req.Body["conversation_id"])
	assert.Equal(t, false, req.Body["is_user"])
	assert.Equal(t, true, req.Body["is_markdown"])
	assert.Equal(t, "2025-05-02T10:00:00Z", req.Body["timestamp"])
}

func TestRemoteStore_ErrorStatusPropagates(t *testing.T) {
	s, _ := setupRemoteStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "permission denied", http.StatusForbidden)
	})

	_, err := s.ListConversations(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
