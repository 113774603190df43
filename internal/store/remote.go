// ABOUTME: Remote Store variant backed by a PostgREST-style backend over HTTP.
// ABOUTME: Every operation is one or more per-request network calls scoped by user id.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteStore implements Store against the backend's REST interface.
// All rows are scoped to an anonymous, locally generated user id; the backend
// never assigns identifiers. There is no transaction support: deleting a
// conversation deletes its messages first, and a crash between the two steps
// leaves orphaned messages.
type RemoteStore struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteStore creates a remote store. baseURL is the backend root
// (without the /rest/v1 suffix), apiKey the anonymous API key, and userID the
// persisted anonymous user identifier.
func NewRemoteStore(baseURL, apiKey, userID string, logger *slog.Logger) *RemoteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userID:     userID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "remote-store"),
	}
}

// conversationRow mirrors the backend's conversations table.
type conversationRow struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	LastMessage string `json:"last_message"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// messageRow mirrors the backend's messages table.
type messageRow struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
	IsUser         bool   `json:"is_user"`
	IsMarkdown     bool   `json:"is_markdown"`
	Timestamp      string `json:"timestamp"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// do performs one REST call. A body is JSON-encoded when non-nil, and the
// response is decoded into out when non-nil. Any non-2xx status is an error.
func (s *RemoteStore) do(ctx context.Context, method, table string, query url.Values, body, out any) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: backend returned status %d: %s", method, table, resp.StatusCode, strings.TrimSpace(string(text)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", table, err)
		}
	}
	return nil
}

func (s *RemoteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	query := url.Values{}
	query.Set("user_id", "eq."+s.userID)
	query.Set("order", "updated_at.desc")
	query.Set("select", "*")

	var rows []conversationRow
	if err := s.do(ctx, http.MethodGet, "conversations", query, nil, &rows); err != nil {
		return nil, err
	}

	convs := make([]*Conversation, 0, len(rows))
	for _, row := range rows {
		convs = append(convs, &Conversation{
			ID:          row.ID,
			Title:       row.Title,
			LastMessage: row.LastMessage,
			UpdatedAt:   parseRemoteTime(row.UpdatedAt),
		})
	}
	return convs, nil
}

func (s *RemoteStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	row := conversationRow{
		ID:          conv.ID,
		UserID:      s.userID,
		Title:       conv.Title,
		LastMessage: conv.LastMessage,
	}
	return s.do(ctx, http.MethodPost, "conversations", nil, row, nil)
}

func (s *RemoteStore) UpdateConversation(ctx context.Context, id, title, preview string) error {
	query := url.Values{}
	query.Set("id", "eq."+id)
	query.Set("user_id", "eq."+s.userID)

	patch := map[string]string{
		"title":        title,
		"last_message": preview,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	}
	return s.do(ctx, http.MethodPatch, "conversations", query, patch, nil)
}

func (s *RemoteStore) DeleteConversation(ctx context.Context, id string) error {
	// Delete messages first: the backend enforces no foreign keys, so the
	// conversation row must not disappear while its messages still exist.
	msgQuery := url.Values{}
	msgQuery.Set("conversation_id", "eq."+id)
	if err := s.do(ctx, http.MethodDelete, "messages", msgQuery, nil, nil); err != nil {
		return err
	}

	convQuery := url.Values{}
	convQuery.Set("id", "eq."+id)
	convQuery.Set("user_id", "eq."+s.userID)
	return s.do(ctx, http.MethodDelete, "conversations", convQuery, nil, nil)
}

func (s *RemoteStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	query := url.Values{}
	query.Set("conversation_id", "eq."+conversationID)
	query.Set("order", "timestamp.asc")
	query.Set("select", "*")

	var rows []messageRow
	if err := s.do(ctx, http.MethodGet, "messages", query, nil, &rows); err != nil {
		return nil, err
	}

	msgs := make([]*Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, &Message{
			ID:         row.ID,
			Content:    row.Content,
			Timestamp:  parseRemoteTime(row.Timestamp),
			IsUser:     row.IsUser,
			IsMarkdown: row.IsMarkdown,
		})
	}
	return msgs, nil
}

func (s *RemoteStore) AppendMessage(ctx context.Context, conversationID string, msg *Message) error {
	row := messageRow{
		ID:             msg.ID,
		ConversationID: conversationID,
		Content:        msg.Content,
		IsUser:         msg.IsUser,
		IsMarkdown:     msg.IsMarkdown,
		Timestamp:      msg.Timestamp.UTC().Format(time.RFC3339),
	}
	return s.do(ctx, http.MethodPost, "messages", nil, row, nil)
}

// parseRemoteTime parses the backend's timestamp format. Backends emit
// RFC3339 with varying sub-second precision; unparseable values yield the
// zero time rather than an error since timestamps are informational.
func parseRemoteTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
