// ABOUTME: Local Store variant persisting the whole conversation list as one JSON blob.
// ABOUTME: Backed by the SQLite key/value store under a single fixed key.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// conversationsKey is the fixed key holding the serialized conversation list.
const conversationsKey = "sitebuilder-conversations"

// LocalStore implements Store on top of the device-local key/value store.
// The entire conversation list (messages included) is read and written as a
// single serialized blob, so every mutation is a load-modify-save cycle.
type LocalStore struct {
	mu     sync.Mutex
	kv     *KV
	logger *slog.Logger
}

// NewLocalStore creates a local store over an open key/value database.
func NewLocalStore(kv *KV, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{
		kv:     kv,
		logger: logger.With("component", "local-store"),
	}
}

// load reads and decodes the conversation blob. A missing key yields an
// empty list.
func (s *LocalStore) load(ctx context.Context) ([]*Conversation, error) {
	raw, err := s.kv.Get(ctx, conversationsKey)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var convs []*Conversation
	if err := json.Unmarshal([]byte(raw), &convs); err != nil {
		return nil, fmt.Errorf("decoding conversation blob: %w", err)
	}
	return convs, nil
}

// save encodes and writes the conversation blob.
func (s *LocalStore) save(ctx context.Context, convs []*Conversation) error {
	raw, err := json.Marshal(convs)
	if err != nil {
		return fmt.Errorf("encoding conversation blob: %w", err)
	}
	return s.kv.Set(ctx, conversationsKey, string(raw))
}

func (s *LocalStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *LocalStore) CreateConversation(ctx context.Context, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.load(ctx)
	if err != nil {
		return err
	}
	convs = append([]*Conversation{conv}, convs...)
	return s.save(ctx, convs)
}

func (s *LocalStore) UpdateConversation(ctx context.Context, id, title, preview string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.load(ctx)
	if err != nil {
		return err
	}
	conv := findConversation(convs, id)
	if conv == nil {
		return ErrNotFound
	}
	conv.Title = title
	conv.LastMessage = preview
	conv.UpdatedAt = time.Now().UTC()
	return s.save(ctx, convs)
}

func (s *LocalStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.load(ctx)
	if err != nil {
		return err
	}
	filtered := convs[:0]
	for _, c := range convs {
		if c.ID != id {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == len(convs) {
		return ErrNotFound
	}
	return s.save(ctx, filtered)
}

func (s *LocalStore) ListMessages(ctx context.Context, conversationID string) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	conv := findConversation(convs, conversationID)
	if conv == nil {
		return nil, ErrNotFound
	}
	msgs := make([]*Message, len(conv.Messages))
	copy(msgs, conv.Messages)
	return msgs, nil
}

func (s *LocalStore) AppendMessage(ctx context.Context, conversationID string, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	convs, err := s.load(ctx)
	if err != nil {
		return err
	}
	conv := findConversation(convs, conversationID)
	if conv == nil {
		return ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.Timestamp
	return s.save(ctx, convs)
}

func findConversation(convs []*Conversation, id string) *Conversation {
	for _, c := range convs {
		if c.ID == id {
			return c
		}
	}
	return nil
}
