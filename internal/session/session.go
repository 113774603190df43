// ABOUTME: Session identity provider producing stable per-device identifiers.
// ABOUTME: Persists UUIDs best-effort; storage failures degrade to ephemeral ids.

package session

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sitebuilder/sitechat/internal/store"
)

const (
	// sessionKey holds the webhook session identifier.
	sessionKey = "sitebuilder-chat-session"
	// userIDKey holds the anonymous remote-backend user identifier,
	// independent of the chat session.
	userIDKey = "sitebuilder-user-id"

	storageTimeout = 5 * time.Second
)

// uuidV4Pattern matches a syntactically valid UUID-v4.
var uuidV4Pattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// Storage is the key/value persistence the manager needs. Satisfied by
// *store.KV.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Manager provides the per-device session id and the anonymous backend user
// id. Both are UUID-v4 strings persisted across restarts; if storage is
// unavailable the generated id is kept in memory for the rest of the process,
// making the identity effectively ephemeral. No failure here is ever fatal.
type Manager struct {
	storage Storage
	logger  *slog.Logger

	mu        sync.Mutex
	sessionID string
	userID    string
}

// NewManager creates a session manager over the given storage. Pass nil
// logger for the default.
func NewManager(storage Storage, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage: storage,
		logger:  logger.With("component", "session"),
	}
}

// SessionID returns the device's session identifier, loading or creating it
// on first access. Idempotent within the process lifetime.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionID == "" {
		m.sessionID = m.loadOrCreate(sessionKey)
	}
	return m.sessionID
}

// UserID returns the anonymous remote-backend user identifier, provisioned
// the same way as the session id but under its own key.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.userID == "" {
		m.userID = m.loadOrCreate(userIDKey)
	}
	return m.userID
}

// ClearSession discards the current session id and generates a fresh one,
// re-persisting it best-effort. Returns the new id.
func (m *Manager) ClearSession() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	if err := m.storage.Delete(ctx, sessionKey); err != nil {
		m.logger.Warn("could not clear persisted session", "error", err)
	}

	m.sessionID = uuid.New().String()
	m.persist(sessionKey, m.sessionID)
	return m.sessionID
}

// loadOrCreate reads a persisted id, validating it as UUID-v4. Absent or
// invalid values trigger generation and best-effort persistence.
func (m *Manager) loadOrCreate(key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	existing, err := m.storage.Get(ctx, key)
	if err == nil && uuidV4Pattern.MatchString(existing) {
		return existing
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		m.logger.Warn("storage unavailable, using temporary identity", "key", key, "error", err)
	}

	id := uuid.New().String()
	m.persist(key, id)
	return id
}

// persist writes an id to storage, swallowing failures: the id stays valid
// in memory either way, it just will not survive a restart.
func (m *Manager) persist(key, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	if err := m.storage.Set(ctx, key, id); err != nil {
		m.logger.Warn("could not persist identity, it will not survive restarts",
			"key", key, "error", err)
	}
}
