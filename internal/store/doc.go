// Package store provides conversation persistence with two interchangeable
// backends.
//
// # Architecture
//
// The Store interface covers CRUD over conversations and their ordered
// messages. Two implementations exist:
//
//   - LocalStore: device-local persistence. The whole conversation list is
//     serialized as one JSON blob under a fixed key in a SQLite-backed
//     key/value table (KV), the terminal-app equivalent of localStorage.
//   - RemoteStore: a PostgREST-style backend with conversations and messages
//     tables, scoped per anonymous user id. Every operation is a separate
//     network call.
//
// The sync engine (internal/syncer) composes the two; nothing else should
// talk to a concrete variant directly.
//
// # Identifiers
//
// All ids are caller-supplied UUIDs, generated at the boundary that creates
// the entity. Neither variant ever assigns server-side ids.
//
// # SQLite configuration
//
// KV uses modernc.org/sqlite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// Fixed keys:
//
//   - sitebuilder-conversations: serialized conversation list (LocalStore)
//   - sitebuilder-chat-session: webhook session id (internal/session)
//   - sitebuilder-user-id: anonymous backend user id (internal/session)
//
// # Error handling
//
// ErrNotFound is returned when a conversation or key does not exist. Remote
// failures are plain wrapped errors; the sync engine collapses them to a
// success/failure signal and never surfaces them to the user.
package store
