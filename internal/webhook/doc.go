// Package webhook implements the message delivery client for the remote
// workflow endpoint.
//
// # Protocol
//
// Each Send call issues one logical POST with a JSON body:
//
//	{"session_id": "...", "message": "...", "timestamp": "RFC3339"}
//
// plus an optional bearer Authorization header. A successful response must
// carry a string "reply" field; an optional "follow_up" string array is
// passed through as quick-reply suggestions.
//
// # Failure policy
//
//   - 30s per-attempt timeout, mapped to a retryable timeout error
//   - 429 retried with exponential backoff (2s, 4s, 8s); exhausting the
//     budget yields a non-retryable rate_limit error
//   - other non-2xx statuses yield a server error, retryable only for 5xx
//   - a malformed response body yields a non-retryable server error
//   - connectivity failures yield a retryable network error
//   - everything else collapses to a retryable unknown error
//
// Retryable means the caller may offer an explicit user retry; the client
// never retries automatically outside the 429 backoff sequence.
package webhook
