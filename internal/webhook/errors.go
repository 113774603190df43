// ABOUTME: Typed error taxonomy for message delivery failures.
// ABOUTME: Every failure path yields a well-formed *Error with a retryable flag.

package webhook

import "fmt"

// Kind classifies a delivery failure.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindTimeout   Kind = "timeout"
	KindRateLimit Kind = "rate_limit"
	KindServer    Kind = "server"
	KindUnknown   Kind = "unknown"
)

// Error is a delivery failure surfaced to the user. Retryable indicates
// whether an explicit user retry is worth offering; it never triggers
// automatic retries by itself.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(kind Kind, message string, retryable bool) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryable}
}
