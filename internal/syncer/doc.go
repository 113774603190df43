// Package syncer keeps conversation persistence working across backend
// outages.
//
// The engine prefers the remote store when one is configured and mirrors
// every write to the local store regardless of the remote outcome. After an
// offline period the two stores can therefore diverge: the engine does not
// run a reconciliation pass on reconnect, it simply resumes reading from the
// remote store once a call succeeds. This drift is accepted behavior: a
// merge would need multi-writer conflict rules, and the remote backend is
// last-writer-wins.
//
// Status is advisory UI state only. It is written without coordination by
// whichever operation completes last and is never persisted.
package syncer
