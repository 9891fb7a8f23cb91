// Package client implements the state synchronization core that sits between
// the command API and the event stream. Writes go out as REST commands and
// are never applied locally; reads arrive as full-result-set snapshots on
// long-lived subscriptions and are folded into a reconciliation store that
// rendering reads from.
package client

import (
	"errors"
	"fmt"
)

// ValidationError reports bad local input. It is raised before a command is
// dispatched and never travels over the wire.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AuthorizationError reports a command rejected server-side because the actor
// lacks the role for the attempted transition.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// ConflictError reports that the target entity was no longer in the expected
// state, a double-accept for example. The store is left untouched; the next
// snapshot confirms the authoritative state.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// TransientNetworkError reports a timeout or 5xx. Safe to retry.
type TransientNetworkError struct {
	Message string
	Err     error
}

func (e *TransientNetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// SubscriptionError reports a lost event stream. The affected bucket degrades
// to stale data; other subscriptions keep running.
type SubscriptionError struct {
	Bucket  Bucket
	Message string
	Err     error
}

func (e *SubscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("subscription %s: %s: %v", e.Bucket, e.Message, e.Err)
	}
	return fmt.Sprintf("subscription %s: %s", e.Bucket, e.Message)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }

// Retriable reports whether the error is worth retrying as-is. Wrapped
// transient errors count.
func Retriable(err error) bool {
	var transient *TransientNetworkError
	return errors.As(err, &transient)
}
