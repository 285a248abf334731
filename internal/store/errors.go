package store

import "errors"

// Sentinel errors returned by store operations. Services translate these
// into the user-facing error taxonomy.
var (
	// ErrNotFound is returned when a record or index entry is absent.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned on primary-key or unique-index conflicts.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrNotPending is returned by conditional invitation updates when the
	// record has left the pending state.
	ErrNotPending = errors.New("invitation is not pending")
	// ErrInvitationExpired is returned by the conditional accept when the
	// invitation's expiry has passed. The stored record is not mutated.
	ErrInvitationExpired = errors.New("invitation expired")
)
