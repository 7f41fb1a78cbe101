package schedule

import "errors"

// Core scheduling errors. Handlers map these to HTTP statuses at the request
// boundary.
var (
	// ErrInvalidParty means the target party does not exist or does not
	// hold the therapist role.
	ErrInvalidParty = errors.New("invalid therapist")

	// ErrInvalidInterval means the requested window has start >= end or a
	// non-positive duration.
	ErrInvalidInterval = errors.New("invalid time interval")

	// ErrSchedulingConflict means the therapist already has a scheduled or
	// ongoing session overlapping the requested window.
	ErrSchedulingConflict = errors.New("therapist is not available at this time")

	// ErrNotFound means the session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrUnauthorized means the caller is not a participant of the session
	// (or, for cancellation, an admin).
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidStateTransition means the requested status change is not an
	// edge of the session state machine.
	ErrInvalidStateTransition = errors.New("invalid session state transition")
)
