package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrToolNotFound is returned when a tool ID is not part of the catalog.
var ErrToolNotFound = errors.New("tool not found")

// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
var ErrInvalidTransition = errors.New("invalid phase transition")

// ErrRequestFailed wraps every failed backend request, whether the transport
// failed or the backend answered with a non-OK status.
var ErrRequestFailed = errors.New("request failed")
