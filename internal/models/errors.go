package models

import "errors"

// Sentinel errors returned by the service layer. Handlers translate these to
// HTTP status codes with errors.Is, so services must keep them in the wrap
// chain (fmt.Errorf with %w).
var (
	// ErrValidation indicates malformed input, e.g. an out-of-range quantity.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates the operation would violate a uniqueness
	// invariant, e.g. a second open offer for the same user+plant.
	ErrConflict = errors.New("conflict")

	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAuthorized indicates the acting user is not the required party
	// (owner, sender or receiver).
	ErrNotAuthorized = errors.New("not authorized")

	// ErrInvalidState indicates the right actor attempted an action from the
	// wrong lifecycle state, e.g. confirming a match that was already sent.
	ErrInvalidState = errors.New("invalid state")
)
