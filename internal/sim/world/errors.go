package world

import "errors"

// Validation errors raised synchronously at the call that violates a
// precondition. Callers match with errors.Is; wrapped variants carry the
// offending identifier.
var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrNotFound            = errors.New("not found")
	ErrPastDueTime         = errors.New("due time in the past")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidMembership   = errors.New("invalid membership")
	ErrNoResource          = errors.New("insufficient resources")
)

// ErrorRecord is one entry in the world's queryable error log. Payload
// execution failures and consistency no-ops land here; validation errors do
// not (they are returned to the caller).
type ErrorRecord struct {
	Tick    uint64 `json:"tick"`
	EventID string `json:"event_id,omitempty"`
	Source  string `json:"source"`
	Message string `json:"message"`
}
