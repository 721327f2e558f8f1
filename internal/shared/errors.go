package shared

import "errors"

// Error taxonomy shared by every ledger and service. Mutation entry points wrap
// one of these sentinels so the HTTP and job layers can classify failures with
// errors.Is without knowing the originating package.
var (
	// ErrValidation indicates malformed or missing required input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates an operation would violate a uniqueness or
	// allocation invariant, e.g. double-reserving a stored unit.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates an operation is not legal from the entity's
	// current state.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound indicates a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)
