package warehouse

import (
	"fmt"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Domain errors for the stored-unit ledger.
var (
	// ErrNotFound indicates the requested unit was not found.
	ErrNotFound = fmt.Errorf("stored unit %w", shared.ErrNotFound)

	// ErrNotReservable indicates the unit is not in STORED status or is
	// already promised to another active order.
	ErrNotReservable = fmt.Errorf("unit not available for reservation: %w", shared.ErrConflict)
	// ErrStillReferenced indicates an active work order still references the
	// unit, so deleting it would orphan a reinstall line.
	ErrStillReferenced = fmt.Errorf("unit referenced by an active work order: %w", shared.ErrConflict)

	// ErrAlreadyReleased indicates release was attempted twice.
	ErrAlreadyReleased = fmt.Errorf("unit already released: %w", shared.ErrInvalidState)
	// ErrNotReleased indicates revert was attempted on a unit still in custody.
	ErrNotReleased = fmt.Errorf("unit is not released: %w", shared.ErrInvalidState)

	// ErrReleaseInfoMissing indicates release type or date was omitted.
	ErrReleaseInfoMissing = fmt.Errorf("release type and date are required: %w", shared.ErrValidation)
)
