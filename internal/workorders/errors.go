package workorders

import (
	"fmt"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Domain errors for work orders. Each wraps a taxonomy sentinel from
// internal/shared so callers classify with errors.Is.
var (
	// ErrNotFound indicates the requested work order was not found.
	ErrNotFound = fmt.Errorf("work order %w", shared.ErrNotFound)

	// Validation errors.
	ErrInvalidStatus       = fmt.Errorf("unknown order status: %w", shared.ErrValidation)
	ErrInvalidWorkType     = fmt.Errorf("unknown work type: %w", shared.ErrValidation)
	ErrInvalidQuantity     = fmt.Errorf("quantity must be greater than zero: %w", shared.ErrValidation)
	ErrBusinessNameMissing = fmt.Errorf("business name is required: %w", shared.ErrValidation)
	ErrStoredUnitRequired  = fmt.Errorf("reinstall item must reference exactly one stored unit: %w", shared.ErrValidation)
	ErrStoredUnitForbidden = fmt.Errorf("only reinstall items may reference a stored unit: %w", shared.ErrValidation)

	// State transition errors.
	ErrOrderTerminal      = fmt.Errorf("order is settled or cancelled: %w", shared.ErrInvalidState)
	ErrAlreadyCompleted   = fmt.Errorf("order already has an install complete date: %w", shared.ErrInvalidState)
	ErrNotYetDeliverable  = fmt.Errorf("order has no supplier order number: %w", shared.ErrInvalidState)
	ErrAlreadyDelivered   = fmt.Errorf("order already marked delivered: %w", shared.ErrInvalidState)
)
