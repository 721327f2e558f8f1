package settlement

import (
	"fmt"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

var (
	ErrOrderNotFound     = fmt.Errorf("work order not found: %w", shared.ErrNotFound)
	ErrInvalidTarget     = fmt.Errorf("unknown settlement status: %w", shared.ErrValidation)
	ErrInvalidTransition = fmt.Errorf("settlement transition not allowed: %w", shared.ErrInvalidState)
	ErrSettledTerminal   = fmt.Errorf("settled orders cannot change settlement state: %w", shared.ErrInvalidState)
	ErrEmptyBatch        = fmt.Errorf("batch contains no order ids: %w", shared.ErrValidation)
)
