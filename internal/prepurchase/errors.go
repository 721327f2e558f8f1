package prepurchase

import (
	"fmt"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

var (
	ErrNotFound        = fmt.Errorf("prepurchase unit not found: %w", shared.ErrNotFound)
	ErrUsageNotFound   = fmt.Errorf("usage record not found: %w", shared.ErrNotFound)
	ErrInvalidQuantity = fmt.Errorf("used quantity must be positive: %w", shared.ErrValidation)
)
