package prepurchase

import (
	"context"
	"log/slog"
	"time"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Service maintains the accounting identity remaining = quantity - usedQuantity.
// UsedQuantity is always recomputed as the sum of usage records inside the
// same transaction as the mutation, never incremented independently.
type Service struct {
	logger *slog.Logger
	repo   Repository
}

// NewService constructs Service.
func NewService(logger *slog.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo}
}

func (s *Service) Create(ctx context.Context, req CreateUnitRequest) (*Unit, error) {
	unit := Unit{
		ProductName:  shared.NormalizeName(req.ProductName),
		Model:        req.Model,
		Manufacturer: req.Manufacturer,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		PurchaseDate: req.PurchaseDate,
		Supplier:     req.Supplier,
		Notes:        req.Notes,
	}
	id, err := s.repo.Create(ctx, unit)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Unit, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListUnitsRequest) ([]Unit, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateUnitRequest) (*Unit, error) {
	updates := map[string]any{}
	if req.ProductName != nil {
		updates["product_name"] = shared.NormalizeName(*req.ProductName)
	}
	if req.Model != nil {
		updates["model"] = *req.Model
	}
	if req.Manufacturer != nil {
		updates["manufacturer"] = *req.Manufacturer
	}
	if req.Quantity != nil {
		updates["quantity"] = *req.Quantity
	}
	if req.UnitPrice != nil {
		updates["unit_price"] = *req.UnitPrice
	}
	if req.PurchaseDate != nil {
		updates["purchase_date"] = dateOrNil(req.PurchaseDate)
	}
	if req.Supplier != nil {
		updates["supplier"] = *req.Supplier
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// AddUsage appends a usage record against a site. No upper bound is enforced:
// operators may over-allocate and reconcile manually.
func (s *Service) AddUsage(ctx context.Context, unitID int64, req AddUsageRequest) (*Unit, error) {
	if req.UsedQuantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.Get(ctx, unitID); err != nil {
			return err
		}
		rec := UsageRecord{
			UnitID:       unitID,
			SiteName:     shared.NormalizeName(req.SiteName),
			UsedQuantity: req.UsedQuantity,
			UsedDate:     req.UsedDate,
			Notes:        req.Notes,
		}
		if _, err := repo.InsertUsage(ctx, rec); err != nil {
			return err
		}
		return s.recompute(ctx, repo, unitID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, unitID)
}

// RemoveUsage deletes a usage record and recomputes the owning unit's
// used quantity.
func (s *Service) RemoveUsage(ctx context.Context, usageID int64) (*Unit, error) {
	var unitID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		rec, err := repo.GetUsage(ctx, usageID)
		if err != nil {
			return err
		}
		unitID = rec.UnitID
		if err := repo.DeleteUsage(ctx, usageID); err != nil {
			return err
		}
		return s.recompute(ctx, repo, unitID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, unitID)
}

// Delete removes the unit and cascades its usage records.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, id)
	})
}

// recompute restores the sum invariant. A negative sum means the records were
// already inconsistent; it is floored at zero and logged, not fatal.
func (s *Service) recompute(ctx context.Context, repo Repository, unitID int64) error {
	used, err := repo.SumUsage(ctx, unitID)
	if err != nil {
		return err
	}
	if used < 0 {
		s.logger.Warn("negative usage sum, flooring at zero", "unit_id", unitID, "sum", used)
		used = 0
	}
	return repo.SetUsedQuantity(ctx, unitID, used)
}

// CreateUnitRequest is the intake payload for a prepurchase unit.
type CreateUnitRequest struct {
	ProductName  string     `json:"product_name" validate:"required,max=200"`
	Model        string     `json:"model" validate:"max=100"`
	Manufacturer string     `json:"manufacturer" validate:"max=100"`
	Quantity     int        `json:"quantity" validate:"required,gt=0"`
	UnitPrice    int64      `json:"unit_price" validate:"gte=0"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	Supplier     string     `json:"supplier" validate:"max=200"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

// UpdateUnitRequest is a partial update; nil fields are left untouched.
type UpdateUnitRequest struct {
	ProductName  *string    `json:"product_name,omitempty" validate:"omitempty,max=200"`
	Model        *string    `json:"model,omitempty" validate:"omitempty,max=100"`
	Manufacturer *string    `json:"manufacturer,omitempty" validate:"omitempty,max=100"`
	Quantity     *int       `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice    *int64     `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	Supplier     *string    `json:"supplier,omitempty" validate:"omitempty,max=200"`
	Notes        *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AddUsageRequest consumes a sub-quantity against a named site.
type AddUsageRequest struct {
	SiteName     string    `json:"site_name" validate:"required,max=200"`
	UsedQuantity int       `json:"used_quantity" validate:"required,gt=0"`
	UsedDate     time.Time `json:"used_date" validate:"required"`
	Notes        string    `json:"notes" validate:"max=2000"`
}

// ListUnitsRequest filters the unit listing.
type ListUnitsRequest struct {
	ProductName   *string `json:"product_name,omitempty"`
	AvailableOnly bool    `json:"available_only,omitempty"`
	Limit         int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset        int     `json:"offset" validate:"gte=0"`
}
