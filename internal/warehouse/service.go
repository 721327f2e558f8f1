package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hvacdesk/hvacdesk/internal/shared"
	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

// OrderRefFinder resolves the weak back-reference from a unit to the active
// work order reserving it. Implemented by the work order repository; defined
// here so the ledger stays free of a package cycle.
type OrderRefFinder interface {
	FindActiveOrderForUnit(ctx context.Context, unitID int64) (int64, bool, error)
}

// Service guards the stored-unit state machine:
// STORED → REQUESTED → RELEASED, with RELEASED → STORED as the only backward
// transition.
type Service struct {
	repo   Repository
	orders OrderRefFinder
	audit  *shared.AuditLogger
}

// NewService builds Service. audit may be nil.
func NewService(repo Repository, orders OrderRefFinder, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, orders: orders, audit: audit}
}

// Create books a unit into warehouse stock directly (manual intake).
func (s *Service) Create(ctx context.Context, req CreateUnitRequest) (*StoredUnit, error) {
	unit := StoredUnit{
		SourceSite:      shared.NormalizeName(req.SourceSite),
		SourceAffiliate: shared.NormalizeName(req.SourceAffiliate),
		Category:        req.Category,
		Model:           req.Model,
		Manufacturer:    req.Manufacturer,
		ManufactureDate: req.ManufactureDate,
		RemovedDate:     req.RemovedDate,
		Status:          UnitStored,
		WarehouseID:     req.WarehouseID,
	}
	id, err := s.repo.Create(ctx, unit)
	if err != nil {
		return nil, fmt.Errorf("create stored unit: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// IntakeRemoval books a unit removed by a completed work order. Satisfies
// workorders.StockLedger.
func (s *Service) IntakeRemoval(ctx context.Context, in workorders.RemovalIntake) (int64, error) {
	removed := in.RemovedDate
	unit := StoredUnit{
		SourceSite:      shared.NormalizeName(in.SourceSite),
		SourceAffiliate: shared.NormalizeName(in.SourceAffiliate),
		Category:        in.Category,
		Model:           in.Model,
		RemovedDate:     &removed,
		Status:          UnitStored,
		SourceOrderID:   &in.WorkOrderID,
	}
	return s.repo.Create(ctx, unit)
}

// Get returns one unit with its reserving order, if any.
func (s *Service) Get(ctx context.Context, id int64) (*UnitView, error) {
	unit, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := UnitView{StoredUnit: *unit}
	if unit.Status == UnitRequested {
		orderID, found, err := s.orders.FindActiveOrderForUnit(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			view.ReservedByOrderID = &orderID
		}
	}
	return &view, nil
}

// List returns units matching the filter.
func (s *Service) List(ctx context.Context, req ListUnitsRequest) ([]StoredUnit, int, error) {
	return s.repo.List(ctx, req)
}

// Reserve promises the unit to the given work order. The status check and
// the transition are one conditional update; when it reports no row changed,
// the unit was either missing or already promised. The reservation relation
// itself lives on the order's reinstall work item, so nothing beyond the
// status flips here. Satisfies workorders.StockLedger.
func (s *Service) Reserve(ctx context.Context, unitID, orderID int64) error {
	holderID, found, err := s.orders.FindActiveOrderForUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if found && holderID != orderID {
		return fmt.Errorf("already reserved by order %d: %w", holderID, ErrNotReservable)
	}

	ok, err := s.repo.ReserveIfStored(ctx, unitID)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := s.repo.Get(ctx, unitID); err != nil {
			return err
		}
		return ErrNotReservable
	}
	return nil
}

// Free returns a reserved unit to STORED without passing through RELEASED,
// used when the reserving order is cancelled or deleted before the unit ever
// left the warehouse.
func (s *Service) Free(ctx context.Context, unitID int64) error {
	unit, err := s.repo.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.Status == UnitReleased {
		return ErrAlreadyReleased
	}
	if unit.Status == UnitStored {
		return nil
	}
	return s.repo.SetStatus(ctx, unitID, UnitStored)
}

// Release records the unit physically leaving warehouse custody.
func (s *Service) Release(ctx context.Context, unitID int64, info ReleaseInfo) (*StoredUnit, error) {
	if !info.Type.IsValid() || info.Date.IsZero() {
		return nil, ErrReleaseInfoMissing
	}
	unit, err := s.repo.Get(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.Status == UnitReleased {
		return nil, ErrAlreadyReleased
	}
	if err := s.repo.SetReleased(ctx, unitID, info); err != nil {
		return nil, fmt.Errorf("release unit: %w", err)
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   shared.AuditUnitRelease,
		Entity:   "stored_unit",
		EntityID: strconv.FormatInt(unitID, 10),
		Meta:     map[string]any{"release_type": info.Type, "destination": info.Destination},
	})
	return s.repo.Get(ctx, unitID)
}

// RevertRelease undoes a release in full: status back to STORED and every
// release field cleared.
func (s *Service) RevertRelease(ctx context.Context, unitID int64) (*StoredUnit, error) {
	unit, err := s.repo.Get(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if unit.Status != UnitReleased {
		return nil, ErrNotReleased
	}
	if err := s.repo.ClearRelease(ctx, unitID); err != nil {
		return nil, fmt.Errorf("revert release: %w", err)
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   shared.AuditUnitRevert,
		Entity:   "stored_unit",
		EntityID: strconv.FormatInt(unitID, 10),
	})
	return s.repo.Get(ctx, unitID)
}

// Delete removes a unit from the ledger. Refused while any active work order
// references it, so a delete can never silently orphan a reinstall line.
func (s *Service) Delete(ctx context.Context, unitID int64) error {
	if _, err := s.repo.Get(ctx, unitID); err != nil {
		return err
	}
	_, found, err := s.orders.FindActiveOrderForUnit(ctx, unitID)
	if err != nil {
		return err
	}
	if found {
		return ErrStillReferenced
	}
	return s.repo.Delete(ctx, unitID)
}

// OrphanedReservations reports units sitting in REQUESTED with no active
// order referencing them, for the integrity scan job.
func (s *Service) OrphanedReservations(ctx context.Context) ([]StoredUnit, error) {
	requested, err := s.repo.ListRequested(ctx)
	if err != nil {
		return nil, err
	}
	var orphans []StoredUnit
	for _, unit := range requested {
		_, found, err := s.orders.FindActiveOrderForUnit(ctx, unit.ID)
		if err != nil {
			return nil, err
		}
		if !found {
			orphans = append(orphans, unit)
		}
	}
	return orphans, nil
}

// CreateUnitRequest is the manual intake payload.
type CreateUnitRequest struct {
	SourceSite      string     `json:"source_site" validate:"required,max=200"`
	SourceAffiliate string     `json:"source_affiliate" validate:"max=100"`
	Category        string     `json:"category" validate:"required,max=100"`
	Model           string     `json:"model" validate:"max=100"`
	Manufacturer    string     `json:"manufacturer" validate:"max=100"`
	ManufactureDate *time.Time `json:"manufacture_date,omitempty"`
	RemovedDate     *time.Time `json:"removed_date,omitempty"`
	WarehouseID     *int64     `json:"warehouse_id,omitempty"`
}

// ListUnitsRequest filters the unit listing.
type ListUnitsRequest struct {
	Status      *UnitStatus `json:"status,omitempty"`
	WarehouseID *int64      `json:"warehouse_id,omitempty"`
	Category    *string     `json:"category,omitempty"`
	Limit       int         `json:"limit" validate:"gte=0,lte=1000"`
	Offset      int         `json:"offset" validate:"gte=0"`
}
