package workorders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// StockLedger is the slice of the warehouse ledger the order workflow needs.
// Orders interact with stored units only through reinstall work items:
// creating one reserves the unit, cancelling or deleting the order frees it,
// and completing a removal item books a new unit into the warehouse.
type StockLedger interface {
	Reserve(ctx context.Context, unitID, orderID int64) error
	Free(ctx context.Context, unitID int64) error
	IntakeRemoval(ctx context.Context, in RemovalIntake) (int64, error)
}

// RemovalIntake describes a physical unit entering warehouse custody after a
// removal work item completes.
type RemovalIntake struct {
	SourceSite      string
	SourceAffiliate string
	Category        string
	Model           string
	RemovedDate     time.Time
	WorkOrderID     int64
}

// Service coordinates the work order lifecycle.
type Service struct {
	logger *slog.Logger
	repo   Repository
	ledger StockLedger
	now    func() time.Time
}

// NewService builds Service.
func NewService(logger *slog.Logger, repo Repository, ledger StockLedger) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		ledger: ledger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the intake payload, persists the order with its owned
// items and equipment, and reserves every stored unit referenced by a
// reinstall line. Reservation happens after the order exists so the ledger's
// back-reference scan can see it; a failed reservation rolls the whole intake
// back by compensation.
func (s *Service) Create(ctx context.Context, req CreateWorkOrderRequest) (*WorkOrder, error) {
	if req.BusinessName == "" {
		return nil, ErrBusinessNameMissing
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	orderDate := s.now()
	if req.OrderDate != nil {
		orderDate = *req.OrderDate
	}
	docNumber, err := s.repo.GenerateNumber(ctx, orderDate)
	if err != nil {
		return nil, fmt.Errorf("generate doc number: %w", err)
	}

	order := WorkOrder{
		DocNumber:          docNumber,
		Affiliate:          shared.NormalizeName(req.Affiliate),
		BusinessName:       shared.NormalizeName(req.BusinessName),
		SiteAddress:        req.SiteAddress,
		Status:             StatusReceived,
		OrderDate:          req.OrderDate,
		RequestedInstall:   req.RequestedInstall,
		S1SettlementStatus: SettlementUnsettled,
		Quote:              req.Quote,
		Notes:              req.Notes,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderID = id

		for i, itemReq := range req.Items {
			item := WorkItem{
				WorkOrderID:  orderID,
				WorkType:     itemReq.WorkType,
				Category:     itemReq.Category,
				Model:        itemReq.Model,
				Size:         itemReq.Size,
				Quantity:     itemReq.Quantity,
				StoredUnitID: itemReq.StoredUnitID,
				LineOrder:    itemReq.LineOrder,
			}
			if item.LineOrder == 0 {
				item.LineOrder = i + 1
			}
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert work item: %w", err)
			}
		}

		for i, eqReq := range req.Equipment {
			eq := EquipmentItem{
				WorkOrderID:       orderID,
				Name:              eqReq.Name,
				Model:             eqReq.Model,
				Supplier:          eqReq.Supplier,
				OrderNumber:       eqReq.OrderNumber,
				OrderDate:         eqReq.OrderDate,
				RequestedDelivery: eqReq.RequestedDelivery,
				ScheduledDelivery: eqReq.ScheduledDelivery,
				ConfirmedDelivery: eqReq.ConfirmedDelivery,
				Quantity:          eqReq.Quantity,
				UnitPrice:         eqReq.UnitPrice,
				TotalPrice:        int64(eqReq.Quantity) * eqReq.UnitPrice,
				WarehouseID:       eqReq.WarehouseID,
				LineOrder:         eqReq.LineOrder,
			}
			if eq.LineOrder == 0 {
				eq.LineOrder = i + 1
			}
			if _, err := repo.InsertEquipment(ctx, eq); err != nil {
				return fmt.Errorf("insert equipment item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.reserveUnits(ctx, orderID, req.Items); err != nil {
		// A failed compensation leaves a RECEIVED order whose reinstall
		// items still point at stored units; that must not go unnoticed.
		if derr := s.repo.Delete(ctx, orderID); derr != nil {
			s.logger.Error("intake compensation delete failed",
				"error", derr, "order_id", orderID)
		}
		return nil, err
	}

	return s.repo.Get(ctx, orderID)
}

func (s *Service) reserveUnits(ctx context.Context, orderID int64, items []CreateWorkItemRequest) error {
	var reserved []int64
	for _, item := range items {
		if item.WorkType != WorkTypeReinstallFromStock {
			continue
		}
		if err := s.ledger.Reserve(ctx, *item.StoredUnitID, orderID); err != nil {
			for _, unitID := range reserved {
				if ferr := s.ledger.Free(ctx, unitID); ferr != nil {
					s.logger.Error("reservation rollback failed",
						"error", ferr, "unit_id", unitID, "order_id", orderID)
				}
			}
			return fmt.Errorf("reserve unit %d: %w", *item.StoredUnitID, err)
		}
		reserved = append(reserved, *item.StoredUnitID)
	}
	return nil
}

func validateItems(items []CreateWorkItemRequest) error {
	for i, item := range items {
		if !item.WorkType.IsValid() {
			return fmt.Errorf("item %d: %w", i+1, ErrInvalidWorkType)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("item %d: %w", i+1, ErrInvalidQuantity)
		}
		if item.WorkType == WorkTypeReinstallFromStock && item.StoredUnitID == nil {
			return fmt.Errorf("item %d: %w", i+1, ErrStoredUnitRequired)
		}
		if item.WorkType != WorkTypeReinstallFromStock && item.StoredUnitID != nil {
			return fmt.Errorf("item %d: %w", i+1, ErrStoredUnitForbidden)
		}
	}
	return nil
}

// Get returns one work order with its items and equipment.
func (s *Service) Get(ctx context.Context, id int64) (*WorkOrder, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, req ListWorkOrdersRequest) ([]WorkOrder, int, error) {
	if req.BusinessName != nil {
		name := shared.NormalizeName(*req.BusinessName)
		req.BusinessName = &name
	}
	return s.repo.List(ctx, req)
}

// Update applies partial field updates. Terminal orders are immutable;
// cancellation goes through Cancel so reservations are freed.
func (s *Service) Update(ctx context.Context, id int64, req UpdateWorkOrderRequest) (*WorkOrder, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.IsTerminal() {
		return nil, ErrOrderTerminal
	}

	updates := make(map[string]any)
	if req.Status != nil {
		if !req.Status.IsValid() {
			return nil, ErrInvalidStatus
		}
		if *req.Status == StatusCancelled {
			return nil, fmt.Errorf("use the cancel operation: %w", shared.ErrValidation)
		}
		updates["status"] = *req.Status
	}
	if req.SiteAddress != nil {
		updates["site_address"] = *req.SiteAddress
	}
	if req.OrderDate != nil {
		updates["order_date"] = *req.OrderDate
	}
	if req.RequestedInstall != nil {
		updates["requested_install_date"] = *req.RequestedInstall
	}
	if req.InstallSchedule != nil {
		updates["install_schedule_date"] = *req.InstallSchedule
	}
	if req.SupplierOrderNumber != nil {
		updates["supplier_order_number"] = *req.SupplierOrderNumber
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Quote != nil {
		updates["quote_equipment_subtotal"] = req.Quote.EquipmentSubtotal
		updates["quote_install_subtotal"] = req.Quote.InstallSubtotal
		updates["quote_rounding_adjustment"] = req.Quote.RoundingAdjustment
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

// Complete stamps the install complete date, moves the order to COMPLETED,
// and books a stored unit into the warehouse for every removed-for-storage
// item (one unit per physical count).
func (s *Service) Complete(ctx context.Context, id int64, completeDate time.Time) (*WorkOrder, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.IsTerminal() {
		return nil, ErrOrderTerminal
	}
	if existing.InstallComplete != nil {
		return nil, ErrAlreadyCompleted
	}

	if err := s.repo.SetInstallComplete(ctx, id, completeDate); err != nil {
		return nil, fmt.Errorf("set install complete: %w", err)
	}

	for _, item := range existing.Items {
		if item.WorkType != WorkTypeRemoveStore {
			continue
		}
		for n := 0; n < item.Quantity; n++ {
			intake := RemovalIntake{
				SourceSite:      existing.BusinessName,
				SourceAffiliate: existing.Affiliate,
				Category:        item.Category,
				Model:           item.Model,
				RemovedDate:     completeDate,
				WorkOrderID:     id,
			}
			if _, err := s.ledger.IntakeRemoval(ctx, intake); err != nil {
				return nil, fmt.Errorf("intake removed unit: %w", err)
			}
		}
	}
	return s.repo.Get(ctx, id)
}

// MarkDelivered records the explicit physical receiving step. Item-level
// confirmations never trigger this.
func (s *Service) MarkDelivered(ctx context.Context, id int64) (*WorkOrder, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.DeliveredAt != nil {
		return nil, ErrAlreadyDelivered
	}
	if existing.SupplierOrderNumber == "" {
		return nil, ErrNotYetDeliverable
	}
	if err := s.repo.SetDelivered(ctx, id, s.now()); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Cancel is a state transition, not a concurrency primitive: it marks the
// order CANCELLED and frees every stored unit it had reserved, returning them
// to STORED without passing through RELEASED.
func (s *Service) Cancel(ctx context.Context, id int64) (*WorkOrder, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status.IsTerminal() {
		return nil, ErrOrderTerminal
	}

	if err := s.repo.UpdateStatus(ctx, id, StatusCancelled, s.now()); err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}
	if err := s.freeReservedUnits(ctx, existing); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the order and its owned items and equipment. Stored units it
// merely reinstalled are freed, never deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.freeReservedUnits(ctx, existing); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) freeReservedUnits(ctx context.Context, o *WorkOrder) error {
	for _, item := range o.Items {
		if item.WorkType != WorkTypeReinstallFromStock || item.StoredUnitID == nil {
			continue
		}
		if err := s.ledger.Free(ctx, *item.StoredUnitID); err != nil {
			return fmt.Errorf("free unit %d: %w", *item.StoredUnitID, err)
		}
	}
	return nil
}
