// Package workorders owns the work order entity and its derived lifecycle
// stages. The stored Status is the only explicit lifecycle flag; schedule,
// delivery and urgency stages are recomputed from date fields on every read.
package workorders

import "time"

// Status is the author-set kanban stage of a work order.
type Status string

const (
	StatusReceived   Status = "RECEIVED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusSettled    Status = "SETTLED"
	StatusCancelled  Status = "CANCELLED"
)

// IsValid reports whether the status is a known stage.
func (s Status) IsValid() bool {
	switch s {
	case StatusReceived, StatusInProgress, StatusCompleted, StatusSettled, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the order is excluded from all active-workflow views.
func (s Status) IsTerminal() bool {
	return s == StatusSettled || s == StatusCancelled
}

// WorkType classifies a single line of a work order.
type WorkType string

const (
	WorkTypeNewInstall         WorkType = "NEW_INSTALL"
	WorkTypeRelocate           WorkType = "RELOCATE"
	WorkTypeRemoveStore        WorkType = "REMOVE_STORE"
	WorkTypeRemoveDispose      WorkType = "REMOVE_DISPOSE"
	WorkTypeReinstallFromStock WorkType = "REINSTALL_FROM_STOCK"
	WorkTypeReturnDispose      WorkType = "RETURN_DISPOSE"
)

// IsValid reports whether the work type is known.
func (t WorkType) IsValid() bool {
	switch t {
	case WorkTypeNewInstall, WorkTypeRelocate, WorkTypeRemoveStore,
		WorkTypeRemoveDispose, WorkTypeReinstallFromStock, WorkTypeReturnDispose:
		return true
	default:
		return false
	}
}

// SettlementStatus is the installer settlement sub-state, independent of the
// order's own lifecycle. Only meaningful once InstallCompleteDate is set.
type SettlementStatus string

const (
	SettlementUnsettled  SettlementStatus = "UNSETTLED"
	SettlementInProgress SettlementStatus = "IN_PROGRESS"
	SettlementSettled    SettlementStatus = "SETTLED"
)

// IsValid reports whether the settlement status is known.
func (s SettlementStatus) IsValid() bool {
	switch s {
	case SettlementUnsettled, SettlementInProgress, SettlementSettled:
		return true
	default:
		return false
	}
}

// WorkOrder is one installation/removal job for a customer site.
type WorkOrder struct {
	ID                  int64            `json:"id" db:"id"`
	DocNumber           string           `json:"doc_number" db:"doc_number"`
	Affiliate           string           `json:"affiliate" db:"affiliate"`
	BusinessName        string           `json:"business_name" db:"business_name"`
	SiteAddress         *string          `json:"site_address,omitempty" db:"site_address"`
	Status              Status           `json:"status" db:"status"`
	OrderDate           *time.Time       `json:"order_date,omitempty" db:"order_date"`
	RequestedInstall    *time.Time       `json:"requested_install_date,omitempty" db:"requested_install_date"`
	InstallSchedule     *time.Time       `json:"install_schedule_date,omitempty" db:"install_schedule_date"`
	InstallComplete     *time.Time       `json:"install_complete_date,omitempty" db:"install_complete_date"`
	CancelledAt         *time.Time       `json:"cancelled_at,omitempty" db:"cancelled_at"`
	SupplierOrderNumber string           `json:"supplier_order_number" db:"supplier_order_number"`
	DeliveredAt         *time.Time       `json:"delivered_at,omitempty" db:"delivered_at"`
	S1SettlementStatus  SettlementStatus `json:"s1_settlement_status" db:"s1_settlement_status"`
	S1SettlementMonth   *string          `json:"s1_settlement_month,omitempty" db:"s1_settlement_month"`
	Quote               *Quote           `json:"quote,omitempty" db:"-"`
	Notes               *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
	Items               []WorkItem       `json:"items,omitempty" db:"-"`
	Equipment           []EquipmentItem  `json:"equipment,omitempty" db:"-"`
}

// Quote is the customer-facing amounts and internal cost breakdown used for
// margin computation. Amounts are whole currency units.
type Quote struct {
	EquipmentSubtotal  int64 `json:"equipment_subtotal" db:"equipment_subtotal"`
	InstallSubtotal    int64 `json:"install_subtotal" db:"install_subtotal"`
	RoundingAdjustment int64 `json:"rounding_adjustment" db:"rounding_adjustment"`
}

// WorkItem is one line of a work order. StoredUnitID is set only for
// REINSTALL_FROM_STOCK lines and is a weak reference into the warehouse
// ledger, never ownership.
type WorkItem struct {
	ID           int64    `json:"id" db:"id"`
	WorkOrderID  int64    `json:"work_order_id" db:"work_order_id"`
	WorkType     WorkType `json:"work_type" db:"work_type"`
	Category     string   `json:"category" db:"category"`
	Model        string   `json:"model" db:"model"`
	Size         string   `json:"size" db:"size"`
	Quantity     int      `json:"quantity" db:"quantity"`
	StoredUnitID *int64   `json:"stored_unit_id,omitempty" db:"stored_unit_id"`
	LineOrder    int      `json:"line_order" db:"line_order"`
}

// EquipmentItem is one physical delivery line belonging to a work order.
// No delivery status is stored; the stage is always derived from the dates.
type EquipmentItem struct {
	ID               int64      `json:"id" db:"id"`
	WorkOrderID      int64      `json:"work_order_id" db:"work_order_id"`
	Name             string     `json:"name" db:"name"`
	Model            string     `json:"model" db:"model"`
	Supplier         string     `json:"supplier" db:"supplier"`
	OrderNumber      string     `json:"order_number" db:"order_number"`
	OrderDate        *time.Time `json:"order_date,omitempty" db:"order_date"`
	RequestedDelivery *time.Time `json:"requested_delivery_date,omitempty" db:"requested_delivery_date"`
	ScheduledDelivery *time.Time `json:"scheduled_delivery_date,omitempty" db:"scheduled_delivery_date"`
	ConfirmedDelivery *time.Time `json:"confirmed_delivery_date,omitempty" db:"confirmed_delivery_date"`
	Quantity         int        `json:"quantity" db:"quantity"`
	UnitPrice        int64      `json:"unit_price" db:"unit_price"`
	TotalPrice       int64      `json:"total_price" db:"total_price"`
	WarehouseID      *int64     `json:"warehouse_id,omitempty" db:"warehouse_id"`
	LineOrder        int        `json:"line_order" db:"line_order"`
}

// HasWorkType reports whether any item carries the given work type.
func (o *WorkOrder) HasWorkType(t WorkType) bool {
	for _, item := range o.Items {
		if item.WorkType == t {
			return true
		}
	}
	return false
}
