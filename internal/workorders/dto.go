package workorders

import "time"

// CreateWorkOrderRequest is the intake payload.
type CreateWorkOrderRequest struct {
	Affiliate        string                   `json:"affiliate" validate:"required,max=100"`
	BusinessName     string                   `json:"business_name" validate:"required,max=200"`
	SiteAddress      *string                  `json:"site_address,omitempty"`
	OrderDate        *time.Time               `json:"order_date,omitempty"`
	RequestedInstall *time.Time               `json:"requested_install_date,omitempty"`
	Notes            *string                  `json:"notes,omitempty"`
	Quote            *Quote                   `json:"quote,omitempty"`
	Items            []CreateWorkItemRequest  `json:"items" validate:"required,min=1,dive"`
	Equipment        []CreateEquipmentRequest `json:"equipment,omitempty" validate:"omitempty,dive"`
}

// CreateWorkItemRequest is one work line of the intake payload.
type CreateWorkItemRequest struct {
	WorkType     WorkType `json:"work_type" validate:"required"`
	Category     string   `json:"category" validate:"required,max=100"`
	Model        string   `json:"model" validate:"max=100"`
	Size         string   `json:"size" validate:"max=50"`
	Quantity     int      `json:"quantity" validate:"required,gt=0"`
	StoredUnitID *int64   `json:"stored_unit_id,omitempty"`
	LineOrder    int      `json:"line_order" validate:"gte=0"`
}

// CreateEquipmentRequest is one delivery line of the intake payload.
type CreateEquipmentRequest struct {
	Name              string     `json:"name" validate:"required,max=200"`
	Model             string     `json:"model" validate:"max=100"`
	Supplier          string     `json:"supplier" validate:"max=200"`
	OrderNumber       string     `json:"order_number" validate:"max=100"`
	OrderDate         *time.Time `json:"order_date,omitempty"`
	RequestedDelivery *time.Time `json:"requested_delivery_date,omitempty"`
	ScheduledDelivery *time.Time `json:"scheduled_delivery_date,omitempty"`
	ConfirmedDelivery *time.Time `json:"confirmed_delivery_date,omitempty"`
	Quantity          int        `json:"quantity" validate:"required,gt=0"`
	UnitPrice         int64      `json:"unit_price" validate:"gte=0"`
	WarehouseID       *int64     `json:"warehouse_id,omitempty"`
	LineOrder         int        `json:"line_order" validate:"gte=0"`
}

// UpdateWorkOrderRequest carries partial updates. Nil fields are untouched.
type UpdateWorkOrderRequest struct {
	Status              *Status    `json:"status,omitempty"`
	SiteAddress         *string    `json:"site_address,omitempty"`
	OrderDate           *time.Time `json:"order_date,omitempty"`
	RequestedInstall    *time.Time `json:"requested_install_date,omitempty"`
	InstallSchedule     *time.Time `json:"install_schedule_date,omitempty"`
	SupplierOrderNumber *string    `json:"supplier_order_number,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	Quote               *Quote     `json:"quote,omitempty"`
}

// ListWorkOrdersRequest filters the order listing.
type ListWorkOrdersRequest struct {
	Status       *Status `json:"status,omitempty"`
	Affiliate    *string `json:"affiliate,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
	ActiveOnly   bool    `json:"active_only"`
	Month        *string `json:"month,omitempty"`
	Limit        int     `json:"limit" validate:"gte=0,lte=1000"`
	Offset       int     `json:"offset" validate:"gte=0"`
}

// EquipmentItemView decorates an equipment line with its derived stage.
type EquipmentItemView struct {
	EquipmentItem
	DeliveryStage ItemDeliveryStage `json:"delivery_stage"`
}

// WorkOrderView decorates an order with every derived stage. Views are built
// per render; the enums are never cached because the underlying date fields
// can change out from under a stale view.
type WorkOrderView struct {
	WorkOrder
	KanbanStage        Status             `json:"kanban_stage"`
	ScheduleStage      ScheduleStage      `json:"schedule_stage"`
	OrderDeliveryStage OrderDeliveryStage `json:"order_delivery_stage"`
	Urgency            Urgency            `json:"urgency"`
	EquipmentConfirmed int                `json:"equipment_confirmed"`
	EquipmentTotal     int                `json:"equipment_total"`
	EquipmentViews     []EquipmentItemView `json:"equipment_views,omitempty"`
}

// NewWorkOrderView runs every deriver against a fresh snapshot.
func NewWorkOrderView(o *WorkOrder, today time.Time) WorkOrderView {
	confirmed, total := DeliveryProgress(o)
	view := WorkOrderView{
		WorkOrder:          *o,
		KanbanStage:        DeriveKanbanStage(o),
		ScheduleStage:      DeriveScheduleStage(o),
		OrderDeliveryStage: DeriveOrderDeliveryStage(o),
		Urgency:            DeriveUrgency(o, today),
		EquipmentConfirmed: confirmed,
		EquipmentTotal:     total,
	}
	for i := range o.Equipment {
		view.EquipmentViews = append(view.EquipmentViews, EquipmentItemView{
			EquipmentItem: o.Equipment[i],
			DeliveryStage: DeriveItemDeliveryStage(&o.Equipment[i]),
		})
	}
	return view
}
