package workorders

import (
	"time"

	"github.com/hvacdesk/hvacdesk/internal/shared"
)

// Derivation functions are pure and total: they take an entity snapshot plus
// an explicit "today" and never touch persistence or the wall clock. Missing
// optional fields fall through to the least-advanced bucket. Derived values
// must never be persisted or cached; views recompute them on every read.

// ScheduleStage is the installer's view of where an order sits in the
// scheduling pipeline.
type ScheduleStage string

const (
	ScheduleUnscheduled ScheduleStage = "UNSCHEDULED"
	ScheduleScheduled   ScheduleStage = "SCHEDULED"
	ScheduleCompleted   ScheduleStage = "COMPLETED"
)

// ItemDeliveryStage is the derived procurement stage of one equipment line.
type ItemDeliveryStage string

const (
	ItemDeliveryNone      ItemDeliveryStage = "NONE"
	ItemDeliveryOrdered   ItemDeliveryStage = "ORDERED"
	ItemDeliveryScheduled ItemDeliveryStage = "SCHEDULED"
	ItemDeliveryConfirmed ItemDeliveryStage = "CONFIRMED"
)

// OrderDeliveryStage is the coarse order-level procurement stage.
type OrderDeliveryStage string

const (
	OrderDeliveryPending   OrderDeliveryStage = "PENDING"
	OrderDeliveryOrdered   OrderDeliveryStage = "ORDERED"
	OrderDeliveryDelivered OrderDeliveryStage = "DELIVERED"
)

// Urgency is a prioritisation tag for work queues. It has no persistence
// effect.
type Urgency string

const (
	UrgencyOverdue     Urgency = "OVERDUE"
	UrgencyToday       Urgency = "TODAY"
	UrgencyTomorrow    Urgency = "TOMORROW"
	UrgencyNoEquipment Urgency = "NO_EQUIPMENT"
	UrgencyNone        Urgency = "NONE"
)

// DeriveKanbanStage returns the kanban stage of the order. The stored status
// is authoritative for every stage including the terminal ones; callers must
// filter terminal orders out of live kanban views themselves.
func DeriveKanbanStage(o *WorkOrder) Status {
	if o == nil || !o.Status.IsValid() {
		return StatusReceived
	}
	return o.Status
}

// DeriveScheduleStage derives the install-schedule stage. A schedule date
// entered while the order is still RECEIVED is deliberately not surfaced on
// the installer's active queue.
func DeriveScheduleStage(o *WorkOrder) ScheduleStage {
	if o == nil {
		return ScheduleUnscheduled
	}
	if o.InstallComplete != nil {
		return ScheduleCompleted
	}
	if DeriveKanbanStage(o) == StatusInProgress && o.InstallSchedule != nil {
		return ScheduleScheduled
	}
	return ScheduleUnscheduled
}

// DeriveItemDeliveryStage derives the delivery stage of one equipment line.
// This is a strict precedence chain, not independent flags: a confirmed date
// dominates regardless of the other fields.
func DeriveItemDeliveryStage(item *EquipmentItem) ItemDeliveryStage {
	if item == nil {
		return ItemDeliveryNone
	}
	switch {
	case item.ConfirmedDelivery != nil:
		return ItemDeliveryConfirmed
	case item.ScheduledDelivery != nil:
		return ItemDeliveryScheduled
	case item.OrderDate != nil || item.OrderNumber != "":
		return ItemDeliveryOrdered
	default:
		return ItemDeliveryNone
	}
}

// DeriveOrderDeliveryStage derives the order-level delivery stage. DELIVERED
// is reached only through the explicit receiving action; item-level
// confirmations never auto-promote it, because bulk orders can have every
// component confirmed and still await a final physical receiving step.
func DeriveOrderDeliveryStage(o *WorkOrder) OrderDeliveryStage {
	if o == nil {
		return OrderDeliveryPending
	}
	switch {
	case o.DeliveredAt != nil:
		return OrderDeliveryDelivered
	case o.SupplierOrderNumber != "":
		return OrderDeliveryOrdered
	default:
		return OrderDeliveryPending
	}
}

// DeliveryProgress counts confirmed equipment lines against the total,
// feeding the advisory X/Y indicator next to the order-level stage.
func DeliveryProgress(o *WorkOrder) (confirmed, total int) {
	if o == nil {
		return 0, 0
	}
	for i := range o.Equipment {
		total++
		if DeriveItemDeliveryStage(&o.Equipment[i]) == ItemDeliveryConfirmed {
			confirmed++
		}
	}
	return confirmed, total
}

// DeriveUrgency classifies the order for prioritised visual treatment.
// Schedule-date urgency takes priority over the no-equipment bucket.
func DeriveUrgency(o *WorkOrder, today time.Time) Urgency {
	if o == nil {
		return UrgencyNone
	}
	if o.InstallSchedule != nil && o.InstallComplete == nil {
		switch d := shared.CalendarDays(today, *o.InstallSchedule); {
		case d < 0:
			return UrgencyOverdue
		case d == 0:
			return UrgencyToday
		case d == 1:
			return UrgencyTomorrow
		default:
			return UrgencyNone
		}
	}
	if o.InstallComplete == nil && o.HasWorkType(WorkTypeNewInstall) && !allEquipmentConfirmed(o) {
		return UrgencyNoEquipment
	}
	return UrgencyNone
}

func allEquipmentConfirmed(o *WorkOrder) bool {
	confirmed, total := DeliveryProgress(o)
	return total > 0 && confirmed == total
}
