package workorders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDeriveKanbanStage(t *testing.T) {
	assert.Equal(t, StatusReceived, DeriveKanbanStage(nil))
	assert.Equal(t, StatusReceived, DeriveKanbanStage(&WorkOrder{Status: "BOGUS"}))
	assert.Equal(t, StatusInProgress, DeriveKanbanStage(&WorkOrder{Status: StatusInProgress}))
	assert.Equal(t, StatusCancelled, DeriveKanbanStage(&WorkOrder{Status: StatusCancelled}))
}

func TestDeriveScheduleStage(t *testing.T) {
	tests := []struct {
		name  string
		order *WorkOrder
		want  ScheduleStage
	}{
		{"nil order", nil, ScheduleUnscheduled},
		{"no dates", &WorkOrder{Status: StatusInProgress}, ScheduleUnscheduled},
		{
			"schedule while still received",
			&WorkOrder{Status: StatusReceived, InstallSchedule: date("2026-03-10")},
			ScheduleUnscheduled,
		},
		{
			"schedule in progress",
			&WorkOrder{Status: StatusInProgress, InstallSchedule: date("2026-03-10")},
			ScheduleScheduled,
		},
		{
			"complete dominates",
			&WorkOrder{Status: StatusInProgress, InstallSchedule: date("2026-03-10"), InstallComplete: date("2026-03-12")},
			ScheduleCompleted,
		},
		{
			"complete without schedule",
			&WorkOrder{Status: StatusCompleted, InstallComplete: date("2026-03-12")},
			ScheduleCompleted,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveScheduleStage(tc.order))
		})
	}
}

func TestDeriveItemDeliveryStagePrecedence(t *testing.T) {
	item := &EquipmentItem{}
	assert.Equal(t, ItemDeliveryNone, DeriveItemDeliveryStage(item))

	item.OrderDate = date("2026-01-10")
	assert.Equal(t, ItemDeliveryOrdered, DeriveItemDeliveryStage(item))

	item.ScheduledDelivery = date("2026-01-20")
	assert.Equal(t, ItemDeliveryScheduled, DeriveItemDeliveryStage(item))

	item.ConfirmedDelivery = date("2026-01-22")
	assert.Equal(t, ItemDeliveryConfirmed, DeriveItemDeliveryStage(item))

	// Confirmed stays dominant even after the scheduled date is cleared.
	item.ScheduledDelivery = nil
	assert.Equal(t, ItemDeliveryConfirmed, DeriveItemDeliveryStage(item))
}

func TestDeriveItemDeliveryStageOrderNumberAlone(t *testing.T) {
	item := &EquipmentItem{OrderNumber: "PO-2601-004"}
	assert.Equal(t, ItemDeliveryOrdered, DeriveItemDeliveryStage(item))
	assert.Equal(t, ItemDeliveryNone, DeriveItemDeliveryStage(nil))
}

func TestDeriveOrderDeliveryStage(t *testing.T) {
	assert.Equal(t, OrderDeliveryPending, DeriveOrderDeliveryStage(nil))
	assert.Equal(t, OrderDeliveryPending, DeriveOrderDeliveryStage(&WorkOrder{}))
	assert.Equal(t, OrderDeliveryOrdered, DeriveOrderDeliveryStage(&WorkOrder{SupplierOrderNumber: "SUP-1"}))

	at := time.Now()
	order := &WorkOrder{SupplierOrderNumber: "SUP-1", DeliveredAt: &at}
	assert.Equal(t, OrderDeliveryDelivered, DeriveOrderDeliveryStage(order))

	// Every line confirmed still does not promote the order level stage.
	order = &WorkOrder{
		SupplierOrderNumber: "SUP-2",
		Equipment:           []EquipmentItem{{ConfirmedDelivery: date("2026-02-01")}},
	}
	assert.Equal(t, OrderDeliveryOrdered, DeriveOrderDeliveryStage(order))
}

func TestDeliveryProgress(t *testing.T) {
	confirmed, total := DeliveryProgress(nil)
	assert.Zero(t, confirmed)
	assert.Zero(t, total)

	order := &WorkOrder{Equipment: []EquipmentItem{
		{ConfirmedDelivery: date("2026-02-01")},
		{ScheduledDelivery: date("2026-02-05")},
		{},
	}}
	confirmed, total = DeliveryProgress(order)
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 3, total)
}

func TestDeriveUrgencyScheduleDates(t *testing.T) {
	today := *date("2026-03-10")
	tests := []struct {
		name     string
		schedule string
		want     Urgency
	}{
		{"overdue", "2026-03-09", UrgencyOverdue},
		{"today", "2026-03-10", UrgencyToday},
		{"tomorrow", "2026-03-11", UrgencyTomorrow},
		{"further out", "2026-03-13", UrgencyNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			order := &WorkOrder{Status: StatusInProgress, InstallSchedule: date(tc.schedule)}
			assert.Equal(t, tc.want, DeriveUrgency(order, today))
		})
	}
}

func TestDeriveUrgencyNoEquipment(t *testing.T) {
	today := *date("2026-03-10")

	newInstall := &WorkOrder{
		Status: StatusInProgress,
		Items:  []WorkItem{{WorkType: WorkTypeNewInstall, Quantity: 1}},
	}
	assert.Equal(t, UrgencyNoEquipment, DeriveUrgency(newInstall, today),
		"new install with zero equipment lines cannot be all-confirmed")

	newInstall.Equipment = []EquipmentItem{{ConfirmedDelivery: date("2026-03-01")}}
	assert.Equal(t, UrgencyNone, DeriveUrgency(newInstall, today))

	newInstall.Equipment = append(newInstall.Equipment, EquipmentItem{})
	assert.Equal(t, UrgencyNoEquipment, DeriveUrgency(newInstall, today))

	removal := &WorkOrder{
		Status: StatusInProgress,
		Items:  []WorkItem{{WorkType: WorkTypeRemoveStore, Quantity: 1}},
	}
	assert.Equal(t, UrgencyNone, DeriveUrgency(removal, today))
}

func TestDeriveUrgencyScheduleBeatsNoEquipment(t *testing.T) {
	today := *date("2026-03-10")
	order := &WorkOrder{
		Status:          StatusInProgress,
		InstallSchedule: date("2026-03-10"),
		Items:           []WorkItem{{WorkType: WorkTypeNewInstall, Quantity: 1}},
	}
	assert.Equal(t, UrgencyToday, DeriveUrgency(order, today))

	// A distant schedule also pins the order to the date branch; it does not
	// fall through to the no-equipment bucket.
	order.InstallSchedule = date("2026-04-01")
	assert.Equal(t, UrgencyNone, DeriveUrgency(order, today))
}

func TestDeriveUrgencyCompletedOrders(t *testing.T) {
	today := *date("2026-03-10")
	order := &WorkOrder{
		Status:          StatusCompleted,
		InstallSchedule: date("2026-03-09"),
		InstallComplete: date("2026-03-09"),
		Items:           []WorkItem{{WorkType: WorkTypeNewInstall, Quantity: 1}},
	}
	assert.Equal(t, UrgencyNone, DeriveUrgency(order, today))
}
