package settlement

import (
	"time"

	"github.com/hvacdesk/hvacdesk/internal/workorders"
)

// OrderSettlement is the installer settlement view of one work order.
type OrderSettlement struct {
	OrderID         int64                       `json:"order_id"`
	DocNumber       string                      `json:"doc_number"`
	BusinessName    string                      `json:"business_name"`
	OrderStatus     workorders.Status           `json:"order_status"`
	InstallComplete *time.Time                  `json:"install_complete_date,omitempty"`
	Status          workorders.SettlementStatus `json:"s1_settlement_status"`
	Month           *string                     `json:"s1_settlement_month,omitempty"`
}

// Outcome is the per-order result inside a batch transition report.
type Outcome struct {
	OrderID int64                       `json:"order_id"`
	OK      bool                        `json:"ok"`
	Status  workorders.SettlementStatus `json:"s1_settlement_status,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// BatchResult reports a batch transition. A failed element never affects the
// others' outcomes.
type BatchResult struct {
	BatchID   string                      `json:"batch_id"`
	Target    workorders.SettlementStatus `json:"target"`
	Succeeded int                         `json:"succeeded"`
	Failed    int                         `json:"failed"`
	Outcomes  []Outcome                   `json:"outcomes"`
}

// OrderFinancials is the raw amounts the billing ladder runs on, one row per
// order in scope for a month.
type OrderFinancials struct {
	OrderID            int64                       `json:"order_id"`
	DocNumber          string                      `json:"doc_number"`
	BusinessName       string                      `json:"business_name"`
	Status             workorders.SettlementStatus `json:"s1_settlement_status"`
	EffectiveMonth     string                      `json:"effective_month"`
	EquipmentSubtotal  int64                       `json:"equipment_subtotal"`
	InstallSubtotal    int64                       `json:"install_subtotal"`
	RoundingAdjustment int64                       `json:"rounding_adjustment"`
	PurchaseCost       int64                       `json:"purchase_cost"`
}

// OrderBilling is one computed row of the monthly summary.
type OrderBilling struct {
	OrderID      int64                       `json:"order_id"`
	DocNumber    string                      `json:"doc_number"`
	BusinessName string                      `json:"business_name"`
	Status       workorders.SettlementStatus `json:"s1_settlement_status"`
	Sales        int64                       `json:"sales"`
	PurchaseCost int64                       `json:"purchase_cost"`
	InstallCost  int64                       `json:"install_cost"`
	Margin       int64                       `json:"margin"`
	MissingCost  bool                        `json:"missing_cost"`
}

// MonthlySummary aggregates one month's billing rows. Totals are plain sums.
type MonthlySummary struct {
	Month             string         `json:"month"`
	Orders            []OrderBilling `json:"orders"`
	TotalSales        int64          `json:"total_sales"`
	TotalPurchaseCost int64          `json:"total_purchase_cost"`
	TotalInstallCost  int64          `json:"total_install_cost"`
	TotalMargin       int64          `json:"total_margin"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
