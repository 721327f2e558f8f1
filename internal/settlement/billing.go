package settlement

// BillingConfig carries the fixed percentages applied by the sales ladder.
// Amounts are whole currency units.
type BillingConfig struct {
	VATPercent    int64
	UpliftPercent int64
}

// DefaultBillingConfig matches the operator's standing terms: 10% VAT on top
// of a 5% profit uplift.
func DefaultBillingConfig() BillingConfig {
	return BillingConfig{VATPercent: 10, UpliftPercent: 5}
}

// ComputeOrderBilling applies the rounding ladder in its fixed sequence:
// base subtotal, uplift, floor to 1,000, then VAT rounded to the nearest
// unit. Reordering the steps changes totals by small amounts, so the
// sequence is part of the contract.
func ComputeOrderBilling(f OrderFinancials, cfg BillingConfig) OrderBilling {
	base := f.EquipmentSubtotal + f.InstallSubtotal - f.RoundingAdjustment
	if base < 0 {
		base = 0
	}

	uplifted := base * (100 + cfg.UpliftPercent) / 100
	supply := uplifted - uplifted%1000
	vat := (supply*cfg.VATPercent + 50) / 100
	sales := supply + vat

	b := OrderBilling{
		OrderID:      f.OrderID,
		DocNumber:    f.DocNumber,
		BusinessName: f.BusinessName,
		Status:       f.Status,
		Sales:        sales,
		PurchaseCost: f.PurchaseCost,
		InstallCost:  f.InstallSubtotal,
	}
	b.Margin = b.Sales - b.PurchaseCost - b.InstallCost
	b.MissingCost = b.Sales > 0 && b.PurchaseCost == 0
	return b
}

// BuildSummary folds per-order billing rows into the monthly totals.
func BuildSummary(month string, rows []OrderFinancials, cfg BillingConfig) *MonthlySummary {
	summary := &MonthlySummary{
		Month:  month,
		Orders: make([]OrderBilling, 0, len(rows)),
	}
	for _, f := range rows {
		b := ComputeOrderBilling(f, cfg)
		summary.Orders = append(summary.Orders, b)
		summary.TotalSales += b.Sales
		summary.TotalPurchaseCost += b.PurchaseCost
		summary.TotalInstallCost += b.InstallCost
		summary.TotalMargin += b.Margin
	}
	return summary
}
