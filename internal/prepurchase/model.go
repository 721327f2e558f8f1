package prepurchase

import "time"

// Unit is equipment bought ahead of a confirmed site. Remaining stock is
// derived, never stored: UsedQuantity must equal the sum of the unit's usage
// record quantities at all times.
type Unit struct {
	ID           int64      `json:"id"`
	ProductName  string     `json:"product_name"`
	Model        string     `json:"model,omitempty"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Quantity     int        `json:"quantity"`
	UsedQuantity int        `json:"used_quantity"`
	UnitPrice    int64      `json:"unit_price"`
	PurchaseDate *time.Time `json:"purchase_date,omitempty"`
	Supplier     string     `json:"supplier,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Usages []UsageRecord `json:"usages,omitempty"`
}

// Remaining reports the unconsumed quantity.
func (u Unit) Remaining() int {
	return u.Quantity - u.UsedQuantity
}

// UsageRecord consumes a sub-quantity of a prepurchase unit against a site.
type UsageRecord struct {
	ID           int64     `json:"id"`
	UnitID       int64     `json:"unit_id"`
	SiteName     string    `json:"site_name"`
	UsedQuantity int       `json:"used_quantity"`
	UsedDate     time.Time `json:"used_date"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
