// Package warehouse tracks physical stored-equipment units removed from prior
// sites and held pending reuse or disposal. A unit's reservation by a work
// order is a weak relation resolved by scanning reinstall work items, never a
// pointer the unit owns.
package warehouse

import "time"

// UnitStatus is the custody state of a stored unit.
type UnitStatus string

const (
	// UnitStored means the unit sits in warehouse stock.
	UnitStored UnitStatus = "STORED"
	// UnitRequested means an active work order has reserved the unit for
	// reinstallation.
	UnitRequested UnitStatus = "REQUESTED"
	// UnitReleased means the unit left warehouse custody (reuse or disposal).
	UnitReleased UnitStatus = "RELEASED"
)

// IsValid reports whether the status is known.
func (s UnitStatus) IsValid() bool {
	switch s {
	case UnitStored, UnitRequested, UnitReleased:
		return true
	default:
		return false
	}
}

// ReleaseType classifies why a unit left custody.
type ReleaseType string

const (
	ReleaseReuse   ReleaseType = "REUSE"
	ReleaseDispose ReleaseType = "DISPOSE"
)

// IsValid reports whether the release type is known.
func (t ReleaseType) IsValid() bool {
	return t == ReleaseReuse || t == ReleaseDispose
}

// StoredUnit is one physical unit in warehouse custody.
type StoredUnit struct {
	ID                 int64        `json:"id" db:"id"`
	SourceSite         string       `json:"source_site" db:"source_site"`
	SourceAffiliate    string       `json:"source_affiliate" db:"source_affiliate"`
	Category           string       `json:"category" db:"category"`
	Model              string       `json:"model" db:"model"`
	Manufacturer       string       `json:"manufacturer" db:"manufacturer"`
	ManufactureDate    *time.Time   `json:"manufacture_date,omitempty" db:"manufacture_date"`
	RemovedDate        *time.Time   `json:"removed_date,omitempty" db:"removed_date"`
	Status             UnitStatus   `json:"status" db:"status"`
	WarehouseID        *int64       `json:"warehouse_id,omitempty" db:"warehouse_id"`
	SourceOrderID      *int64       `json:"source_order_id,omitempty" db:"source_order_id"`
	ReleaseType        *ReleaseType `json:"release_type,omitempty" db:"release_type"`
	ReleaseDate        *time.Time   `json:"release_date,omitempty" db:"release_date"`
	ReleaseDestination *string      `json:"release_destination,omitempty" db:"release_destination"`
	ReleaseNotes       *string      `json:"release_notes,omitempty" db:"release_notes"`
	CreatedAt          time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at" db:"updated_at"`
}

// ReleaseInfo carries the metadata recorded when a unit leaves custody.
type ReleaseInfo struct {
	Type        ReleaseType `json:"type"`
	Date        time.Time   `json:"date"`
	Destination *string     `json:"destination,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
}

// UnitView decorates a unit with the order currently reserving it, if any.
type UnitView struct {
	StoredUnit
	ReservedByOrderID *int64 `json:"reserved_by_order_id,omitempty"`
}
