package domain

import (
	"strings"
	"time"
)

// UnitStatus tracks where a sheet is in its lifecycle.
type UnitStatus string

const (
	StatusOrdered UnitStatus = "Ordered"
	StatusOnHand  UnitStatus = "OnHand"
)

// StandardLengths are the stock sheet lengths in inches. Anything else is a
// custom cut.
var StandardLengths = []int{96, 120, 144}

// Synthetic supplier markers carried by units created through corrections.
// The ledger must not count them as real arrivals.
const (
	SupplierManualEdit        = "Manual Edit"
	SupplierRescheduledReturn = "Rescheduled Return"
)

// IsCorrectionSupplier reports whether supplier is a synthetic marker.
func IsCorrectionSupplier(supplier string) bool {
	return supplier == SupplierManualEdit || supplier == SupplierRescheduledReturn
}

// InventoryUnit represents one physical sheet tracked as a single document.
type InventoryUnit struct {
	ID           string     `json:"id,omitempty"`
	MaterialType string     `json:"materialType"`
	Gauge        string     `json:"gauge,omitempty"`
	Supplier     string     `json:"supplier,omitempty"`
	CostPerPound float64    `json:"costPerPound"`
	Width        float64    `json:"width"`
	Length       int        `json:"length"`
	Status       UnitStatus `json:"status"`
	Job          string     `json:"job,omitempty"`
	ArrivalDate  *time.Time `json:"arrivalDate,omitempty"`
	DateReceived *time.Time `json:"dateReceived,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Validate checks the unit's structural invariants.
func (u InventoryUnit) Validate() error {
	if u.MaterialType == "" {
		return &ValidationError{Field: "materialType", Reason: "must not be empty"}
	}
	if u.CostPerPound < 0 {
		return &ValidationError{Field: "costPerPound", Reason: "must not be negative"}
	}
	if u.Length <= 0 {
		return &ValidationError{Field: "length", Reason: "must be positive"}
	}
	switch u.Status {
	case StatusOrdered:
		if u.DateReceived != nil {
			return &ValidationError{Field: "dateReceived", Reason: "ordered unit must not have a received date"}
		}
	case StatusOnHand:
		if u.DateReceived == nil {
			return &ValidationError{Field: "dateReceived", Reason: "on-hand unit must have a received date"}
		}
	default:
		return &ValidationError{Field: "status", Reason: "unknown status " + string(u.Status)}
	}
	return nil
}

// GaugeFromMaterial derives the display gauge from a material key, e.g.
// "16GA-CRS" -> "16GA". Keys without a separator display as-is.
func GaugeFromMaterial(materialType string) string {
	if i := strings.IndexAny(materialType, "-_ "); i > 0 {
		return materialType[:i]
	}
	return materialType
}

// IsStandardLength reports whether length is one of the stock lengths.
func IsStandardLength(length int) bool {
	for _, l := range StandardLengths {
		if l == length {
			return true
		}
	}
	return false
}
