package domain

import (
	"time"
)

// Item condition constants.
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// Item status constants. The first three are derived from the quantity model;
// the rest are retire statuses settable only through the retire operation.
const (
	ItemStatusAvailable = "available"
	ItemStatusReserved  = "reserved"
	ItemStatusSold      = "sold"
	ItemStatusDamaged   = "damaged"
	ItemStatusReturned  = "returned"
	ItemStatusCancelled = "cancelled"
)

// StockItem represents a tracked unit of sellable stock. Quantity is the
// physical on-hand count; Reserved is the number of units held by active
// reservations. Both are only ever mutated through ledger movements.
type StockItem struct {
	ID           string    `json:"id"`
	ModelName    string    `json:"model_name"`
	SKU          *string   `json:"sku,omitempty"`
	SerialNumber *string   `json:"serial_number,omitempty"`
	Condition    string    `json:"condition"`
	Quantity     int       `json:"quantity"`
	Reserved     int       `json:"reserved"`
	Status       string    `json:"status"`
	MovementSeq  int64     `json:"movement_seq"`
	Version      int64     `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Available returns the quantity available for new reservations
// (Quantity - Reserved), clamped at zero.
func (s *StockItem) Available() int {
	if avail := s.Quantity - s.Reserved; avail > 0 {
		return avail
	}
	return 0
}

// IsRetired returns true if the item has been taken off sale through the
// retire operation (damaged, returned, or cancelled).
func (s *StockItem) IsRetired() bool {
	switch s.Status {
	case ItemStatusDamaged, ItemStatusReturned, ItemStatusCancelled:
		return true
	}
	return false
}

// DerivedStatus computes the quantity-model status for the item. Retired
// items keep their retire status; otherwise the status is a pure projection
// of the counters.
func (s *StockItem) DerivedStatus() string {
	if s.IsRetired() {
		return s.Status
	}
	if s.Quantity == 0 {
		return ItemStatusSold
	}
	if s.Available() == 0 {
		return ItemStatusReserved
	}
	return ItemStatusAvailable
}

// ValidConditions returns the set of valid item conditions.
func ValidConditions() []string {
	return []string{ConditionNew, ConditionUsed, ConditionRefurbished}
}

// IsValidCondition checks whether the given condition is valid.
func IsValidCondition(condition string) bool {
	for _, c := range ValidConditions() {
		if c == condition {
			return true
		}
	}
	return false
}

// RetireStatuses returns the statuses settable through the retire operation.
func RetireStatuses() []string {
	return []string{ItemStatusDamaged, ItemStatusReturned, ItemStatusCancelled}
}

// IsRetireStatus checks whether the given status is a valid retire status.
func IsRetireStatus(status string) bool {
	for _, s := range RetireStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
