package domain

import (
	"fmt"
	"time"
)

// Movement type constants.
const (
	MovementTypeIn      = "in"
	MovementTypeOut     = "out"
	MovementTypeAdjust  = "adjust"
	MovementTypeReserve = "reserve"
	MovementTypeRelease = "release"
	MovementTypeSold    = "sold"
)

// Movement is one append-only ledger entry for a stock item. Seq is the
// per-item sequence number; QuantityBefore and QuantityAfter snapshot the
// item quantity around the movement so the ledger forms an unbroken chain.
type Movement struct {
	ID             string    `json:"id"`
	ItemID         string    `json:"item_id"`
	Seq            int64     `json:"seq"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reason         string    `json:"reason"`
	Actor          string    `json:"actor"`
	CreatedAt      time.Time `json:"created_at"`
}

// TouchesQuantity returns true if the movement type changes the physical
// quantity. Reserve and release movements only move units between the
// available and reserved buckets.
func TouchesQuantity(movementType string) bool {
	switch movementType {
	case MovementTypeIn, MovementTypeOut, MovementTypeAdjust, MovementTypeSold:
		return true
	}
	return false
}

// ValidMovementTypes returns the set of valid movement types.
func ValidMovementTypes() []string {
	return []string{
		MovementTypeIn, MovementTypeOut, MovementTypeAdjust,
		MovementTypeReserve, MovementTypeRelease, MovementTypeSold,
	}
}

// IsValidMovementType checks whether the given type is a valid movement type.
func IsValidMovementType(movementType string) bool {
	for _, t := range ValidMovementTypes() {
		if t == movementType {
			return true
		}
	}
	return false
}

// ReplayQuantity folds a movement chain (in seq order) over an initial
// quantity and returns the resulting quantity. For a complete chain the
// initial quantity is zero and the result must equal the item's current
// quantity.
func ReplayQuantity(initial int, movements []Movement) int {
	quantity := initial
	for _, m := range movements {
		quantity += m.Quantity
	}
	return quantity
}

// VerifyChain checks that a movement chain (in seq order) is internally
// consistent: each entry's quantity_after equals quantity_before plus the
// delta, and each entry's quantity_before equals the previous entry's
// quantity_after.
func VerifyChain(movements []Movement) error {
	for i, m := range movements {
		if m.QuantityAfter != m.QuantityBefore+m.Quantity {
			return fmt.Errorf("movement %s (seq %d): quantity_after %d != quantity_before %d + delta %d",
				m.ID, m.Seq, m.QuantityAfter, m.QuantityBefore, m.Quantity)
		}
		if i > 0 {
			prev := movements[i-1]
			if m.QuantityBefore != prev.QuantityAfter {
				return fmt.Errorf("movement %s (seq %d): quantity_before %d != previous quantity_after %d",
					m.ID, m.Seq, m.QuantityBefore, prev.QuantityAfter)
			}
			if m.Seq != prev.Seq+1 {
				return fmt.Errorf("movement %s: seq %d does not follow %d", m.ID, m.Seq, prev.Seq)
			}
		}
	}
	return nil
}
