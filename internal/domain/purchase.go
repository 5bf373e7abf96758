package domain

import (
	"time"
)

// PurchaseLine is one item quantity received on a purchase.
type PurchaseLine struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// PurchaseApplication records that a purchase receipt has been applied to
// stock. The purchase ID is the idempotency key: a purchase is applied to the
// ledger exactly once, and the recorded movement IDs tie the application back
// to the ledger entries it produced.
type PurchaseApplication struct {
	PurchaseID  string    `json:"purchase_id"`
	MovementIDs []string  `json:"movement_ids"`
	AppliedAt   time.Time `json:"applied_at"`
}
