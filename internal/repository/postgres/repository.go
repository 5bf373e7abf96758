package postgres

import (
	"github.com/benjhiman/stockledger/pkg/database"
)

// The repositories implement the ledger read interfaces using PostgreSQL.
// Each accepts a DBTX so the same code runs against the pool or a mock in
// tests. Quantity mutations never go through these types; they happen in
// service-layer transactions.

// ItemRepository reads stock items.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed item repository.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// MovementRepository reads movement ledgers.
type MovementRepository struct {
	pool database.DBTX
}

// NewMovementRepository creates a new PostgreSQL-backed movement repository.
func NewMovementRepository(pool database.DBTX) *MovementRepository {
	return &MovementRepository{pool: pool}
}

// ReservationRepository reads reservations.
type ReservationRepository struct {
	pool database.DBTX
}

// NewReservationRepository creates a new PostgreSQL-backed reservation repository.
func NewReservationRepository(pool database.DBTX) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// PurchaseRepository reads purchase application records.
type PurchaseRepository struct {
	pool database.DBTX
}

// NewPurchaseRepository creates a new PostgreSQL-backed purchase repository.
func NewPurchaseRepository(pool database.DBTX) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}
