package repository

import (
	"context"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/pkg/pagination"
)

// ItemRepository defines read operations for stock items. All quantity
// mutations go through the service-layer ledger transactions, never through
// ad hoc updates.
type ItemRepository interface {
	// GetByID retrieves a stock item by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.StockItem, error)

	// List returns stock items ordered by creation time, newest first.
	List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error)
}

// MovementRepository defines read operations over the movement ledger.
type MovementRepository interface {
	// ListByItem returns a page of movements for an item in seq order.
	ListByItem(ctx context.Context, itemID string, params pagination.Params) ([]domain.Movement, int, error)

	// ListChain returns the complete movement chain for an item in ascending
	// seq order, for replay and consistency verification.
	ListChain(ctx context.Context, itemID string) ([]domain.Movement, error)
}

// ReservationRepository defines read operations for reservations.
type ReservationRepository interface {
	// GetByID retrieves a reservation by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)

	// ListByItem returns all reservations for a stock item, newest first.
	ListByItem(ctx context.Context, itemID string) ([]domain.Reservation, error)

	// ListExpired returns active reservations that have passed their
	// expiration time, oldest first, up to limit.
	ListExpired(ctx context.Context, limit int) ([]domain.Reservation, error)
}

// PurchaseRepository defines read operations for purchase applications.
type PurchaseRepository interface {
	// GetByID retrieves a purchase application record by purchase ID.
	GetByID(ctx context.Context, purchaseID string) (*domain.PurchaseApplication, error)
}
