package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/internal/event"
	"github.com/benjhiman/stockledger/internal/repository"
	"github.com/benjhiman/stockledger/pkg/database"
	apperrors "github.com/benjhiman/stockledger/pkg/errors"
)

const pgUniqueViolation = "23505"

// PurchaseService applies purchase receipts to stock exactly once. The
// purchase ID is claimed with an insert before any movement is written, so a
// duplicate delivery fails on the primary key and leaves the ledger
// untouched.
type PurchaseService struct {
	purchaseRepo repository.PurchaseRepository
	db           database.DBTX
	producer     *event.Producer
	logger       *slog.Logger
}

// NewPurchaseService creates a new purchase service.
func NewPurchaseService(
	purchaseRepo repository.PurchaseRepository,
	db database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
) *PurchaseService {
	return &PurchaseService{
		purchaseRepo: purchaseRepo,
		db:           db,
		producer:     producer,
		logger:       logger,
	}
}

// ApplyPurchase records the received units of a purchase as "in" movements
// on the referenced stock items, atomically with the claim on the purchase
// ID. Reapplying the same purchase returns an already-applied conflict.
func (s *PurchaseService) ApplyPurchase(ctx context.Context, purchaseID string, lines []domain.PurchaseLine, actor string) (*domain.PurchaseApplication, error) {
	if purchaseID == "" {
		return nil, apperrors.InvalidInput("purchase_id is required")
	}
	if len(lines) == 0 {
		return nil, apperrors.InvalidInput("purchase must have at least one line")
	}
	for _, line := range lines {
		if line.ItemID == "" {
			return nil, apperrors.InvalidInput("purchase line item_id is required")
		}
		if line.Quantity <= 0 {
			return nil, apperrors.InvalidInput("purchase line quantity must be positive")
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin purchase transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	app := &domain.PurchaseApplication{
		PurchaseID: purchaseID,
		AppliedAt:  now,
	}

	claimQuery := `
		INSERT INTO purchase_applications (purchase_id, movement_ids, applied_at)
		VALUES ($1, '{}', $2)`

	if _, err := tx.Exec(ctx, claimQuery, purchaseID, now); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.AlreadyAppliedError(purchaseID)
		}
		return nil, fmt.Errorf("claim purchase id: %w", err)
	}

	touched := make([]*domain.StockItem, 0, len(lines))
	movementIDs := make([]string, 0, len(lines))

	for _, line := range lines {
		item, err := lockItem(ctx, tx, line.ItemID)
		if err != nil {
			return nil, err
		}

		movement, err := appendMovement(ctx, tx, item, domain.MovementTypeIn, line.Quantity, 0,
			fmt.Sprintf("purchase %s received", purchaseID), actor)
		if err != nil {
			return nil, fmt.Errorf("record purchase movement: %w", err)
		}

		movementIDs = append(movementIDs, movement.ID)
		touched = append(touched, item)
	}

	linkQuery := `
		UPDATE purchase_applications
		SET movement_ids = $1
		WHERE purchase_id = $2`

	if _, err := tx.Exec(ctx, linkQuery, movementIDs, purchaseID); err != nil {
		return nil, fmt.Errorf("link purchase movements: %w", err)
	}
	app.MovementIDs = movementIDs

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit purchase transaction: %w", err)
	}

	for _, item := range touched {
		if err := s.producer.PublishStockUpdated(ctx, item); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish stock.updated event after purchase",
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "purchase applied",
		slog.String("purchase_id", purchaseID),
		slog.Int("lines", len(lines)),
	)

	return app, nil
}

// GetApplication retrieves the record of an applied purchase.
func (s *PurchaseService) GetApplication(ctx context.Context, purchaseID string) (*domain.PurchaseApplication, error) {
	app, err := s.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("get purchase application: %w", err)
	}
	return app, nil
}
