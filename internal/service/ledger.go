package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/internal/event"
	"github.com/benjhiman/stockledger/internal/repository"
	"github.com/benjhiman/stockledger/pkg/database"
	apperrors "github.com/benjhiman/stockledger/pkg/errors"
	"github.com/benjhiman/stockledger/pkg/pagination"
)

// LedgerService implements the movement ledger and the stock item store. It
// is the only writer of item quantities: every mutation appends a movement
// and advances the item's counters in one transaction.
type LedgerService struct {
	itemRepo     repository.ItemRepository
	movementRepo repository.MovementRepository
	db           database.DBTX
	producer     *event.Producer
	logger       *slog.Logger
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(
	itemRepo repository.ItemRepository,
	movementRepo repository.MovementRepository,
	db database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		itemRepo:     itemRepo,
		movementRepo: movementRepo,
		db:           db,
		producer:     producer,
		logger:       logger,
	}
}

// ---------------------------------------------------------------------------
// Transactional ledger primitives (shared with the reservation and purchase
// services)
// ---------------------------------------------------------------------------

// lockItem loads a stock item row under SELECT FOR UPDATE inside the caller's
// transaction, serializing all multi-step operations on the item.
func lockItem(ctx context.Context, tx pgx.Tx, itemID string) (*domain.StockItem, error) {
	query := `
		SELECT id, model_name, sku, serial_number, condition, quantity, reserved, status, movement_seq, version, created_at, updated_at
		FROM stock_items
		WHERE id = $1
		FOR UPDATE`

	var s domain.StockItem
	err := tx.QueryRow(ctx, query, itemID).Scan(
		&s.ID,
		&s.ModelName,
		&s.SKU,
		&s.SerialNumber,
		&s.Condition,
		&s.Quantity,
		&s.Reserved,
		&s.Status,
		&s.MovementSeq,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ItemNotFoundError(itemID)
		}
		return nil, fmt.Errorf("lock stock item: %w", err)
	}

	return &s, nil
}

// appendMovement writes the next ledger entry for the item and advances the
// item counters inside the caller's transaction. The update is a
// compare-and-swap on the item version: callers that locked the row first
// always win; lock-free callers get a concurrent modification error and may
// retry. On success the passed item is updated in place to the post-movement
// state.
func appendMovement(
	ctx context.Context,
	tx pgx.Tx,
	item *domain.StockItem,
	movementType string,
	delta int,
	reservedDelta int,
	reason, actor string,
) (*domain.Movement, error) {
	now := time.Now().UTC()

	movement := &domain.Movement{
		ID:             uuid.New().String(),
		ItemID:         item.ID,
		Seq:            item.MovementSeq + 1,
		Type:           movementType,
		Quantity:       delta,
		QuantityBefore: item.Quantity,
		QuantityAfter:  item.Quantity + delta,
		Reason:         reason,
		Actor:          actor,
		CreatedAt:      now,
	}

	// The floor is enforced here, under the lock, not only in the callers'
	// pre-checks: an adjustment can take quantity below an open hold, and a
	// later confirm of that hold must fail typed instead of tripping the
	// database CHECK constraint.
	if movement.QuantityAfter < 0 {
		return nil, domain.InvalidDeltaError(fmt.Sprintf(
			"movement would drive quantity below zero: %d%+d", item.Quantity, delta))
	}

	insertQuery := `
		INSERT INTO stock_movements (id, item_id, seq, type, quantity, quantity_before, quantity_after, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, insertQuery,
		movement.ID,
		movement.ItemID,
		movement.Seq,
		movement.Type,
		movement.Quantity,
		movement.QuantityBefore,
		movement.QuantityAfter,
		movement.Reason,
		movement.Actor,
		movement.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stock movement: %w", err)
	}

	updated := *item
	updated.Quantity = item.Quantity + delta
	updated.Reserved = item.Reserved + reservedDelta
	updated.Status = updated.DerivedStatus()

	updateQuery := `
		UPDATE stock_items
		SET quantity = $1, reserved = $2, status = $3, movement_seq = $4, version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7`

	ct, err := tx.Exec(ctx, updateQuery,
		updated.Quantity,
		updated.Reserved,
		updated.Status,
		movement.Seq,
		now,
		item.ID,
		item.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("advance stock item counters: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ConcurrentModificationError(item.ID)
	}

	updated.MovementSeq = movement.Seq
	updated.Version = item.Version + 1
	updated.UpdatedAt = now
	*item = updated

	return movement, nil
}

// ---------------------------------------------------------------------------
// Stock item operations
// ---------------------------------------------------------------------------

// CreateItemInput carries the fields for stock intake.
type CreateItemInput struct {
	ModelName       string
	SKU             *string
	SerialNumber    *string
	Condition       string
	InitialQuantity int
	Actor           string
}

// CreateItem registers a new stock item. A positive initial quantity is
// recorded as an "in" movement so the ledger chain starts at intake.
func (s *LedgerService) CreateItem(ctx context.Context, input CreateItemInput) (*domain.StockItem, error) {
	if input.ModelName == "" {
		return nil, apperrors.InvalidInput("model_name is required")
	}
	if !domain.IsValidCondition(input.Condition) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid condition %q", input.Condition))
	}
	if input.InitialQuantity < 0 {
		return nil, apperrors.InvalidInput("initial_quantity must be non-negative")
	}

	now := time.Now().UTC()
	item := &domain.StockItem{
		ID:           uuid.New().String(),
		ModelName:    input.ModelName,
		SKU:          input.SKU,
		SerialNumber: input.SerialNumber,
		Condition:    input.Condition,
		Quantity:     0,
		Reserved:     0,
		MovementSeq:  0,
		Version:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	item.Status = item.DerivedStatus()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create item transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insertQuery := `
		INSERT INTO stock_items (id, model_name, sku, serial_number, condition, quantity, reserved, status, movement_seq, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, insertQuery,
		item.ID,
		item.ModelName,
		item.SKU,
		item.SerialNumber,
		item.Condition,
		item.Quantity,
		item.Reserved,
		item.Status,
		item.MovementSeq,
		item.Version,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stock item: %w", err)
	}

	if input.InitialQuantity > 0 {
		if _, err := appendMovement(ctx, tx, item, domain.MovementTypeIn, input.InitialQuantity, 0, "initial intake", input.Actor); err != nil {
			return nil, fmt.Errorf("record intake movement: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create item transaction: %w", err)
	}

	if err := s.producer.PublishStockUpdated(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.updated event after intake",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "stock item created",
		slog.String("item_id", item.ID),
		slog.String("model_name", item.ModelName),
		slog.String("condition", item.Condition),
		slog.Int("quantity", item.Quantity),
	)

	return item, nil
}

// GetItem retrieves a stock item by ID.
func (s *LedgerService) GetItem(ctx context.Context, itemID string) (*domain.StockItem, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return item, nil
}

// ListItems returns stock items, newest first.
func (s *LedgerService) ListItems(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	items, total, err := s.itemRepo.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock items: %w", err)
	}

	return items, total, nil
}

// ApplyMovement appends a movement to an item's ledger on the lock-free
// optimistic path: the item is read, validated, and the append is guarded by
// the version CAS. A concurrent writer surfaces as a concurrent modification
// error and the caller may retry.
func (s *LedgerService) ApplyMovement(ctx context.Context, itemID, movementType string, delta int, reason, actor string) (*domain.Movement, error) {
	if !domain.IsValidMovementType(movementType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid movement type %q", movementType))
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get stock item for movement: %w", err)
	}

	if domain.TouchesQuantity(movementType) {
		if delta == 0 {
			return nil, domain.InvalidDeltaError("movement delta must be non-zero")
		}
		if item.Quantity+delta < 0 {
			return nil, domain.InvalidDeltaError(fmt.Sprintf(
				"movement would drive quantity below zero: %d%+d", item.Quantity, delta))
		}
	} else if delta != 0 {
		return nil, domain.InvalidDeltaError(fmt.Sprintf("%s movements must carry a zero delta", movementType))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin movement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	movement, err := appendMovement(ctx, tx, item, movementType, delta, 0, reason, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit movement transaction: %w", err)
	}

	if err := s.producer.PublishStockUpdated(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.updated event",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "movement applied",
		slog.String("item_id", item.ID),
		slog.String("type", movementType),
		slog.Int("delta", delta),
		slog.Int64("seq", movement.Seq),
		slog.Int("quantity", item.Quantity),
	)

	return movement, nil
}

// AdjustStock records a manual correction. The reason is mandatory and an
// adjustment may never drive the quantity negative.
func (s *LedgerService) AdjustStock(ctx context.Context, itemID string, delta int, reason, actor string) (*domain.StockItem, error) {
	if reason == "" {
		return nil, domain.InvalidAdjustmentError("adjustment reason is required")
	}
	if delta == 0 {
		return nil, domain.InvalidAdjustmentError("adjustment delta must be non-zero")
	}

	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get stock item for adjustment: %w", err)
	}
	if item.Quantity+delta < 0 {
		return nil, domain.InvalidAdjustmentError(fmt.Sprintf(
			"adjustment would drive quantity below zero: %d%+d", item.Quantity, delta))
	}

	if _, err := s.ApplyMovement(ctx, itemID, domain.MovementTypeAdjust, delta, reason, actor); err != nil {
		return nil, err
	}

	updated, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get stock item after adjustment: %w", err)
	}

	return updated, nil
}

// ListMovements returns a page of an item's ledger in seq order.
func (s *LedgerService) ListMovements(ctx context.Context, itemID string, params pagination.Params) ([]domain.Movement, int, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, 0, fmt.Errorf("get stock item for movements: %w", err)
	}

	movements, total, err := s.movementRepo.ListByItem(ctx, itemID, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}

	return movements, total, nil
}

// RetireItem takes an item off sale without touching its quantity. Retired
// items reject new reservations. Retiring an already retired item to the same
// status is a no-op; to a different status it is a conflict.
func (s *LedgerService) RetireItem(ctx context.Context, itemID, status, reason, actor string) (*domain.StockItem, error) {
	if !domain.IsRetireStatus(status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid retire status %q", status))
	}
	if reason == "" {
		return nil, apperrors.InvalidInput("retire reason is required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin retire transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}

	if item.IsRetired() {
		if item.Status == status {
			return item, nil
		}
		return nil, domain.ItemRetiredError(item.ID, item.Status)
	}

	now := time.Now().UTC()
	updateQuery := `
		UPDATE stock_items
		SET status = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`

	ct, err := tx.Exec(ctx, updateQuery, status, now, item.ID, item.Version)
	if err != nil {
		return nil, fmt.Errorf("retire stock item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nil, domain.ConcurrentModificationError(item.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit retire transaction: %w", err)
	}

	item.Status = status
	item.Version++
	item.UpdatedAt = now

	if err := s.producer.PublishStockUpdated(ctx, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.updated event after retire",
			slog.String("item_id", item.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "stock item retired",
		slog.String("item_id", item.ID),
		slog.String("status", status),
		slog.String("reason", reason),
	)

	return item, nil
}

// LedgerVerification is the result of replaying an item's movement chain.
type LedgerVerification struct {
	ItemID           string `json:"item_id"`
	StoredQuantity   int    `json:"stored_quantity"`
	ReplayedQuantity int    `json:"replayed_quantity"`
	MovementCount    int    `json:"movement_count"`
	Consistent       bool   `json:"consistent"`
	Problem          string `json:"problem,omitempty"`
}

// VerifyLedger replays an item's full movement chain from zero and checks
// it against the stored quantity and the chain invariants.
func (s *LedgerService) VerifyLedger(ctx context.Context, itemID string) (*LedgerVerification, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get stock item for verification: %w", err)
	}

	chain, err := s.movementRepo.ListChain(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("load movement chain: %w", err)
	}

	result := &LedgerVerification{
		ItemID:         item.ID,
		StoredQuantity: item.Quantity,
		MovementCount:  len(chain),
	}

	if err := domain.VerifyChain(chain); err != nil {
		result.Problem = err.Error()
		return result, nil
	}

	result.ReplayedQuantity = domain.ReplayQuantity(0, chain)
	if result.ReplayedQuantity != item.Quantity {
		result.Problem = fmt.Sprintf("replayed quantity %d does not match stored quantity %d",
			result.ReplayedQuantity, item.Quantity)
		return result, nil
	}

	result.Consistent = true
	return result, nil
}
