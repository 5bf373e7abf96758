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
)

// ReservationService implements reservation holds on stock items. A hold
// moves units from available to reserved without touching the on-hand
// quantity; confirming a hold removes the units, releasing it returns them.
type ReservationService struct {
	itemRepo        repository.ItemRepository
	reservationRepo repository.ReservationRepository
	db              database.DBTX
	producer        *event.Producer
	logger          *slog.Logger
	ttl             time.Duration
	sweepBatchSize  int
}

// NewReservationService creates a new reservation service. A non-positive
// ttl falls back to the default reservation TTL.
func NewReservationService(
	itemRepo repository.ItemRepository,
	reservationRepo repository.ReservationRepository,
	db database.DBTX,
	producer *event.Producer,
	logger *slog.Logger,
	ttl time.Duration,
) *ReservationService {
	if ttl <= 0 {
		ttl = domain.DefaultReservationTTL
	}
	return &ReservationService{
		itemRepo:        itemRepo,
		reservationRepo: reservationRepo,
		db:              db,
		producer:        producer,
		logger:          logger,
		ttl:             ttl,
		sweepBatchSize:  100,
	}
}

// lockReservation loads a reservation row under SELECT FOR UPDATE inside the
// caller's transaction.
func lockReservation(ctx context.Context, tx pgx.Tx, id string) (*domain.Reservation, error) {
	query := `
		SELECT id, item_id, quantity, status, customer_ref, notes, expires_at, created_at, updated_at
		FROM stock_reservations
		WHERE id = $1
		FOR UPDATE`

	var res domain.Reservation
	err := tx.QueryRow(ctx, query, id).Scan(
		&res.ID,
		&res.ItemID,
		&res.Quantity,
		&res.Status,
		&res.CustomerRef,
		&res.Notes,
		&res.ExpiresAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ReservationNotFoundError(id)
		}
		return nil, fmt.Errorf("lock reservation: %w", err)
	}

	return &res, nil
}

func setReservationStatus(ctx context.Context, tx pgx.Tx, res *domain.Reservation, status string, now time.Time) error {
	query := `
		UPDATE stock_reservations
		SET status = $1, updated_at = $2
		WHERE id = $3`

	if _, err := tx.Exec(ctx, query, status, now, res.ID); err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}

	res.Status = status
	res.UpdatedAt = now
	return nil
}

// CreateReservationInput carries the fields for placing a hold.
type CreateReservationInput struct {
	ItemID      string
	Quantity    int
	TTL         time.Duration
	CustomerRef *string
	Notes       *string
	Actor       string
}

// Create places a hold on a stock item. The item row is locked first so
// concurrent holds on the same item serialize and availability is checked
// against a consistent snapshot.
func (s *ReservationService) Create(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error) {
	if input.Quantity <= 0 {
		return nil, apperrors.InvalidInput("reservation quantity must be positive")
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reservation transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := lockItem(ctx, tx, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.IsRetired() {
		return nil, domain.ItemRetiredError(item.ID, item.Status)
	}
	if item.Available() < input.Quantity {
		return nil, domain.InsufficientAvailabilityError(item.Available(), input.Quantity)
	}

	now := time.Now().UTC()
	res := &domain.Reservation{
		ID:          uuid.New().String(),
		ItemID:      item.ID,
		Quantity:    input.Quantity,
		Status:      domain.ReservationStatusActive,
		CustomerRef: input.CustomerRef,
		Notes:       input.Notes,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	insertQuery := `
		INSERT INTO stock_reservations (id, item_id, quantity, status, customer_ref, notes, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, insertQuery,
		res.ID,
		res.ItemID,
		res.Quantity,
		res.Status,
		res.CustomerRef,
		res.Notes,
		res.ExpiresAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}

	if _, err := appendMovement(ctx, tx, item, domain.MovementTypeReserve, 0, input.Quantity, "reservation created", input.Actor); err != nil {
		return nil, fmt.Errorf("record reserve movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reservation transaction: %w", err)
	}

	if err := s.producer.PublishStockReserved(ctx, res, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.reserved event",
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservation created",
		slog.String("reservation_id", res.ID),
		slog.String("item_id", item.ID),
		slog.Int("quantity", res.Quantity),
		slog.Time("expires_at", res.ExpiresAt),
	)

	return res, nil
}

// Get retrieves a reservation by ID.
func (s *ReservationService) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

// ListByItem returns all reservations for a stock item.
func (s *ReservationService) ListByItem(ctx context.Context, itemID string) ([]domain.Reservation, error) {
	if _, err := s.itemRepo.GetByID(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get stock item for reservations: %w", err)
	}

	reservations, err := s.reservationRepo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	return reservations, nil
}

// Confirm turns an active hold into a completed sale: the held units leave
// the on-hand quantity and the hold is settled. A hold past its expiration
// cannot be confirmed even if the sweeper has not caught it yet.
func (s *ReservationService) Confirm(ctx context.Context, id, actor string) (*domain.Reservation, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin confirm transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case res.Status == domain.ReservationStatusExpired:
		return nil, domain.ReservationExpiredError(res.ID)
	case res.IsTerminal():
		return nil, domain.ReservationNotActiveError(res.ID, res.Status)
	case res.IsExpired():
		// Lapsed but not yet swept. The sweeper owns the transition.
		return nil, domain.ReservationExpiredError(res.ID)
	}

	item, err := lockItem(ctx, tx, res.ItemID)
	if err != nil {
		return nil, err
	}

	if _, err := appendMovement(ctx, tx, item, domain.MovementTypeSold, -res.Quantity, -res.Quantity, "reservation confirmed", actor); err != nil {
		return nil, fmt.Errorf("record sold movement: %w", err)
	}

	now := time.Now().UTC()
	if err := setReservationStatus(ctx, tx, res, domain.ReservationStatusConfirmed, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit confirm transaction: %w", err)
	}

	if err := s.producer.PublishStockSold(ctx, res, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.sold event",
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservation confirmed",
		slog.String("reservation_id", res.ID),
		slog.String("item_id", item.ID),
		slog.Int("quantity", res.Quantity),
		slog.Int("remaining", item.Quantity),
	)

	return res, nil
}

// Cancel releases an active hold on behalf of a caller.
func (s *ReservationService) Cancel(ctx context.Context, id, actor string) (*domain.Reservation, error) {
	res, _, err := s.release(ctx, id, domain.ReservationStatusCancelled, actor)
	return res, err
}

// release returns a hold's units to availability and settles it with the
// given terminal status. Releasing an already terminal reservation is an
// idempotent no-op that returns the current state; the bool reports whether
// this call performed the transition.
func (s *ReservationService) release(ctx context.Context, id, terminalStatus, actor string) (*domain.Reservation, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin release transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res, err := lockReservation(ctx, tx, id)
	if err != nil {
		return nil, false, err
	}

	if res.IsTerminal() {
		return res, false, nil
	}

	item, err := lockItem(ctx, tx, res.ItemID)
	if err != nil {
		return nil, false, err
	}

	reason := "reservation cancelled"
	if terminalStatus == domain.ReservationStatusExpired {
		reason = "reservation expired"
	}

	if _, err := appendMovement(ctx, tx, item, domain.MovementTypeRelease, 0, -res.Quantity, reason, actor); err != nil {
		return nil, false, fmt.Errorf("record release movement: %w", err)
	}

	now := time.Now().UTC()
	if err := setReservationStatus(ctx, tx, res, terminalStatus, now); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit release transaction: %w", err)
	}

	if err := s.producer.PublishStockReleased(ctx, res, item); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish stock.released event",
			slog.String("reservation_id", res.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "reservation released",
		slog.String("reservation_id", res.ID),
		slog.String("item_id", item.ID),
		slog.String("status", terminalStatus),
		slog.Int("quantity", res.Quantity),
	)

	return res, true, nil
}

// ExpireDue settles a batch of reservations whose expiration has passed,
// returning their held units to availability. It returns the number of
// reservations this sweep actually expired; rows that went terminal between
// listing and locking are not counted. Per-reservation failures are logged
// and skipped so one bad row does not stall the sweep.
func (s *ReservationService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.reservationRepo.ListExpired(ctx, s.sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}

	expired := 0
	for _, res := range due {
		_, released, err := s.release(ctx, res.ID, domain.ReservationStatusExpired, "system")
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to expire reservation",
				slog.String("reservation_id", res.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if released {
			expired++
		}
	}

	if expired > 0 {
		s.logger.InfoContext(ctx, "expired reservations swept", slog.Int("count", expired))
	}

	return expired, nil
}
