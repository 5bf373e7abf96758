package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/internal/event"
	"github.com/benjhiman/stockledger/pkg/database"
	apperrors "github.com/benjhiman/stockledger/pkg/errors"
	pkgkafka "github.com/benjhiman/stockledger/pkg/kafka"
	"github.com/benjhiman/stockledger/pkg/pagination"
)

// --- Mock ItemRepository ---

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) GetByID(ctx context.Context, id string) (*domain.StockItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockItem), args.Error(1)
}

func (m *mockItemRepository) List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]domain.StockItem), args.Int(1), args.Error(2)
}

// --- Mock MovementRepository ---

type mockMovementRepository struct {
	mock.Mock
}

func (m *mockMovementRepository) ListByItem(ctx context.Context, itemID string, params pagination.Params) ([]domain.Movement, int, error) {
	args := m.Called(ctx, itemID, params)
	return args.Get(0).([]domain.Movement), args.Int(1), args.Error(2)
}

func (m *mockMovementRepository) ListChain(ctx context.Context, itemID string) ([]domain.Movement, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]domain.Movement), args.Error(1)
}

// --- Mock ReservationRepository ---

type mockReservationRepository struct {
	mock.Mock
}

func (m *mockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) ListByItem(ctx context.Context, itemID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *mockReservationRepository) ListExpired(ctx context.Context, limit int) ([]domain.Reservation, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

// --- Mock PurchaseRepository ---

type mockPurchaseRepository struct {
	mock.Mock
}

func (m *mockPurchaseRepository) GetByID(ctx context.Context, purchaseID string) (*domain.PurchaseApplication, error) {
	args := m.Called(ctx, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseApplication), args.Error(1)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer builds an event producer against an unreachable broker.
// Publish failures are logged by the services, never returned.
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newMockDB(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	db, err := database.NewMockPool()
	require.NoError(t, err)
	return db
}

func testItem() *domain.StockItem {
	return &domain.StockItem{
		ID:          "11111111-1111-1111-1111-111111111111",
		ModelName:   "iPhone 13",
		Condition:   domain.ConditionUsed,
		Quantity:    10,
		Reserved:    2,
		Status:      domain.ItemStatusAvailable,
		MovementSeq: 4,
		Version:     4,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
}

// --- CreateItem ---

func TestCreateItem_WithInitialQuantity(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	db.ExpectBegin()
	db.ExpectExec("INSERT INTO stock_items").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	db.ExpectCommit()

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		ModelName:       "iPhone 13",
		Condition:       domain.ConditionNew,
		InitialQuantity: 5,
		Actor:           "tester",
	})

	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, int64(1), item.MovementSeq)
	assert.Equal(t, int64(1), item.Version)
	assert.Equal(t, domain.ItemStatusAvailable, item.Status)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestCreateItem_ZeroQuantity(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	db.ExpectBegin()
	db.ExpectExec("INSERT INTO stock_items").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	db.ExpectCommit()

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		ModelName: "iPhone 13",
		Condition: domain.ConditionUsed,
		Actor:     "tester",
	})

	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
	assert.Equal(t, int64(0), item.MovementSeq)
	// Zero on-hand quantity projects to sold.
	assert.Equal(t, domain.ItemStatusSold, item.Status)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestCreateItem_InvalidCondition(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		ModelName: "iPhone 13",
		Condition: "broken",
	})

	assert.Nil(t, item)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateItem_MissingModelName(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		Condition: domain.ConditionNew,
	})

	assert.Nil(t, item)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// --- ApplyMovement ---

func TestApplyMovement_Success(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)

	db.ExpectBegin()
	db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	db.ExpectCommit()

	movement, err := svc.ApplyMovement(ctx, item.ID, domain.MovementTypeOut, -3, "shipment", "tester")

	require.NoError(t, err)
	assert.Equal(t, int64(5), movement.Seq)
	assert.Equal(t, 10, movement.QuantityBefore)
	assert.Equal(t, 7, movement.QuantityAfter)
	assert.Equal(t, 7, item.Quantity)
	assert.Equal(t, int64(5), item.Version)
	itemRepo.AssertExpectations(t)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestApplyMovement_ConcurrentModification(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)

	db.ExpectBegin()
	db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// Version CAS misses: another writer advanced the item first.
	db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	db.ExpectRollback()

	movement, err := svc.ApplyMovement(ctx, item.ID, domain.MovementTypeOut, -3, "shipment", "tester")

	assert.Nil(t, movement)
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestApplyMovement_InvalidType(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	movement, err := svc.ApplyMovement(context.Background(), "item-1", "teleport", 1, "", "tester")

	assert.Nil(t, movement)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	itemRepo.AssertNotCalled(t, "GetByID")
}

func TestApplyMovement_ZeroDelta(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)

	movement, err := svc.ApplyMovement(ctx, item.ID, domain.MovementTypeAdjust, 0, "noop", "tester")

	assert.Nil(t, movement)
	assert.ErrorIs(t, err, domain.ErrInvalidDelta)
}

func TestApplyMovement_WouldGoNegative(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)

	movement, err := svc.ApplyMovement(ctx, item.ID, domain.MovementTypeOut, -11, "shipment", "tester")

	assert.Nil(t, movement)
	assert.ErrorIs(t, err, domain.ErrInvalidDelta)
}

// --- AdjustStock ---

func TestAdjustStock_MissingReason(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	item, err := svc.AdjustStock(context.Background(), "item-1", 5, "", "tester")

	assert.Nil(t, item)
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)
	itemRepo.AssertNotCalled(t, "GetByID")
}

func TestAdjustStock_WouldGoNegative(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)

	result, err := svc.AdjustStock(ctx, item.ID, -11, "shrinkage audit", "tester")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)
}

func TestAdjustStock_Success(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)

	db.ExpectBegin()
	db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	db.ExpectCommit()

	result, err := svc.AdjustStock(ctx, item.ID, -2, "damaged in storage", "tester")

	require.NoError(t, err)
	assert.Equal(t, 8, result.Quantity)
	assert.NoError(t, db.ExpectationsWereMet())
}

// --- RetireItem ---

func TestRetireItem_Success(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	item := testItem()
	db.ExpectBegin()
	db.ExpectQuery("SELECT .+ FROM stock_items").
		WithArgs(item.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "model_name", "sku", "serial_number", "condition",
			"quantity", "reserved", "status", "movement_seq", "version",
			"created_at", "updated_at",
		}).AddRow(
			item.ID, item.ModelName, item.SKU, item.SerialNumber, item.Condition,
			item.Quantity, item.Reserved, item.Status, item.MovementSeq, item.Version,
			item.CreatedAt, item.UpdatedAt,
		))
	db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	db.ExpectCommit()

	result, err := svc.RetireItem(context.Background(), item.ID, domain.ItemStatusDamaged, "cracked screen", "tester")

	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusDamaged, result.Status)
	assert.Equal(t, int64(5), result.Version)
	// Retiring never touches the counters or the ledger.
	assert.Equal(t, 10, result.Quantity)
	assert.Equal(t, int64(4), result.MovementSeq)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestRetireItem_InvalidStatus(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	result, err := svc.RetireItem(context.Background(), "item-1", domain.ItemStatusSold, "reason", "tester")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRetireItem_AlreadyRetiredDifferentStatus(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())

	item := testItem()
	item.Status = domain.ItemStatusReturned
	db.ExpectBegin()
	db.ExpectQuery("SELECT .+ FROM stock_items").
		WithArgs(item.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "model_name", "sku", "serial_number", "condition",
			"quantity", "reserved", "status", "movement_seq", "version",
			"created_at", "updated_at",
		}).AddRow(
			item.ID, item.ModelName, item.SKU, item.SerialNumber, item.Condition,
			item.Quantity, item.Reserved, item.Status, item.MovementSeq, item.Version,
			item.CreatedAt, item.UpdatedAt,
		))
	db.ExpectRollback()

	result, err := svc.RetireItem(context.Background(), item.ID, domain.ItemStatusDamaged, "reason", "tester")

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrItemRetired)
	assert.NoError(t, db.ExpectationsWereMet())
}

// --- ListMovements / VerifyLedger ---

func TestListMovements_ItemNotFound(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	itemRepo.On("GetByID", ctx, "missing").Return(nil, domain.ItemNotFoundError("missing"))

	movements, total, err := svc.ListMovements(ctx, "missing", pagination.Params{Page: 1, PerPage: 20})

	assert.Nil(t, movements)
	assert.Zero(t, total)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestVerifyLedger_Consistent(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	item.Quantity = 6
	chain := []domain.Movement{
		{ID: "m1", Seq: 1, Quantity: 10, QuantityBefore: 0, QuantityAfter: 10},
		{ID: "m2", Seq: 2, Quantity: -4, QuantityBefore: 10, QuantityAfter: 6},
	}

	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)
	movementRepo.On("ListChain", ctx, item.ID).Return(chain, nil)

	result, err := svc.VerifyLedger(ctx, item.ID)

	require.NoError(t, err)
	assert.True(t, result.Consistent)
	assert.Equal(t, 6, result.ReplayedQuantity)
	assert.Equal(t, 6, result.StoredQuantity)
	assert.Equal(t, 2, result.MovementCount)
	assert.Empty(t, result.Problem)
}

func TestVerifyLedger_QuantityMismatch(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	item.Quantity = 9
	chain := []domain.Movement{
		{ID: "m1", Seq: 1, Quantity: 10, QuantityBefore: 0, QuantityAfter: 10},
		{ID: "m2", Seq: 2, Quantity: -4, QuantityBefore: 10, QuantityAfter: 6},
	}

	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)
	movementRepo.On("ListChain", ctx, item.ID).Return(chain, nil)

	result, err := svc.VerifyLedger(ctx, item.ID)

	require.NoError(t, err)
	assert.False(t, result.Consistent)
	assert.Contains(t, result.Problem, "does not match stored quantity")
}

func TestVerifyLedger_BrokenChain(t *testing.T) {
	itemRepo := new(mockItemRepository)
	movementRepo := new(mockMovementRepository)
	db := newMockDB(t)
	defer db.Close()
	svc := NewLedgerService(itemRepo, movementRepo, db, newTestProducer(), newTestLogger())
	ctx := context.Background()

	item := testItem()
	chain := []domain.Movement{
		{ID: "m1", Seq: 1, Quantity: 10, QuantityBefore: 0, QuantityAfter: 10},
		{ID: "m2", Seq: 3, Quantity: -4, QuantityBefore: 10, QuantityAfter: 6},
	}

	itemRepo.On("GetByID", ctx, item.ID).Return(item, nil)
	movementRepo.On("ListChain", ctx, item.ID).Return(chain, nil)

	result, err := svc.VerifyLedger(ctx, item.ID)

	require.NoError(t, err)
	assert.False(t, result.Consistent)
	assert.NotEmpty(t, result.Problem)
}
