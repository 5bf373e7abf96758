package http

import (
	"net/http"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benjhiman/stockledger/internal/domain"
)

func sampleReservation(status string, expiresAt time.Time) *domain.Reservation {
	now := time.Now().UTC()
	return &domain.Reservation{
		ID:        validReservationID,
		ItemID:    validItemID,
		Quantity:  2,
		Status:    status,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func expectReservationLock(db pgxmock.PgxPoolIface, res *domain.Reservation) {
	db.ExpectQuery("SELECT .+ FROM stock_reservations").
		WithArgs(res.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "item_id", "quantity", "status", "customer_ref",
			"notes", "expires_at", "created_at", "updated_at",
		}).AddRow(
			res.ID, res.ItemID, res.Quantity, res.Status, res.CustomerRef,
			res.Notes, res.ExpiresAt, res.CreatedAt, res.UpdatedAt,
		))
}

// ============================================================================
// POST /api/v1/reservations - CreateReservation
// ============================================================================

func TestCreateReservation_Success(t *testing.T) {
	ts := newTestServer(t)

	item := sampleItem() // available 8

	ts.db.ExpectBegin()
	expectItemLock(ts.db, item)
	ts.db.ExpectExec("INSERT INTO stock_reservations").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ts.db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ts.db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ts.db.ExpectCommit()

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/", CreateReservationRequest{
		ItemID:   validItemID,
		Quantity: 3,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, domain.ReservationStatusActive, data["status"])
	assert.Equal(t, float64(3), data["quantity"])
	assert.NoError(t, ts.db.ExpectationsWereMet())
}

func TestCreateReservation_InsufficientAvailability(t *testing.T) {
	ts := newTestServer(t)

	item := sampleItem() // available 8

	ts.db.ExpectBegin()
	expectItemLock(ts.db, item)
	ts.db.ExpectRollback()

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/", CreateReservationRequest{
		ItemID:   validItemID,
		Quantity: 9,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INSUFFICIENT_AVAILABILITY", resp.Error.Code)
	assert.NoError(t, ts.db.ExpectationsWereMet())
}

func TestCreateReservation_InvalidJSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doRaw(t, http.MethodPost, "/api/v1/reservations/", []byte(`{bad`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "invalid request body")
}

func TestCreateReservation_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{
			name: "missing item_id",
			body: CreateReservationRequest{Quantity: 1},
		},
		{
			name: "item_id not a uuid",
			body: CreateReservationRequest{ItemID: "not-a-uuid", Quantity: 1},
		},
		{
			name: "zero quantity",
			body: CreateReservationRequest{ItemID: validItemID},
		},
		{
			name: "negative ttl",
			body: map[string]interface{}{
				"item_id":     validItemID,
				"quantity":    1,
				"ttl_seconds": -60,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(t, http.MethodPost, "/api/v1/reservations/", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeResponse(t, rec)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		})
	}
}

// ============================================================================
// GET /api/v1/reservations/{reservationId} - GetReservation
// ============================================================================

func TestGetReservation_Success(t *testing.T) {
	ts := newTestServer(t)

	res := sampleReservation(domain.ReservationStatusActive, time.Now().UTC().Add(time.Hour))
	ts.reservationRepo.On("GetByID", mock.Anything, validReservationID).Return(res, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/reservations/"+validReservationID, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
	ts.reservationRepo.AssertExpectations(t)
}

func TestGetReservation_InvalidUUID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/reservations/bad-id", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

func TestGetReservation_NotFound(t *testing.T) {
	ts := newTestServer(t)

	ts.reservationRepo.On("GetByID", mock.Anything, validReservationID).
		Return(nil, domain.ReservationNotFoundError(validReservationID))

	rec := ts.do(t, http.MethodGet, "/api/v1/reservations/"+validReservationID, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RESERVATION_NOT_FOUND", resp.Error.Code)
}

// ============================================================================
// POST /api/v1/reservations/{reservationId}/confirm - ConfirmReservation
// ============================================================================

func TestConfirmReservation_Success(t *testing.T) {
	ts := newTestServer(t)

	res := sampleReservation(domain.ReservationStatusActive, time.Now().UTC().Add(time.Hour))
	item := sampleItem()

	ts.db.ExpectBegin()
	expectReservationLock(ts.db, res)
	expectItemLock(ts.db, item)
	ts.db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ts.db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ts.db.ExpectExec("UPDATE stock_reservations").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ts.db.ExpectCommit()

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/"+validReservationID+"/confirm", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, domain.ReservationStatusConfirmed, data["status"])
	assert.NoError(t, ts.db.ExpectationsWereMet())
}

func TestConfirmReservation_Expired(t *testing.T) {
	ts := newTestServer(t)

	res := sampleReservation(domain.ReservationStatusActive, time.Now().UTC().Add(-time.Minute))

	ts.db.ExpectBegin()
	expectReservationLock(ts.db, res)
	ts.db.ExpectRollback()

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/"+validReservationID+"/confirm", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "RESERVATION_EXPIRED", resp.Error.Code)
	assert.NoError(t, ts.db.ExpectationsWereMet())
}

func TestConfirmReservation_InvalidUUID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/bad-id/confirm", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
}

// ============================================================================
// POST /api/v1/reservations/{reservationId}/cancel - CancelReservation
// ============================================================================

func TestCancelReservation_Success(t *testing.T) {
	ts := newTestServer(t)

	res := sampleReservation(domain.ReservationStatusActive, time.Now().UTC().Add(time.Hour))
	item := sampleItem()

	ts.db.ExpectBegin()
	expectReservationLock(ts.db, res)
	expectItemLock(ts.db, item)
	ts.db.ExpectExec("INSERT INTO stock_movements").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ts.db.ExpectExec("UPDATE stock_items").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ts.db.ExpectExec("UPDATE stock_reservations").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ts.db.ExpectCommit()

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/"+validReservationID+"/cancel", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, domain.ReservationStatusCancelled, data["status"])
	assert.NoError(t, ts.db.ExpectationsWereMet())
}

func TestCancelReservation_AlreadyCancelled(t *testing.T) {
	ts := newTestServer(t)

	res := sampleReservation(domain.ReservationStatusCancelled, time.Now().UTC().Add(-time.Hour))

	ts.db.ExpectBegin()
	expectReservationLock(ts.db, res)
	ts.db.ExpectRollback()

	rec := ts.do(t, http.MethodPost, "/api/v1/reservations/"+validReservationID+"/cancel", nil)

	// Releasing a settled reservation is a no-op, not an error.
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, domain.ReservationStatusCancelled, data["status"])
}

// ============================================================================
// GET /api/v1/stock/{itemId}/reservations - ListItemReservations
// ============================================================================

func TestListItemReservations_Success(t *testing.T) {
	ts := newTestServer(t)

	reservations := []domain.Reservation{
		*sampleReservation(domain.ReservationStatusActive, time.Now().UTC().Add(time.Hour)),
		*sampleReservation(domain.ReservationStatusCancelled, time.Now().UTC().Add(-time.Hour)),
	}
	ts.itemRepo.On("GetByID", mock.Anything, validItemID).Return(sampleItem(), nil)
	ts.reservationRepo.On("ListByItem", mock.Anything, validItemID).Return(reservations, nil)

	rec := ts.do(t, http.MethodGet, "/api/v1/stock/"+validItemID+"/reservations", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)

	data, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
	ts.reservationRepo.AssertExpectations(t)
}

func TestListItemReservations_ItemNotFound(t *testing.T) {
	ts := newTestServer(t)

	ts.itemRepo.On("GetByID", mock.Anything, validItemID).
		Return(nil, domain.ItemNotFoundError(validItemID))

	rec := ts.do(t, http.MethodGet, "/api/v1/stock/"+validItemID+"/reservations", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ITEM_NOT_FOUND", resp.Error.Code)
}
