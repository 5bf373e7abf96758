package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/benjhiman/stockledger/internal/service"
	"github.com/benjhiman/stockledger/pkg/httputil"
	"github.com/benjhiman/stockledger/pkg/validator"
)

// ReservationHandler handles HTTP requests for reservation endpoints.
type ReservationHandler struct {
	service *service.ReservationService
	logger  *slog.Logger
}

// NewReservationHandler creates a new reservation HTTP handler.
func NewReservationHandler(svc *service.ReservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateReservationRequest is the JSON request body for placing a hold.
type CreateReservationRequest struct {
	ItemID      string  `json:"item_id" validate:"required,uuid"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
	TTLSeconds  int     `json:"ttl_seconds" validate:"omitempty,gte=1"`
	CustomerRef *string `json:"customer_ref" validate:"omitempty,min=1,max=255"`
	Notes       *string `json:"notes" validate:"omitempty,max=1000"`
}

// CreateReservation handles POST /api/v1/reservations
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	res, err := h.service.Create(r.Context(), service.CreateReservationInput{
		ItemID:      req.ItemID,
		Quantity:    req.Quantity,
		TTL:         time.Duration(req.TTLSeconds) * time.Second,
		CustomerRef: req.CustomerRef,
		Notes:       req.Notes,
		Actor:       actor(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: res})
}

// GetReservation handles GET /api/v1/reservations/{reservationId}
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reservationId"))
	if !ok {
		return
	}

	res, err := h.service.Get(r.Context(), reservationID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// ConfirmReservation handles POST /api/v1/reservations/{reservationId}/confirm
func (h *ReservationHandler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reservationId"))
	if !ok {
		return
	}

	res, err := h.service.Confirm(r.Context(), reservationID.String(), actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// CancelReservation handles POST /api/v1/reservations/{reservationId}/cancel
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	reservationID, ok := httputil.ParseUUID(w, chi.URLParam(r, "reservationId"))
	if !ok {
		return
	}

	res, err := h.service.Cancel(r.Context(), reservationID.String(), actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: res})
}

// ListItemReservations handles GET /api/v1/stock/{itemId}/reservations
func (h *ReservationHandler) ListItemReservations(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	reservations, err := h.service.ListByItem(r.Context(), itemID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: reservations})
}
