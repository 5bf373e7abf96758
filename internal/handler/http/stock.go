package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/internal/service"
	"github.com/benjhiman/stockledger/pkg/httputil"
	"github.com/benjhiman/stockledger/pkg/pagination"
	"github.com/benjhiman/stockledger/pkg/validator"
)

// actor returns the caller identity recorded on movements, from the X-Actor
// header.
func actor(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "api"
}

// StockHandler handles HTTP requests for stock item endpoints.
type StockHandler struct {
	service *service.LedgerService
	logger  *slog.Logger
}

// NewStockHandler creates a new stock HTTP handler.
func NewStockHandler(svc *service.LedgerService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateStockRequest is the JSON request body for stock intake.
type CreateStockRequest struct {
	ModelName       string  `json:"model_name" validate:"required,min=1,max=255"`
	SKU             *string `json:"sku" validate:"omitempty,min=1,max=100"`
	SerialNumber    *string `json:"serial_number" validate:"omitempty,min=1,max=100"`
	Condition       string  `json:"condition" validate:"required,oneof=new used refurbished"`
	InitialQuantity int     `json:"initial_quantity" validate:"gte=0"`
}

// AdjustStockRequest is the JSON request body for a manual stock correction.
type AdjustStockRequest struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// RetireStockRequest is the JSON request body for taking an item off sale.
type RetireStockRequest struct {
	Status string `json:"status" validate:"required,oneof=damaged returned cancelled"`
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// --- Handlers ---

// CreateStock handles POST /api/v1/stock
func (h *StockHandler) CreateStock(w http.ResponseWriter, r *http.Request) {
	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateStockRequest
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

	item, err := h.service.CreateItem(r.Context(), service.CreateItemInput{
		ModelName:       req.ModelName,
		SKU:             req.SKU,
		SerialNumber:    req.SerialNumber,
		Condition:       req.Condition,
		InitialQuantity: req.InitialQuantity,
		Actor:           actor(r),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: item})
}

// GetStock handles GET /api/v1/stock/{itemId}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), itemID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// ListStock handles GET /api/v1/stock. Pagination params fall back to
// defaults on invalid values, same as the movements listing.
func (h *StockHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	items, total, err := h.service.ListItems(r.Context(), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.StockItem](items, total, params.Page, params.PerPage))
}

// AdjustStock handles POST /api/v1/stock/{itemId}/adjust
func (h *StockHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AdjustStockRequest
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

	item, err := h.service.AdjustStock(r.Context(), itemID.String(), req.Delta, req.Reason, actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// ListMovements handles GET /api/v1/stock/{itemId}/movements
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	params := pagination.FromRequest(r)

	movements, total, err := h.service.ListMovements(r.Context(), itemID.String(), params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse[domain.Movement](movements, total, params.Page, params.PerPage))
}

// RetireStock handles POST /api/v1/stock/{itemId}/retire
func (h *StockHandler) RetireStock(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RetireStockRequest
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

	item, err := h.service.RetireItem(r.Context(), itemID.String(), req.Status, req.Reason, actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: item})
}

// VerifyLedger handles GET /api/v1/stock/{itemId}/verify
func (h *StockHandler) VerifyLedger(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.ParseUUID(w, chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	result, err := h.service.VerifyLedger(r.Context(), itemID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}
