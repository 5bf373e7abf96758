package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/internal/service"
	"github.com/benjhiman/stockledger/pkg/httputil"
	"github.com/benjhiman/stockledger/pkg/validator"
)

// PurchaseHandler handles HTTP requests for purchase application endpoints.
type PurchaseHandler struct {
	service *service.PurchaseService
	logger  *slog.Logger
}

// NewPurchaseHandler creates a new purchase HTTP handler.
func NewPurchaseHandler(svc *service.PurchaseService, logger *slog.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		service: svc,
		logger:  logger,
	}
}

// PurchaseLineRequest is one line of a purchase application request.
type PurchaseLineRequest struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// ApplyPurchaseRequest is the JSON request body for applying a purchase.
type ApplyPurchaseRequest struct {
	Lines []PurchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ApplyPurchase handles POST /api/v1/purchases/{purchaseId}/apply
func (h *PurchaseHandler) ApplyPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "purchaseId")
	if purchaseID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "purchaseId is required"},
		})
		return
	}

	// Limit request body to 1MB to prevent DoS via large payloads.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ApplyPurchaseRequest
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

	lines := make([]domain.PurchaseLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = domain.PurchaseLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}

	app, err := h.service.ApplyPurchase(r.Context(), purchaseID, lines, actor(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: app})
}

// GetPurchase handles GET /api/v1/purchases/{purchaseId}
func (h *PurchaseHandler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	purchaseID := chi.URLParam(r, "purchaseId")
	if purchaseID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "purchaseId is required"},
		})
		return
	}

	app, err := h.service.GetApplication(r.Context(), purchaseID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: app})
}
