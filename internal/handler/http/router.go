package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benjhiman/stockledger/internal/service"
	"github.com/benjhiman/stockledger/pkg/health"
	"github.com/benjhiman/stockledger/pkg/middleware"
)

// NewRouter creates a chi router with all stock ledger routes registered.
func NewRouter(
	ledgerService *service.LedgerService,
	reservationService *service.ReservationService,
	purchaseService *service.PurchaseService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("stockledger"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	stockHandler := NewStockHandler(ledgerService, logger)
	reservationHandler := NewReservationHandler(reservationService, logger)
	purchaseHandler := NewPurchaseHandler(purchaseService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/stock", func(r chi.Router) {
			r.Post("/", stockHandler.CreateStock)
			r.Get("/", stockHandler.ListStock)

			r.Get("/{itemId}", stockHandler.GetStock)
			r.Post("/{itemId}/adjust", stockHandler.AdjustStock)
			r.Get("/{itemId}/movements", stockHandler.ListMovements)
			r.Post("/{itemId}/retire", stockHandler.RetireStock)
			r.Get("/{itemId}/verify", stockHandler.VerifyLedger)
			r.Get("/{itemId}/reservations", reservationHandler.ListItemReservations)
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", reservationHandler.CreateReservation)
			r.Get("/{reservationId}", reservationHandler.GetReservation)
			r.Post("/{reservationId}/confirm", reservationHandler.ConfirmReservation)
			r.Post("/{reservationId}/cancel", reservationHandler.CancelReservation)
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Post("/{purchaseId}/apply", purchaseHandler.ApplyPurchase)
			r.Get("/{purchaseId}", purchaseHandler.GetPurchase)
		})
	})

	return r
}
