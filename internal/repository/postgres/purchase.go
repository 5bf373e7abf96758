package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/benjhiman/stockledger/internal/domain"
	apperrors "github.com/benjhiman/stockledger/pkg/errors"
)

// GetByID retrieves a purchase application record by purchase ID.
func (r *PurchaseRepository) GetByID(ctx context.Context, purchaseID string) (*domain.PurchaseApplication, error) {
	query := `
		SELECT purchase_id, movement_ids, applied_at
		FROM purchase_applications
		WHERE purchase_id = $1`

	var app domain.PurchaseApplication
	err := r.pool.QueryRow(ctx, query, purchaseID).Scan(
		&app.PurchaseID,
		&app.MovementIDs,
		&app.AppliedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &apperrors.AppError{
				Code:    "PURCHASE_NOT_FOUND",
				Message: fmt.Sprintf("purchase %s has not been applied to stock", purchaseID),
				Status:  http.StatusNotFound,
				Err:     apperrors.ErrNotFound,
			}
		}
		return nil, fmt.Errorf("get purchase application by id: %w", err)
	}

	return &app, nil
}
