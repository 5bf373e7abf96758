package postgres

import (
	"context"
	"fmt"

	"github.com/benjhiman/stockledger/internal/domain"
	"github.com/benjhiman/stockledger/pkg/pagination"
)

const movementColumns = `id, item_id, seq, type, quantity, quantity_before, quantity_after, reason, actor, created_at`

// ListByItem returns a page of movements for an item in seq order. The sort
// direction comes from the pagination params.
func (r *MovementRepository) ListByItem(ctx context.Context, itemID string, params pagination.Params) ([]domain.Movement, int, error) {
	// SQLDirection only ever yields ASC or DESC.
	query := `
		SELECT ` + movementColumns + `,
			   count(*) OVER() AS total_count
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY seq ` + params.SQLDirection() + `
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, itemID, params.PerPage, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var (
		movements  []domain.Movement
		totalCount int
	)

	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(
			&m.ID,
			&m.ItemID,
			&m.Seq,
			&m.Type,
			&m.Quantity,
			&m.QuantityBefore,
			&m.QuantityAfter,
			&m.Reason,
			&m.Actor,
			&m.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan movement row: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movement rows: %w", err)
	}

	if movements == nil {
		movements = []domain.Movement{}
	}

	return movements, totalCount, nil
}

// ListChain returns the complete movement chain for an item in ascending seq
// order, for replay and consistency verification.
func (r *MovementRepository) ListChain(ctx context.Context, itemID string) ([]domain.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM stock_movements
		WHERE item_id = $1
		ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list movement chain: %w", err)
	}
	defer rows.Close()

	var movements []domain.Movement
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(
			&m.ID,
			&m.ItemID,
			&m.Seq,
			&m.Type,
			&m.Quantity,
			&m.QuantityBefore,
			&m.QuantityAfter,
			&m.Reason,
			&m.Actor,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan movement chain row: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movement chain rows: %w", err)
	}

	if movements == nil {
		movements = []domain.Movement{}
	}

	return movements, nil
}
