package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/benjhiman/stockledger/internal/domain"
)

const itemColumns = `id, model_name, sku, serial_number, condition, quantity, reserved, status, movement_seq, version, created_at, updated_at`

// scanItem scans one stock item row in itemColumns order.
func scanItem(row pgx.Row, s *domain.StockItem) error {
	return row.Scan(
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
}

// GetByID retrieves a stock item by its unique identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.StockItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM stock_items
		WHERE id = $1`

	var s domain.StockItem
	err := scanItem(r.pool.QueryRow(ctx, query, id), &s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ItemNotFoundError(id)
		}
		return nil, fmt.Errorf("get stock item by id: %w", err)
	}

	return &s, nil
}

// List returns stock items ordered by creation time, newest first.
func (r *ItemRepository) List(ctx context.Context, page, perPage int) ([]domain.StockItem, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	offset := (page - 1) * perPage

	query := `
		SELECT ` + itemColumns + `,
			   count(*) OVER() AS total_count
		FROM stock_items
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()

	var (
		items      []domain.StockItem
		totalCount int
	)

	for rows.Next() {
		var s domain.StockItem
		if err := rows.Scan(
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
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan stock item row: %w", err)
		}
		items = append(items, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate stock item rows: %w", err)
	}

	if items == nil {
		items = []domain.StockItem{}
	}

	return items, totalCount, nil
}
