package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/benjhiman/stockledger/internal/domain"
)

const reservationColumns = `id, item_id, quantity, status, customer_ref, notes, expires_at, created_at, updated_at`

// GetByID retrieves a reservation by its unique identifier.
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE id = $1`

	var res domain.Reservation
	err := r.pool.QueryRow(ctx, query, id).Scan(
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
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ReservationNotFoundError(id)
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}

	return &res, nil
}

// ListByItem returns all reservations for a stock item, newest first.
func (r *ReservationRepository) ListByItem(ctx context.Context, itemID string) ([]domain.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE item_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("list reservations by item: %w", err)
	}
	defer rows.Close()

	reservations, err := scanReservations(rows)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

// ListExpired returns active reservations that have passed their expiration
// time, oldest first, up to limit.
func (r *ReservationRepository) ListExpired(ctx context.Context, limit int) ([]domain.Reservation, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + reservationColumns + `
		FROM stock_reservations
		WHERE status = 'active' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := scanReservations(rows)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func scanReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.ItemID,
			&res.Quantity,
			&res.Status,
			&res.CustomerRef,
			&res.Notes,
			&res.ExpiresAt,
			&res.CreatedAt,
			&res.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservation rows: %w", err)
	}

	if reservations == nil {
		reservations = []domain.Reservation{}
	}

	return reservations, nil
}
