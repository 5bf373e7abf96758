package domain

import (
	"time"
)

// Reservation status constants.
const (
	ReservationStatusActive    = "active"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusExpired   = "expired"
)

// DefaultReservationTTL is how long a reservation holds stock before the
// expiry sweeper releases it.
const DefaultReservationTTL = 24 * time.Hour

// Reservation represents a temporary hold on stock for a prospective sale.
type Reservation struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	CustomerRef *string   `json:"customer_ref,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsActive returns true if the reservation is still active.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsTerminal returns true if the reservation is in a final state. Terminal
// reservations never transition again.
func (r *Reservation) IsTerminal() bool {
	switch r.Status {
	case ReservationStatusConfirmed, ReservationStatusCancelled, ReservationStatusExpired:
		return true
	}
	return false
}

// IsExpired returns true if the reservation has passed its expiration time.
// An active reservation past its ExpiresAt is treated as expired even before
// the sweeper has flipped its status.
func (r *Reservation) IsExpired() bool {
	if r.Status == ReservationStatusExpired {
		return true
	}
	return r.Status == ReservationStatusActive && time.Now().UTC().After(r.ExpiresAt)
}

// ValidReservationStatuses returns the set of valid reservation statuses.
func ValidReservationStatuses() []string {
	return []string{
		ReservationStatusActive, ReservationStatusConfirmed,
		ReservationStatusCancelled, ReservationStatusExpired,
	}
}

// IsValidReservationStatus checks whether the given status is a valid reservation status.
func IsValidReservationStatus(status string) bool {
	for _, s := range ValidReservationStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
