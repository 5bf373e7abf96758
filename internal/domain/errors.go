package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/benjhiman/stockledger/pkg/errors"
)

// Sentinel errors for the stock ledger. Services and repositories wrap these
// in AppError values via the constructors below; callers match with errors.Is.
var (
	ErrItemNotFound             = errors.New("stock item not found")
	ErrReservationNotFound      = errors.New("reservation not found")
	ErrInvalidDelta             = errors.New("invalid movement delta")
	ErrInvalidAdjustment        = errors.New("invalid adjustment")
	ErrInsufficientAvailability = errors.New("insufficient availability")
	ErrItemRetired              = errors.New("stock item retired")
	ErrReservationNotActive     = errors.New("reservation not active")
	ErrReservationExpired       = errors.New("reservation expired")
	ErrAlreadyApplied           = errors.New("purchase already applied")
	ErrConcurrentModification   = errors.New("concurrent modification")
)

// ItemNotFoundError creates a 404 error for a missing stock item.
func ItemNotFoundError(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "ITEM_NOT_FOUND",
		Message: fmt.Sprintf("stock item with id %s not found", id),
		Status:  http.StatusNotFound,
		Err:     ErrItemNotFound,
	}
}

// ReservationNotFoundError creates a 404 error for a missing reservation.
func ReservationNotFoundError(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "RESERVATION_NOT_FOUND",
		Message: fmt.Sprintf("reservation with id %s not found", id),
		Status:  http.StatusNotFound,
		Err:     ErrReservationNotFound,
	}
}

// InvalidDeltaError creates a 422 error for a rejected movement delta.
func InvalidDeltaError(message string) *apperrors.AppError {
	return apperrors.Unprocessable("INVALID_DELTA", message, ErrInvalidDelta)
}

// InvalidAdjustmentError creates a 422 error for a rejected adjustment.
func InvalidAdjustmentError(message string) *apperrors.AppError {
	return apperrors.Unprocessable("INVALID_ADJUSTMENT", message, ErrInvalidAdjustment)
}

// InsufficientAvailabilityError creates a 409 error naming the available and
// requested quantities.
func InsufficientAvailabilityError(available, requested int) *apperrors.AppError {
	return apperrors.Conflict(
		"INSUFFICIENT_AVAILABILITY",
		fmt.Sprintf("only %d units available, %d requested", available, requested),
		ErrInsufficientAvailability,
	)
}

// ItemRetiredError creates a 409 error for operations on a retired item.
func ItemRetiredError(id, status string) *apperrors.AppError {
	return apperrors.Conflict(
		"ITEM_RETIRED",
		fmt.Sprintf("stock item %s is retired (%s)", id, status),
		ErrItemRetired,
	)
}

// ReservationNotActiveError creates a 409 error for a transition attempted on
// a terminal reservation.
func ReservationNotActiveError(id, status string) *apperrors.AppError {
	return apperrors.Conflict(
		"RESERVATION_NOT_ACTIVE",
		fmt.Sprintf("reservation %s is %s, not active", id, status),
		ErrReservationNotActive,
	)
}

// ReservationExpiredError creates a 409 error for a confirm attempted on an
// expired reservation.
func ReservationExpiredError(id string) *apperrors.AppError {
	return apperrors.Conflict(
		"RESERVATION_EXPIRED",
		fmt.Sprintf("reservation %s has expired", id),
		ErrReservationExpired,
	)
}

// AlreadyAppliedError creates a 409 error for a purchase that was already
// applied to stock.
func AlreadyAppliedError(purchaseID string) *apperrors.AppError {
	return apperrors.Conflict(
		"ALREADY_APPLIED",
		fmt.Sprintf("purchase %s has already been applied to stock", purchaseID),
		ErrAlreadyApplied,
	)
}

// ConcurrentModificationError creates a 409 error for an optimistic
// concurrency conflict. Callers may retry the operation.
func ConcurrentModificationError(itemID string) *apperrors.AppError {
	return apperrors.Conflict(
		"CONCURRENT_MODIFICATION",
		fmt.Sprintf("stock item %s was modified concurrently, retry the operation", itemID),
		ErrConcurrentModification,
	)
}
