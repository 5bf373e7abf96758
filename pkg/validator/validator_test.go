package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reservationRequest struct {
	ItemID   string `validate:"required,uuid"`
	Quantity int    `validate:"required,gte=1"`
	Notes    string `validate:"omitempty,max=10"`
	Status   string `validate:"omitempty,oneof=active confirmed cancelled expired"`
}

func TestValidate_Success(t *testing.T) {
	s := reservationRequest{
		ItemID:   "550e8400-e29b-41d4-a716-446655440001",
		Quantity: 3,
		Status:   "active",
	}
	assert.NoError(t, Validate(s))
}

func TestValidate_MissingRequired(t *testing.T) {
	s := reservationRequest{Quantity: 1}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "ItemID")
	assert.Equal(t, "is required", fields["ItemID"])
}

func TestValidate_InvalidUUID(t *testing.T) {
	s := reservationRequest{ItemID: "not-a-uuid", Quantity: 1}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be a valid UUID", valErr.Fields()["ItemID"])
}

func TestValidate_OneOf(t *testing.T) {
	s := reservationRequest{
		ItemID:   "550e8400-e29b-41d4-a716-446655440001",
		Quantity: 1,
		Status:   "pending",
	}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Status"], "must be one of")
}

func TestValidate_MaxLength(t *testing.T) {
	s := reservationRequest{
		ItemID:   "550e8400-e29b-41d4-a716-446655440001",
		Quantity: 1,
		Notes:    "this note is far too long",
	}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Notes"], "at most 10")
}

func TestValidationError_ErrorMessage(t *testing.T) {
	err := Validate(reservationRequest{})
	require.Error(t, err)

	// The message names every failing field.
	assert.Contains(t, err.Error(), "ItemID")
	assert.Contains(t, err.Error(), "Quantity")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := bytes.NewBufferString(`{"ItemID":"550e8400-e29b-41d4-a716-446655440001","Quantity":2}`)
	req := httptest.NewRequest(http.MethodPost, "/reservations", body)

	var dst reservationRequest
	assert.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, 2, dst.Quantity)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	body := bytes.NewBufferString(`{broken`)
	req := httptest.NewRequest(http.MethodPost, "/reservations", body)

	var dst reservationRequest
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_FailsValidation(t *testing.T) {
	body := bytes.NewBufferString(`{"Quantity":0}`)
	req := httptest.NewRequest(http.MethodPost, "/reservations", body)

	var dst reservationRequest
	err := DecodeAndValidate(req, &dst)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
}
