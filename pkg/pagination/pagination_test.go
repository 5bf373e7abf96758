package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, OrderAsc, p.Order)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/movements", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, OrderAsc, p.Order)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/movements?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
	assert.Equal(t, 100, p.Offset) // (3-1) * 50
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "negative page", query: "page=-1"},
		{name: "zero page", query: "page=0"},
		{name: "non-numeric page", query: "page=abc"},
		{name: "per_page over cap", query: "per_page=200"},
		{name: "zero per_page", query: "per_page=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/movements?"+tt.query, nil)
			p := FromRequest(req)
			assert.Equal(t, 1, p.Page)
			assert.Equal(t, 20, p.PerPage)
		})
	}
}

func TestFromRequest_PerPageExactly100(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/movements?per_page=100", nil)
	p := FromRequest(req)
	assert.Equal(t, 100, p.PerPage)
}

func TestFromRequest_Order(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/movements?order=desc", nil)
	assert.Equal(t, OrderDesc, FromRequest(req).Order)

	req = httptest.NewRequest(http.MethodGet, "/movements?order=sideways", nil)
	assert.Equal(t, OrderAsc, FromRequest(req).Order)
}

func TestSQLDirection(t *testing.T) {
	assert.Equal(t, "ASC", Params{Order: OrderAsc}.SQLDirection())
	assert.Equal(t, "DESC", Params{Order: OrderDesc}.SQLDirection())
	assert.Equal(t, "ASC", Params{}.SQLDirection())
}

func TestNewResult(t *testing.T) {
	data := []string{"a", "b", "c"}
	result := NewResult(data, 45, Params{Page: 2, PerPage: 10})

	assert.Equal(t, 45, result.TotalCount)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.PerPage)
	assert.Equal(t, 5, result.TotalPages)
	assert.True(t, result.HasNext)
	assert.True(t, result.HasPrev)
}

func TestNewResult_LastPage(t *testing.T) {
	result := NewResult([]int{1}, 21, Params{Page: 3, PerPage: 10})

	assert.Equal(t, 3, result.TotalPages)
	assert.False(t, result.HasNext)
	assert.True(t, result.HasPrev)
}
