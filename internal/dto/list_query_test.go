package dto

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crmgateway/internal/errors"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q, err := ParseListQuery(httptest.NewRequest("GET", "/v1/orders", nil))
	require.NoError(t, err)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 30, q.PerPage)
	assert.Empty(t, q.Filter)
}

func TestParseListQuery_Values(t *testing.T) {
	q, err := ParseListQuery(httptest.NewRequest("GET", "/v1/orders?page=3&perPage=50&filter=status%3D%27shipped%27&sort=-created", nil))
	require.NoError(t, err)

	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 50, q.PerPage)
	assert.Equal(t, "status='shipped'", q.Filter)
	assert.Equal(t, "-created", q.Sort)
}

func TestParseListQuery_Invalid(t *testing.T) {
	_, err := ParseListQuery(httptest.NewRequest("GET", "/v1/orders?page=0&perPage=abc", nil))

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Details, 2)
}
