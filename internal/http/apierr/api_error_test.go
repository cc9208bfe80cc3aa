package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MatheusCampagnolo/kargo/internal/apperr"
	"github.com/MatheusCampagnolo/kargo/internal/http/apierr"
	"github.com/MatheusCampagnolo/kargo/pkg/validator"
	"github.com/MatheusCampagnolo/kargo/pkg/zerror"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "product not found",
			err:            fmt.Errorf("db with tx: %w", apperr.ProductNotFound(7)),
			expectedStatus: http.StatusNotFound,
			expectedCode:   apperr.ProductNotFoundCode,
			expectedMsg:    "product not found with id: 7",
		},
		{
			name:           "duplicate sku",
			err:            apperr.DuplicateSku("A1").WrapParent(errors.New("unique violation")),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperr.DuplicateSkuCode,
			expectedMsg:    "product with sku A1 already exists",
		},
		{
			name:           "invalid stock adjustment",
			err:            apperr.InvalidStockAdjustmentErr,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperr.InvalidStockAdjustmentCode,
			expectedMsg:    "insufficient stock, cannot reduce quantity below 0",
		},
		{
			name:           "validation failed",
			err:            apperr.ValidationErr.WithMsg("malformed request body"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   apperr.ValidationErrorCode,
			expectedMsg:    "malformed request body",
		},
		{
			name:           "unavailable",
			err:            zerror.NewZError(nil, zerror.StatusServiceUnavailable, "DB_DOWN", "database unavailable"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "DB_DOWN",
			expectedMsg:    "database unavailable",
		},
		{
			name:           "unknown",
			err:            errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   apierr.InternalServerErrorCode,
			expectedMsg:    "an unexpected error occurred",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := apierr.New(tc.err)

			assert.Equal(t, tc.expectedStatus, res.StatusCode)
			assert.Equal(t, tc.expectedStatus, res.Status)
			assert.Equal(t, tc.expectedCode, res.Code)
			assert.Equal(t, tc.expectedMsg, res.Message)
			assert.False(t, res.Timestamp.IsZero())
		})
	}
}

func TestNew_ValidationErrors(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	type request struct {
		Sku      string `json:"sku" validate:"notblank"`
		Name     string `json:"name" validate:"notblank"`
		Quantity *int   `json:"quantity" validate:"omitempty,gte=0"`
	}
	negative := -3

	res := apierr.New(fmt.Errorf("validate: %w", v.Validate(request{Name: " ", Quantity: &negative})))

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, apperr.ValidationErrorCode, res.Code)
	assert.Equal(t, "sku: must not be blank, name: must not be blank, quantity: must be greater than or equal to 0", res.Message)
}
