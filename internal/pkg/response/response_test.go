package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotelrides/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.NewValidationError("base_price", "must be non-negative"), http.StatusBadRequest},
		{fmt.Errorf("load: %w", domain.ErrNotFound), http.StatusNotFound},
		{&domain.StateConflictError{Current: domain.StatusCompleted, Requested: domain.StatusCancelled}, http.StatusConflict},
		{domain.ErrQuoteExpired, http.StatusGone},
		{domain.ErrSignatureVerification, http.StatusUnauthorized},
		{domain.ErrLockTimeout, http.StatusServiceUnavailable},
		{domain.ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := Classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestFromError_StateConflictDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, &domain.StateConflictError{Current: domain.StatusCompleted, Requested: domain.StatusCancelled})

	require.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INVALID_STATUS", body.Error.Code)
	assert.Equal(t, "completed", body.Error.Details["current_status"])
}
