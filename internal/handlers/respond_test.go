package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind models.ErrorKind
		want int
	}{
		{models.ErrBadRequest, http.StatusBadRequest},
		{models.ErrPolicyViolation, http.StatusBadRequest},
		{models.ErrNotFound, http.StatusNotFound},
		{models.ErrConflict, http.StatusConflict},
		{models.ErrUnprocessable, http.StatusUnprocessableEntity},
		{models.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForKind(tt.kind))
		})
	}
}

func newErrorContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func TestRespondError(t *testing.T) {
	t.Run("AppError With Detail", func(t *testing.T) {
		c, w := newErrorContext()

		respondError(c, models.ConflictError("seats are no longer available").
			WithDetail("seat_ids", []string{"seat-a"}))

		assert.Equal(t, http.StatusConflict, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "conflict", body["error"])
		assert.Equal(t, "seats are no longer available", body["message"])
		detail, ok := body["detail"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, []interface{}{"seat-a"}, detail["seat_ids"])
	})

	t.Run("Wrapped AppError", func(t *testing.T) {
		c, w := newErrorContext()

		respondError(c, &wrappingError{inner: models.NotFoundError("route not found")})

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "route not found")
	})

	t.Run("Unhandled Error", func(t *testing.T) {
		c, w := newErrorContext()

		respondError(c, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		// Internal detail never leaks into the response body
		assert.NotContains(t, w.Body.String(), "connection refused")
		assert.Contains(t, w.Body.String(), "internal")
	})
}

type wrappingError struct {
	inner error
}

func (e *wrappingError) Error() string { return "wrapped: " + e.inner.Error() }
func (e *wrappingError) Unwrap() error { return e.inner }
