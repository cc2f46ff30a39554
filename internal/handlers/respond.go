package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// respondError maps engine failures to HTTP responses. AppError kinds
// carry the status; anything else is a 500 with the detail kept out of
// the response body.
func respondError(c *gin.Context, err error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		body := gin.H{
			"error":   string(appErr.Kind),
			"message": appErr.Message,
		}
		if appErr.Detail != nil {
			body["detail"] = appErr.Detail
		}
		c.JSON(statusForKind(appErr.Kind), body)
		return
	}

	logrus.WithFields(logrus.Fields{
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal",
		"message": "Something went wrong",
	})
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.ErrBadRequest, models.ErrPolicyViolation:
		return http.StatusBadRequest
	case models.ErrNotFound:
		return http.StatusNotFound
	case models.ErrConflict:
		return http.StatusConflict
	case models.ErrUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
