package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
)

// retryAfterSeconds is advertised when a user's record is contended.
const retryAfterSeconds = "1"

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainErrors.ErrInvalidInput),
		errors.Is(err, domainErrors.ErrInvalidOrderNumber):
		c.Status(http.StatusUnprocessableEntity)
	case errors.Is(err, domainErrors.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, domainErrors.ErrAlreadyExists):
		c.Status(http.StatusConflict)
	case errors.Is(err, domainErrors.ErrConflict):
		c.Header("Retry-After", retryAfterSeconds)
		c.Status(http.StatusServiceUnavailable)
	default:
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
	}
}
