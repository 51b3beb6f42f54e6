package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/loyaltytiers/internal/server/http/middleware"
)

// CurrentUserID returns the member id set by the auth middleware, or 0.
func CurrentUserID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

// bindJSON decodes the request body into dst and answers 400 when it is
// malformed. With allowEmpty an absent body leaves dst zeroed.
func bindJSON(c *gin.Context, dst any, allowEmpty bool) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	c.Status(http.StatusBadRequest)
	return false
}
