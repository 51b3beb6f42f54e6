package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/loyaltytiers/internal/domain/errors"
	"github.com/polkiloo/loyaltytiers/internal/server/http/dto"
	"github.com/polkiloo/loyaltytiers/internal/server/http/middleware"
)

// AuthHandler registers accounts and logs them in. Both endpoints enroll the
// account into the tier program, so contention on the membership record
// surfaces here the same way it does on the membership endpoints.
type AuthHandler struct {
	facade AuthFacade
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade) *AuthHandler {
	return &AuthHandler{facade: facade}
}

// Register handles POST /api/user/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.AuthRequest
	if !bindJSON(c, &req, false) {
		return
	}

	token, err := h.facade.Register(c.Request.Context(), req.Login, req.Password)
	if errors.Is(err, domainErrors.ErrInvalidCredentials) {
		c.Status(http.StatusBadRequest)
		return
	}
	h.issue(c, token, err)
}

// Login handles POST /api/user/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AuthRequest
	if !bindJSON(c, &req, false) {
		return
	}

	token, err := h.facade.Authenticate(c.Request.Context(), req.Login, req.Password)
	if errors.Is(err, domainErrors.ErrInvalidCredentials) {
		c.Status(http.StatusUnauthorized)
		return
	}
	h.issue(c, token, err)
}

func (h *AuthHandler) issue(c *gin.Context, token string, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	middleware.SetAuthCookie(c, token)
	c.Status(http.StatusOK)
}
