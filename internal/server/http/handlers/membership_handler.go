package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/loyaltytiers/internal/server/http/dto"
)

// MembershipHandler serves tier status and purchase endpoints.
type MembershipHandler struct {
	facade MembershipFacade
}

// NewMembershipHandler constructs MembershipHandler.
func NewMembershipHandler(facade MembershipFacade) *MembershipHandler {
	return &MembershipHandler{facade: facade}
}

// Status handles GET /api/user/membership.
func (h *MembershipHandler) Status(c *gin.Context) {
	status, err := h.facade.MembershipStatus(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewStatusResponse(*status))
}

// RecordPurchase handles POST /api/user/membership/purchases.
// An empty body records a zero amount at the current time.
func (h *MembershipHandler) RecordPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if !bindJSON(c, &req, true) {
		return
	}

	purchase, err := h.facade.RecordPurchase(c.Request.Context(), CurrentUserID(c), req.Input())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewPurchaseResponse(*purchase))
}

// Purchases handles GET /api/user/membership/purchases.
func (h *MembershipHandler) Purchases(c *gin.Context) {
	purchases, err := h.facade.Purchases(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(purchases) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, dto.NewPurchaseResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

// Tiers handles GET /api/membership/tiers.
func (h *MembershipHandler) Tiers(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewTierResponses(h.facade.Tiers()))
}
