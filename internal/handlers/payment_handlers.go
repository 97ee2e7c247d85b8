package handlers

import (
	"net/http"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	payments services.PaymentLedger
}

func NewPaymentHandler(payments services.PaymentLedger) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type collectGroupRequest struct {
	SaleIDs       []int64              `json:"sale_ids" binding:"required,min=1"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
}

// CollectGroup settles several pending sales at once. Sales that cannot be collected are
// listed in the response; the rest are still collected.
func (h *PaymentHandler) CollectGroup(c *gin.Context) {
	var req collectGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.payments.CollectGroup(c.Request.Context(), req.SaleIDs, req.PaymentMethod)
	if err != nil {
		respondServiceError(c, err, "collect sales")
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPendingGroups lists pending sales grouped by staff member and table.
func (h *PaymentHandler) GetPendingGroups(c *gin.Context) {
	groups, err := h.payments.PendingGroups(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "fetch pending payments")
		return
	}
	if groups == nil {
		groups = []services.PendingGroup{}
	}
	c.JSON(http.StatusOK, groups)
}
