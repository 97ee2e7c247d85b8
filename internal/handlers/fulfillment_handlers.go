package handlers

import (
	"net/http"
	"strings"

	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"
	"venue_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// FulfillmentHandler serves the kitchen and bar queues.
type FulfillmentHandler struct {
	queue services.FulfillmentQueue
}

func NewFulfillmentHandler(queue services.FulfillmentQueue) *FulfillmentHandler {
	return &FulfillmentHandler{queue: queue}
}

// GetFulfillmentOrders lists orders. status accepts a comma separated list.
// Kitchen and bar staff only see their own department unless they ask for it explicitly.
func (h *FulfillmentHandler) GetFulfillmentOrders(c *gin.Context) {
	var filters models.FulfillmentFilters
	if v := c.Query("department"); v != "" {
		dept := models.Department(v)
		filters.Department = &dept
	} else {
		switch middleware.CurrentActor(c).Role {
		case models.RoleKitchen:
			dept := models.DepartmentKitchen
			filters.Department = &dept
		case models.RoleBartender:
			dept := models.DepartmentBar
			filters.Department = &dept
		}
	}
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filters.Statuses = append(filters.Statuses, models.FulfillmentStatus(s))
			}
		}
	}
	if v := c.Query("sale_id"); v != "" {
		saleID, err := utils.StrToInt64(v)
		if err != nil {
			utils.RespondValidationFailed(c, "sale_id must be an integer")
			return
		}
		filters.SaleID = &saleID
	}

	orders, err := h.queue.List(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "fetch fulfillment orders")
		return
	}
	if orders == nil {
		orders = []models.FulfillmentOrder{}
	}
	c.JSON(http.StatusOK, orders)
}

func (h *FulfillmentHandler) GetFulfillmentOrder(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := h.queue.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch fulfillment order")
		return
	}
	c.JSON(http.StatusOK, order)
}

type transitionFunc func(*gin.Context, int64, models.Actor) (*models.FulfillmentOrder, error)

func (h *FulfillmentHandler) transition(c *gin.Context, action string, fn transitionFunc) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	order, err := fn(c, id, middleware.CurrentActor(c))
	if err != nil {
		respondServiceError(c, err, action)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *FulfillmentHandler) StartPreparing(c *gin.Context) {
	h.transition(c, "start fulfillment order", func(c *gin.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error) {
		return h.queue.StartPreparing(c.Request.Context(), id, actor)
	})
}

func (h *FulfillmentHandler) MarkReady(c *gin.Context) {
	h.transition(c, "mark fulfillment order ready", func(c *gin.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error) {
		return h.queue.MarkReady(c.Request.Context(), id, actor)
	})
}

func (h *FulfillmentHandler) MarkDelivered(c *gin.Context) {
	h.transition(c, "mark fulfillment order delivered", func(c *gin.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error) {
		return h.queue.MarkDelivered(c.Request.Context(), id, actor)
	})
}

// CancelFulfillmentOrder removes an undelivered order. Deducted stock is not returned.
func (h *FulfillmentHandler) CancelFulfillmentOrder(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.queue.Cancel(c.Request.Context(), id, middleware.CurrentActor(c)); err != nil {
		respondServiceError(c, err, "cancel fulfillment order")
		return
	}
	c.Status(http.StatusNoContent)
}
