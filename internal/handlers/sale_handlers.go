package handlers

import (
	"net/http"

	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"
	"venue_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SaleHandler serves sale submission, lookups and single-sale collection.
type SaleHandler struct {
	processor services.SaleProcessor
	checker   services.AvailabilityChecker
	payments  services.PaymentLedger
}

func NewSaleHandler(processor services.SaleProcessor, checker services.AvailabilityChecker, payments services.PaymentLedger) *SaleHandler {
	return &SaleHandler{processor: processor, checker: checker, payments: payments}
}

type checkOrderRequest struct {
	Items []services.OrderLine `json:"items" binding:"required,min=1,dive"`
}

type collectRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
}

// CheckAvailability answers whether current stock covers a cart without committing anything.
func (h *SaleHandler) CheckAvailability(c *gin.Context) {
	var req checkOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.checker.CheckOrder(c.Request.Context(), req.Items); err != nil {
		respondServiceError(c, err, "check availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true})
}

// SubmitSale commits a sale and reports the downstream stock and fulfillment outcome.
func (h *SaleHandler) SubmitSale(c *gin.Context) {
	var req services.SubmitSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.processor.Submit(c.Request.Context(), req, middleware.CurrentActor(c))
	if err != nil {
		respondServiceError(c, err, "submit sale")
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetSales lists sales with pagination.
func (h *SaleHandler) GetSales(c *gin.Context) {
	var filters models.SaleFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		utils.RespondValidationFailed(c, err.Error())
		return
	}
	sales, total, err := h.processor.ListSales(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "fetch sales")
		return
	}
	if sales == nil {
		sales = []models.Sale{}
	}
	page, pageSize := filters.Page, filters.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	c.JSON(http.StatusOK, gin.H{"data": sales, "total": total, "page": page, "page_size": pageSize})
}

func (h *SaleHandler) GetSale(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	sale, err := h.processor.GetSale(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch sale")
		return
	}
	c.JSON(http.StatusOK, sale)
}

// CollectSale marks one pending sale as paid.
func (h *SaleHandler) CollectSale(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req collectRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.payments.Collect(c.Request.Context(), id, req.PaymentMethod)
	if err != nil {
		respondServiceError(c, err, "collect sale")
		return
	}
	c.JSON(http.StatusOK, sale)
}
