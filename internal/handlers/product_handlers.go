package handlers

import (
	"net/http"
	"strings"

	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/services"
	"venue_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductHandler serves the catalog, stock movements, recipes and production.
type ProductHandler struct {
	ledger   services.StockLedger
	recipes  services.RecipeGraph
	producer services.Producer
}

func NewProductHandler(ledger services.StockLedger, recipes services.RecipeGraph, producer services.Producer) *ProductHandler {
	return &ProductHandler{ledger: ledger, recipes: recipes, producer: producer}
}

type quantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity decimal.Decimal         `json:"quantity"`
	Reason   models.AdjustmentReason `json:"reason" binding:"required"`
	Notes    *string                 `json:"notes"`
}

type recipeRequest struct {
	Items []services.RecipeItemRequest `json:"items" binding:"required,dive"`
}

// CreateProduct handles creation of a catalog product.
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.ledger.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err, "create product")
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GetProducts lists products, optionally filtered by category, status and a name search.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var filters models.ProductFilters
	if v := c.Query("category"); v != "" {
		category := models.ProductCategory(v)
		filters.Category = &category
	}
	if v := c.Query("status"); v != "" {
		status := models.StockStatus(v)
		filters.Status = &status
	}
	if v := strings.TrimSpace(c.Query("search")); v != "" {
		filters.Search = &v
	}

	products, err := h.ledger.ListProducts(c.Request.Context(), filters)
	if err != nil {
		respondServiceError(c, err, "fetch products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	product, err := h.ledger.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.ledger.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err, "update product")
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.DeleteProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "delete product")
		return
	}
	c.Status(http.StatusNoContent)
}

// Restock adds purchased stock to a product.
func (h *ProductHandler) Restock(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if !bindJSON(c, &req) {
		return
	}
	change, err := h.ledger.Restock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "restock product")
		return
	}
	c.JSON(http.StatusOK, change)
}

// SetQuantity overwrites a product's quantity after a count and records the adjustment.
func (h *ProductHandler) SetQuantity(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req setQuantityRequest
	if !bindJSON(c, &req) {
		return
	}
	change, err := h.ledger.SetQuantity(c.Request.Context(), id, req.Quantity, req.Reason, utils.TrimmedOrNil(req.Notes), middleware.CurrentActor(c))
	if err != nil {
		respondServiceError(c, err, "adjust product quantity")
		return
	}
	c.JSON(http.StatusOK, change)
}

func (h *ProductHandler) GetAdjustments(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	adjustments, err := h.ledger.ListAdjustments(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch stock adjustments")
		return
	}
	if adjustments == nil {
		adjustments = []models.StockAdjustment{}
	}
	c.JSON(http.StatusOK, adjustments)
}

// Produce converts ingredient stock into stock of a compound product.
func (h *ProductHandler) Produce(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.producer.Produce(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondServiceError(c, err, "produce product")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ProductHandler) GetRecipe(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.ledger.GetProduct(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "fetch recipe")
		return
	}
	items, err := h.recipes.IngredientsFor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "fetch recipe")
		return
	}
	if items == nil {
		items = []models.RecipeItem{}
	}
	c.JSON(http.StatusOK, items)
}

// SetRecipe replaces the whole ingredient list of a product.
func (h *ProductHandler) SetRecipe(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	var req recipeRequest
	if !bindJSON(c, &req) {
		return
	}
	items, err := h.recipes.SetRecipe(c.Request.Context(), id, req.Items)
	if err != nil {
		respondServiceError(c, err, "set recipe")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) ClearRecipe(c *gin.Context) {
	id, ok := utils.ParseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.recipes.ClearRecipe(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "clear recipe")
		return
	}
	c.Status(http.StatusNoContent)
}
