package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// MovementReason labels an unaudited quantity change in the logs.
type MovementReason string

const (
	ReasonSale       MovementReason = "sale"
	ReasonRestock    MovementReason = "restock"
	ReasonProduction MovementReason = "production"
)

type CreateProductRequest struct {
	Name            string                 `json:"name" binding:"required"`
	Category        models.ProductCategory `json:"category" binding:"required"`
	Price           decimal.Decimal        `json:"price"`
	Quantity        decimal.Decimal        `json:"quantity"`
	MinStock        decimal.Decimal        `json:"min_stock"`
	IsCompound      bool                   `json:"is_compound"`
	RequiresKitchen bool                   `json:"requires_kitchen"`
	UnitBase        string                 `json:"unit_base"`
	CostPerUnit     *decimal.Decimal       `json:"cost_per_unit"`
}

// UpdateProductRequest changes catalog fields only. Quantity moves through the stock operations.
type UpdateProductRequest struct {
	Name            *string                 `json:"name"`
	Category        *models.ProductCategory `json:"category"`
	Price           *decimal.Decimal        `json:"price"`
	MinStock        *decimal.Decimal        `json:"min_stock"`
	RequiresKitchen *bool                   `json:"requires_kitchen"`
	UnitBase        *string                 `json:"unit_base"`
	CostPerUnit     *decimal.Decimal        `json:"cost_per_unit"`
}

// StockLedger owns product records and keeps quantity and status consistent.
type StockLedger interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	AdjustQuantity(ctx context.Context, productID int64, delta decimal.Decimal, reason MovementReason) (*models.StockChange, error)
	SetQuantity(ctx context.Context, productID int64, quantity decimal.Decimal, reason models.AdjustmentReason, notes *string, actor models.Actor) (*models.StockChange, error)
	Restock(ctx context.Context, productID int64, quantity decimal.Decimal) (*models.StockChange, error)
	ListAdjustments(ctx context.Context, productID int64) ([]models.StockAdjustment, error)
}

type stockLedger struct {
	productRepo repositories.ProductRepository
}

func NewStockLedger(productRepo repositories.ProductRepository) StockLedger {
	return &stockLedger{productRepo: productRepo}
}

func (s *stockLedger) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationf("product name is required")
	}
	if !req.Category.IsValid() {
		return nil, validationf("unknown category '%s'", req.Category)
	}
	if req.IsCompound && !req.Category.CompoundCapable() {
		return nil, validationf("category '%s' cannot be compound", req.Category)
	}
	if req.Price.Sign() < 0 || req.Quantity.Sign() < 0 || req.MinStock.Sign() < 0 {
		return nil, validationf("price, quantity and min_stock must not be negative")
	}
	if err := errors.Join(
		checkMoney("price", req.Price),
		checkQuantity("quantity", req.Quantity),
		checkQuantity("min_stock", req.MinStock),
	); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:            name,
		Category:        req.Category,
		Price:           req.Price,
		Quantity:        req.Quantity,
		MinStock:        req.MinStock,
		IsCompound:      req.IsCompound,
		RequiresKitchen: req.RequiresKitchen,
		UnitBase:        strings.TrimSpace(req.UnitBase),
	}
	if product.UnitBase == "" {
		product.UnitBase = "unit"
	}
	if req.CostPerUnit != nil {
		if err := checkPlaces("cost_per_unit", *req.CostPerUnit, models.CostPlaces); err != nil {
			return nil, err
		}
		product.CostPerUnit = decimal.NewNullDecimal(*req.CostPerUnit)
	}

	if _, err := s.productRepo.CreateProduct(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: '%s'", ErrProductNameExists, name)
		}
		return nil, fmt.Errorf("creating product: %w", err)
	}
	log.Info().Int64("product_id", product.ID).Str("name", product.Name).Str("category", string(product.Category)).Msg("Product created")
	return product, nil
}

func (s *stockLedger) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	return p, nil
}

func (s *stockLedger) ListProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	if filters.Category != nil && !filters.Category.IsValid() {
		return nil, validationf("unknown category '%s'", *filters.Category)
	}
	return s.productRepo.GetProducts(ctx, filters)
}

func (s *stockLedger) UpdateProduct(ctx context.Context, id int64, req UpdateProductRequest) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, validationf("product name cannot be empty")
		}
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		if !req.Category.IsValid() {
			return nil, validationf("unknown category '%s'", *req.Category)
		}
		product.Category = *req.Category
	}
	if product.IsCompound && !product.Category.CompoundCapable() {
		return nil, validationf("compound product cannot move to category '%s'", product.Category)
	}
	if req.Price != nil {
		if req.Price.Sign() < 0 {
			return nil, validationf("price must not be negative")
		}
		if err := checkMoney("price", *req.Price); err != nil {
			return nil, err
		}
		product.Price = *req.Price
	}
	if req.MinStock != nil {
		if req.MinStock.Sign() < 0 {
			return nil, validationf("min_stock must not be negative")
		}
		if err := checkQuantity("min_stock", *req.MinStock); err != nil {
			return nil, err
		}
		product.MinStock = *req.MinStock
	}
	if req.RequiresKitchen != nil {
		product.RequiresKitchen = *req.RequiresKitchen
	}
	if req.UnitBase != nil && strings.TrimSpace(*req.UnitBase) != "" {
		product.UnitBase = strings.TrimSpace(*req.UnitBase)
	}
	if req.CostPerUnit != nil {
		if err := checkPlaces("cost_per_unit", *req.CostPerUnit, models.CostPlaces); err != nil {
			return nil, err
		}
		product.CostPerUnit = decimal.NewNullDecimal(*req.CostPerUnit)
	}

	if err := s.productRepo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: '%s'", ErrProductNameExists, product.Name)
		}
		return nil, notFoundOr(err, "product", id)
	}
	return product, nil
}

func (s *stockLedger) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.productRepo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return fmt.Errorf("%w: product %d", ErrProductInUse, id)
		}
		return notFoundOr(err, "product", id)
	}
	log.Info().Int64("product_id", id).Msg("Product deleted")
	return nil
}

// AdjustQuantity is the unaudited path used by sales, restock and production.
// Any result below zero is floored at zero and logged as an anomaly.
func (s *stockLedger) AdjustQuantity(ctx context.Context, productID int64, delta decimal.Decimal, reason MovementReason) (*models.StockChange, error) {
	if delta.IsZero() {
		return nil, validationf("quantity delta must not be zero")
	}
	change, err := s.productRepo.AdjustQuantity(ctx, productID, delta)
	if err != nil {
		return nil, notFoundOr(err, "product", productID)
	}
	if change.Clamped {
		log.Warn().
			Int64("product_id", productID).
			Str("reason", string(reason)).
			Str("previous_quantity", change.PreviousQuantity.String()).
			Str("delta", delta.String()).
			Msg("Stock deduction exceeded quantity on hand, clamped at zero")
	}
	log.Debug().
		Int64("product_id", productID).
		Str("reason", string(reason)).
		Str("new_quantity", change.NewQuantity.String()).
		Str("status", string(change.NewStatus)).
		Msg("Stock adjusted")
	return change, nil
}

func (s *stockLedger) SetQuantity(ctx context.Context, productID int64, quantity decimal.Decimal, reason models.AdjustmentReason, notes *string, actor models.Actor) (*models.StockChange, error) {
	if !reason.IsValid() {
		return nil, validationf("unknown adjustment reason '%s'", reason)
	}
	if quantity.Sign() < 0 {
		return nil, validationf("quantity must not be negative")
	}
	if err := checkQuantity("quantity", quantity); err != nil {
		return nil, err
	}

	adj := &models.StockAdjustment{Reason: reason, Notes: notes}
	if actor.UserID != 0 {
		staffID := actor.UserID
		adj.StaffID = &staffID
	}
	change, err := s.productRepo.SetQuantity(ctx, productID, quantity, adj)
	if err != nil {
		return nil, notFoundOr(err, "product", productID)
	}
	log.Info().
		Int64("product_id", productID).
		Str("reason", string(reason)).
		Str("previous_quantity", change.PreviousQuantity.String()).
		Str("new_quantity", change.NewQuantity.String()).
		Int64("staff_id", actor.UserID).
		Msg("Stock quantity set manually")
	return change, nil
}

func (s *stockLedger) Restock(ctx context.Context, productID int64, quantity decimal.Decimal) (*models.StockChange, error) {
	if quantity.Sign() <= 0 {
		return nil, validationf("restock quantity must be positive")
	}
	if err := checkQuantity("restock quantity", quantity); err != nil {
		return nil, err
	}
	return s.AdjustQuantity(ctx, productID, quantity, ReasonRestock)
}

func (s *stockLedger) ListAdjustments(ctx context.Context, productID int64) ([]models.StockAdjustment, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.productRepo.GetAdjustments(ctx, productID)
}
