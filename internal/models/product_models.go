package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductCategory classifies a catalog item.
// drink, supply and other hold stock directly; cocktail, food and semi_elaborated may be produced from a recipe.
type ProductCategory string

const (
	CategoryDrink          ProductCategory = "drink"
	CategorySupply         ProductCategory = "supply"
	CategoryOther          ProductCategory = "other"
	CategoryCocktail       ProductCategory = "cocktail"
	CategoryFood           ProductCategory = "food"
	CategorySemiElaborated ProductCategory = "semi_elaborated"
)

// IsValid reports whether c is a known category.
func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryDrink, CategorySupply, CategoryOther, CategoryCocktail, CategoryFood, CategorySemiElaborated:
		return true
	default:
		return false
	}
}

// CompoundCapable reports whether products in this category may carry a recipe.
func (c ProductCategory) CompoundCapable() bool {
	return c == CategoryCocktail || c == CategoryFood || c == CategorySemiElaborated
}

// StockStatus is derived from quantity and min stock, never set directly.
type StockStatus string

const (
	StockStatusNormal   StockStatus = "normal"
	StockStatusLow      StockStatus = "low"
	StockStatusCritical StockStatus = "critical"
)

// DeriveStockStatus returns critical for quantity <= 0, low for 0 < quantity <= minStock, normal otherwise.
func DeriveStockStatus(quantity, minStock decimal.Decimal) StockStatus {
	if quantity.Sign() <= 0 {
		return StockStatusCritical
	}
	if quantity.LessThanOrEqual(minStock) {
		return StockStatusLow
	}
	return StockStatusNormal
}

// Product is a catalog item with its stock level.
type Product struct {
	ID              int64               `json:"id" db:"id"`
	Name            string              `json:"name" db:"name"`
	Category        ProductCategory     `json:"category" db:"category"`
	Price           decimal.Decimal     `json:"price" db:"price"`
	Quantity        decimal.Decimal     `json:"quantity" db:"quantity"`
	MinStock        decimal.Decimal     `json:"min_stock" db:"min_stock"`
	Status          StockStatus         `json:"status" db:"status"`
	IsCompound      bool                `json:"is_compound" db:"is_compound"`
	RequiresKitchen bool                `json:"requires_kitchen" db:"requires_kitchen"`
	UnitBase        string              `json:"unit_base" db:"unit_base"`
	CostPerUnit     decimal.NullDecimal `json:"cost_per_unit" db:"cost_per_unit"`
	CreatedAt       time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at" db:"updated_at"`
}

// IsDirectStock reports whether selling the product decrements its own quantity.
func (p *Product) IsDirectStock() bool {
	return p.Category == CategoryDrink && !p.IsCompound
}

// RequiresBar reports whether the product is prepared by the bartenders.
func (p *Product) RequiresBar() bool {
	return p.Category == CategoryCocktail
}

// ProductFilters narrows product listings.
type ProductFilters struct {
	Category *ProductCategory `form:"category"`
	Status   *StockStatus     `form:"status"`
	Search   *string          `form:"search"`
}

// AdjustmentReason is the reason recorded for a manual stock count.
type AdjustmentReason string

const (
	AdjustmentLoss                AdjustmentReason = "loss"
	AdjustmentInternalConsumption AdjustmentReason = "internal_consumption"
	AdjustmentBreakage            AdjustmentReason = "breakage"
	AdjustmentCorrection          AdjustmentReason = "correction"
)

func (r AdjustmentReason) IsValid() bool {
	switch r {
	case AdjustmentLoss, AdjustmentInternalConsumption, AdjustmentBreakage, AdjustmentCorrection:
		return true
	default:
		return false
	}
}

// StockAdjustment is the audit row written by a manual quantity override.
type StockAdjustment struct {
	ID               int64            `json:"id" db:"id"`
	ProductID        int64            `json:"product_id" db:"product_id"`
	PreviousQuantity decimal.Decimal  `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      decimal.Decimal  `json:"new_quantity" db:"new_quantity"`
	Reason           AdjustmentReason `json:"reason" db:"reason"`
	Notes            *string          `json:"notes,omitempty" db:"notes"`
	StaffID          *int64           `json:"staff_id,omitempty" db:"staff_id"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// StockChange is the outcome of a single atomic quantity update.
type StockChange struct {
	ProductID        int64           `json:"product_id"`
	PreviousQuantity decimal.Decimal `json:"previous_quantity"`
	NewQuantity      decimal.Decimal `json:"new_quantity"`
	NewStatus        StockStatus     `json:"new_status"`
	// Clamped is set when the requested delta would have taken quantity below zero.
	Clamped bool `json:"clamped"`
}

// RecipeItem is one edge of a product's bill of materials.
type RecipeItem struct {
	ProductID      int64           `json:"product_id" db:"product_id"`
	IngredientID   int64           `json:"ingredient_id" db:"ingredient_id" binding:"required"`
	IngredientName string          `json:"ingredient_name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	Unit           string          `json:"unit" db:"unit"`
}
