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

type RecipeItemRequest struct {
	IngredientID int64           `json:"ingredient_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
}

// RecipeGraph maps compound products to their one-level ingredient lists.
type RecipeGraph interface {
	// IngredientsFor returns the recipe of productID. An empty list means the product has no recipe.
	IngredientsFor(ctx context.Context, productID int64) ([]models.RecipeItem, error)
	// SetRecipe replaces the whole recipe and flags the product compound.
	SetRecipe(ctx context.Context, productID int64, items []RecipeItemRequest) ([]models.RecipeItem, error)
	// ClearRecipe removes every ingredient and clears the compound flag.
	ClearRecipe(ctx context.Context, productID int64) error
}

type recipeGraph struct {
	recipeRepo  repositories.RecipeRepository
	productRepo repositories.ProductRepository
}

func NewRecipeGraph(recipeRepo repositories.RecipeRepository, productRepo repositories.ProductRepository) RecipeGraph {
	return &recipeGraph{recipeRepo: recipeRepo, productRepo: productRepo}
}

func (g *recipeGraph) IngredientsFor(ctx context.Context, productID int64) ([]models.RecipeItem, error) {
	items, err := g.recipeRepo.GetRecipe(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("loading recipe for product %d: %w", productID, err)
	}
	return items, nil
}

func (g *recipeGraph) SetRecipe(ctx context.Context, productID int64, items []RecipeItemRequest) ([]models.RecipeItem, error) {
	product, err := g.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "product", productID)
	}
	if !product.Category.CompoundCapable() {
		return nil, validationf("category '%s' cannot carry a recipe", product.Category)
	}
	if len(items) == 0 {
		return nil, validationf("a recipe needs at least one ingredient")
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.IngredientID == productID {
			return nil, validationf("product %d cannot be its own ingredient", productID)
		}
		if seen[item.IngredientID] {
			return nil, validationf("ingredient %d is listed more than once", item.IngredientID)
		}
		if item.Quantity.Sign() <= 0 {
			return nil, validationf("ingredient %d quantity must be positive", item.IngredientID)
		}
		if err := checkQuantity(fmt.Sprintf("ingredient %d quantity", item.IngredientID), item.Quantity); err != nil {
			return nil, err
		}
		seen[item.IngredientID] = true
		ids = append(ids, item.IngredientID)
	}

	ingredients, err := g.productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading ingredients: %w", err)
	}
	edges := make([]models.RecipeItem, 0, len(items))
	for _, item := range items {
		ingredient, ok := ingredients[item.IngredientID]
		if !ok {
			return nil, fmt.Errorf("%w: ingredient product %d", ErrNotFound, item.IngredientID)
		}
		unit := strings.TrimSpace(item.Unit)
		if unit == "" {
			unit = ingredient.UnitBase
		}
		edges = append(edges, models.RecipeItem{
			ProductID:      productID,
			IngredientID:   item.IngredientID,
			IngredientName: ingredient.Name,
			Quantity:       item.Quantity,
			Unit:           unit,
		})
	}

	if err := g.recipeRepo.ReplaceRecipe(ctx, productID, edges); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			return nil, fmt.Errorf("%w: an ingredient was removed concurrently", ErrNotFound)
		}
		return nil, notFoundOr(err, "product", productID)
	}
	log.Info().Int64("product_id", productID).Int("ingredients", len(edges)).Msg("Recipe replaced")
	return edges, nil
}

func (g *recipeGraph) ClearRecipe(ctx context.Context, productID int64) error {
	if err := g.recipeRepo.ReplaceRecipe(ctx, productID, nil); err != nil {
		return notFoundOr(err, "product", productID)
	}
	log.Info().Int64("product_id", productID).Msg("Recipe cleared")
	return nil
}
