package services

import (
	"context"
	"fmt"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// OrderLine is one product and quantity of a prospective order.
type OrderLine struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Requirement is the merged quantity an order needs from a single product's stock.
type Requirement struct {
	ProductID int64
	Quantity  decimal.Decimal
}

// StockPlan is an order resolved against the catalog: every product it touches and the
// stock it would consume, merged per product.
type StockPlan struct {
	Lines    []OrderLine
	Products map[int64]*models.Product
	// Requirements keeps first-seen order so shortage reports are stable.
	Requirements []Requirement
	// MissingRecipes lists compound products that have no ingredients configured.
	MissingRecipes []OrderLine
}

// Shortages compares the plan with the quantities read while building it.
func (p *StockPlan) Shortages() []Shortage {
	var shortages []Shortage
	for _, req := range p.Requirements {
		product := p.Products[req.ProductID]
		if req.Quantity.GreaterThan(product.Quantity) {
			shortages = append(shortages, Shortage{
				ProductID:   product.ID,
				ProductName: product.Name,
				Unit:        product.UnitBase,
				Required:    req.Quantity,
				Available:   product.Quantity,
			})
		}
	}
	for _, line := range p.MissingRecipes {
		product := p.Products[line.ProductID]
		shortages = append(shortages, Shortage{
			ProductID:     product.ID,
			ProductName:   product.Name,
			Unit:          product.UnitBase,
			Required:      line.Quantity,
			Available:     decimal.Zero,
			RecipeMissing: true,
		})
	}
	return shortages
}

// AvailabilityChecker decides whether current stock covers an order.
type AvailabilityChecker interface {
	// CheckOrder returns nil or an *InsufficientStockError listing every shortage.
	CheckOrder(ctx context.Context, lines []OrderLine) error
	// Plan resolves the order into per-product requirements without judging them.
	Plan(ctx context.Context, lines []OrderLine) (*StockPlan, error)
}

type availabilityChecker struct {
	productRepo repositories.ProductRepository
	graph       RecipeGraph
}

func NewAvailabilityChecker(productRepo repositories.ProductRepository, graph RecipeGraph) AvailabilityChecker {
	return &availabilityChecker{productRepo: productRepo, graph: graph}
}

func (c *availabilityChecker) CheckOrder(ctx context.Context, lines []OrderLine) error {
	plan, err := c.Plan(ctx, lines)
	if err != nil {
		return err
	}
	if shortages := plan.Shortages(); len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}
	return nil
}

func (c *availabilityChecker) Plan(ctx context.Context, lines []OrderLine) (*StockPlan, error) {
	if len(lines) == 0 {
		return nil, validationf("order has no items")
	}
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if line.Quantity.Sign() <= 0 {
			return nil, validationf("quantity for product %d must be positive", line.ProductID)
		}
		if err := checkQuantity(fmt.Sprintf("quantity for product %d", line.ProductID), line.Quantity); err != nil {
			return nil, err
		}
		ids = append(ids, line.ProductID)
	}

	products, err := c.productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading order products: %w", err)
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, id)
		}
	}

	plan := &StockPlan{Lines: lines, Products: products}
	required := map[int64]decimal.Decimal{}
	add := func(productID int64, qty decimal.Decimal) {
		current, seen := required[productID]
		if !seen {
			plan.Requirements = append(plan.Requirements, Requirement{ProductID: productID})
		}
		required[productID] = current.Add(qty)
	}

	var missingIngredients []int64
	missingRecipe := map[int64]int{}
	for _, line := range lines {
		product := products[line.ProductID]
		switch {
		case product.IsCompound:
			recipe, err := c.graph.IngredientsFor(ctx, product.ID)
			if err != nil {
				return nil, err
			}
			if len(recipe) == 0 {
				if idx, seen := missingRecipe[product.ID]; seen {
					plan.MissingRecipes[idx].Quantity = plan.MissingRecipes[idx].Quantity.Add(line.Quantity)
				} else {
					missingRecipe[product.ID] = len(plan.MissingRecipes)
					plan.MissingRecipes = append(plan.MissingRecipes, line)
				}
				continue
			}
			for _, item := range recipe {
				add(item.IngredientID, item.Quantity.Mul(line.Quantity))
				if _, loaded := products[item.IngredientID]; !loaded {
					missingIngredients = append(missingIngredients, item.IngredientID)
				}
			}
		case product.IsDirectStock():
			add(product.ID, line.Quantity)
		default:
			// made to order from untracked inputs
		}
	}

	if len(missingIngredients) > 0 {
		ingredients, err := c.productRepo.GetProductsByIDs(ctx, missingIngredients)
		if err != nil {
			return nil, fmt.Errorf("loading ingredients: %w", err)
		}
		for id, p := range ingredients {
			products[id] = p
		}
		for _, id := range missingIngredients {
			if _, ok := products[id]; !ok {
				return nil, fmt.Errorf("%w: ingredient product %d", ErrNotFound, id)
			}
		}
	}

	for i := range plan.Requirements {
		// ingredient usage is stored at quantity scale; round up so the check never under-counts
		plan.Requirements[i].Quantity = required[plan.Requirements[i].ProductID].RoundCeil(models.QuantityPlaces)
	}
	return plan, nil
}
