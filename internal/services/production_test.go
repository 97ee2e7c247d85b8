package services

import (
	"context"
	"testing"

	"venue_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduceConvertsIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sugar := f.supply(t, "Sugar", "500")
	water := f.supply(t, "Water", "1000")
	syrup := f.newProduct(t, CreateProductRequest{Name: "Simple Syrup", Category: models.CategorySemiElaborated, UnitBase: "ml"})
	_, err := f.recipes.SetRecipe(ctx, syrup.ID, []RecipeItemRequest{
		{IngredientID: sugar.ID, Quantity: dec("100")},
		{IngredientID: water.ID, Quantity: dec("100")},
	})
	require.NoError(t, err)

	result, err := f.producer.Produce(ctx, syrup.ID, dec("2"))
	require.NoError(t, err)
	assert.Len(t, result.Ingredients, 2)
	assertDecimal(t, "2", result.Product.NewQuantity)

	assertDecimal(t, "300", f.quantityOf(t, sugar.ID))
	assertDecimal(t, "800", f.quantityOf(t, water.ID))
	assertDecimal(t, "2", f.quantityOf(t, syrup.ID))
}

func TestProduceRejectsShortageWithoutChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sugar := f.supply(t, "Sugar", "150")
	syrup := f.newProduct(t, CreateProductRequest{Name: "Simple Syrup", Category: models.CategorySemiElaborated})
	_, err := f.recipes.SetRecipe(ctx, syrup.ID, []RecipeItemRequest{{IngredientID: sugar.ID, Quantity: dec("100")}})
	require.NoError(t, err)

	_, err = f.producer.Produce(ctx, syrup.ID, dec("2"))
	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assertDecimal(t, "200", shortages[0].Required)
	assertDecimal(t, "150", f.quantityOf(t, sugar.ID))
	assertDecimal(t, "0", f.quantityOf(t, syrup.ID))
}

func TestProduceRequiresRecipe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3", "10", "1")

	_, err := f.producer.Produce(ctx, beer.ID, dec("1"))
	assert.ErrorIs(t, err, ErrValidation)

	stew := f.newProduct(t, CreateProductRequest{Name: "Stew", Category: models.CategoryFood, IsCompound: true})
	_, err = f.producer.Produce(ctx, stew.ID, dec("1"))
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

// drainingChecker lets another consumer take stock right after the plan is read.
type drainingChecker struct {
	AvailabilityChecker
	drain func(ctx context.Context)
}

func (c *drainingChecker) Plan(ctx context.Context, lines []OrderLine) (*StockPlan, error) {
	plan, err := c.AvailabilityChecker.Plan(ctx, lines)
	if err == nil {
		c.drain(ctx)
	}
	return plan, err
}

func TestProduceAbortsWhenIngredientDrainedConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sugar := f.supply(t, "Sugar", "500")
	water := f.supply(t, "Water", "1000")
	syrup := f.newProduct(t, CreateProductRequest{Name: "Simple Syrup", Category: models.CategorySemiElaborated})
	_, err := f.recipes.SetRecipe(ctx, syrup.ID, []RecipeItemRequest{
		{IngredientID: water.ID, Quantity: dec("100")},
		{IngredientID: sugar.ID, Quantity: dec("100")},
	})
	require.NoError(t, err)

	checker := &drainingChecker{AvailabilityChecker: f.checker, drain: func(ctx context.Context) {
		_, err := f.ledger.AdjustQuantity(ctx, sugar.ID, dec("-450"), ReasonSale)
		require.NoError(t, err)
	}}
	producer := NewProducer(f.store, checker, f.ledger)

	_, err = producer.Produce(ctx, syrup.ID, dec("2"))
	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assert.Equal(t, sugar.ID, shortages[0].ProductID)
	assertDecimal(t, "50", shortages[0].Available)

	assertDecimal(t, "50", f.quantityOf(t, sugar.ID))
	assertDecimal(t, "1000", f.quantityOf(t, water.ID))
	assertDecimal(t, "0", f.quantityOf(t, syrup.ID))
}
