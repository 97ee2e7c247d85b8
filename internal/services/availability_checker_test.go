package services

import (
	"context"
	"errors"
	"testing"

	"venue_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortagesOf(t *testing.T, err error) []Shortage {
	t.Helper()
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "expected InsufficientStockError, got %v", err)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	return stockErr.Shortages
}

func TestCheckOrderNamesMissingIngredient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.supply(t, "Ingredient X", "1")
	drink := f.cocktail(t, "House Special", "9", map[int64]string{x.ID: "2"})

	err := f.checker.CheckOrder(ctx, []OrderLine{line(drink.ID, "1")})

	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assert.Equal(t, x.ID, shortages[0].ProductID)
	assert.Equal(t, "Ingredient X", shortages[0].ProductName)
	assertDecimal(t, "2", shortages[0].Required)
	assertDecimal(t, "1", shortages[0].Available)
	assertDecimal(t, "1", f.quantityOf(t, x.ID))
}

func TestCheckOrderMergesIngredientAcrossLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rum := f.supply(t, "Rum", "3")
	mojito := f.cocktail(t, "Mojito", "8", map[int64]string{rum.ID: "2"})
	cubaLibre := f.cocktail(t, "Cuba Libre", "7", map[int64]string{rum.ID: "2"})

	require.NoError(t, f.checker.CheckOrder(ctx, []OrderLine{line(mojito.ID, "1")}))
	require.NoError(t, f.checker.CheckOrder(ctx, []OrderLine{line(cubaLibre.ID, "1")}))

	shortages := shortagesOf(t, f.checker.CheckOrder(ctx, []OrderLine{line(mojito.ID, "1"), line(cubaLibre.ID, "1")}))
	require.Len(t, shortages, 1)
	assert.Equal(t, rum.ID, shortages[0].ProductID)
	assertDecimal(t, "4", shortages[0].Required)
	assertDecimal(t, "3", shortages[0].Available)
}

func TestCheckOrderMergesDirectStockLines(t *testing.T) {
	f := newFixture(t)
	beer := f.drink(t, "Lager", "3", "3", "1")

	shortages := shortagesOf(t, f.checker.CheckOrder(context.Background(), []OrderLine{line(beer.ID, "2"), line(beer.ID, "2")}))
	require.Len(t, shortages, 1)
	assertDecimal(t, "4", shortages[0].Required)
}

func TestCheckOrderReportsEveryShortage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3", "0", "1")
	lime := f.supply(t, "Lime", "1")
	caipirinha := f.cocktail(t, "Caipirinha", "8", map[int64]string{lime.ID: "2"})

	shortages := shortagesOf(t, f.checker.CheckOrder(ctx, []OrderLine{line(beer.ID, "1"), line(caipirinha.ID, "1")}))
	assert.Len(t, shortages, 2)
}

func TestCheckOrderFlagsCompoundWithoutRecipe(t *testing.T) {
	f := newFixture(t)
	negroni := f.newProduct(t, CreateProductRequest{Name: "Negroni", Category: models.CategoryCocktail, Price: dec("9"), IsCompound: true})

	shortages := shortagesOf(t, f.checker.CheckOrder(context.Background(), []OrderLine{line(negroni.ID, "2")}))
	require.Len(t, shortages, 1)
	assert.True(t, shortages[0].RecipeMissing)
	assertDecimal(t, "2", shortages[0].Required)
}

func TestCheckOrderIgnoresUntrackedProducts(t *testing.T) {
	f := newFixture(t)
	burger := f.newProduct(t, CreateProductRequest{Name: "Burger", Category: models.CategoryFood, Price: dec("12"), RequiresKitchen: true})

	assert.NoError(t, f.checker.CheckOrder(context.Background(), []OrderLine{line(burger.ID, "5")}))
}

func TestCheckOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3", "10", "1")

	assert.ErrorIs(t, f.checker.CheckOrder(ctx, nil), ErrValidation)
	assert.ErrorIs(t, f.checker.CheckOrder(ctx, []OrderLine{line(beer.ID, "0")}), ErrValidation)
	assert.ErrorIs(t, f.checker.CheckOrder(ctx, []OrderLine{line(999, "1")}), ErrNotFound)
	assert.ErrorIs(t, f.checker.CheckOrder(ctx, []OrderLine{line(beer.ID, "0.0001")}), ErrValidation)
}

func TestCheckOrderRoundsIngredientUsageUp(t *testing.T) {
	f := newFixture(t)
	lime := f.supply(t, "Lime juice", "10")
	gimlet := f.cocktail(t, "Gimlet", "9", map[int64]string{lime.ID: "0.125"})

	plan, err := f.checker.Plan(context.Background(), []OrderLine{line(gimlet.ID, "0.333")})
	require.NoError(t, err)
	require.Len(t, plan.Requirements, 1)
	// 0.125 x 0.333 = 0.041625
	assertDecimal(t, "0.042", plan.Requirements[0].Quantity)
}
