package services

import (
	"context"
	"testing"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin     = models.Actor{UserID: 1, Username: "admin", Role: models.RoleAdmin}
	waiter    = models.Actor{UserID: 10, Username: "ana", Role: models.RoleWaiter}
	waiter2   = models.Actor{UserID: 11, Username: "luis", Role: models.RoleWaiter}
	cook      = models.Actor{UserID: 20, Username: "marta", Role: models.RoleKitchen}
	bartender = models.Actor{UserID: 30, Username: "diego", Role: models.RoleBartender}
)

// fixture wires every service over one in-memory store.
type fixture struct {
	store         *memory.Store
	ledger        StockLedger
	recipes       RecipeGraph
	checker       AvailabilityChecker
	producer      Producer
	notifier      Notifier
	queue         FulfillmentQueue
	sales         SaleProcessor
	payments      PaymentLedger
	cash          CashSessionReconciler
	notifications NotificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := wireFixture()
	t.Cleanup(func() { _ = f.notifier.Close(context.Background()) })
	return f
}

func wireFixture() *fixture {
	store := memory.New()
	f := &fixture{store: store}
	f.ledger = NewStockLedger(store)
	f.recipes = NewRecipeGraph(store, store)
	f.checker = NewAvailabilityChecker(store, f.recipes)
	f.producer = NewProducer(store, f.checker, f.ledger)
	f.notifier = NewNotifier(store, NotifierConfig{Workers: 1, QueueSize: 16, MaxAttempts: 2, RetryBackoff: time.Millisecond})
	f.queue = NewFulfillmentQueue(store, f.notifier)
	f.sales = NewSaleProcessor(store, f.checker, f.ledger, f.queue, 4)
	f.payments = NewPaymentLedger(store)
	f.cash = NewCashSessionReconciler(store, store, store)
	f.notifications = NewNotificationService(store)
	return f
}

// flush waits for queued notifications to reach the store.
func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.notifier.Close(ctx))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func (f *fixture) newProduct(t *testing.T, req CreateProductRequest) *models.Product {
	t.Helper()
	p, err := f.ledger.CreateProduct(context.Background(), req)
	require.NoError(t, err)
	return p
}

func (f *fixture) drink(t *testing.T, name, price, qty, minStock string) *models.Product {
	return f.newProduct(t, CreateProductRequest{
		Name: name, Category: models.CategoryDrink, Price: dec(price), Quantity: dec(qty), MinStock: dec(minStock),
	})
}

func (f *fixture) supply(t *testing.T, name, qty string) *models.Product {
	return f.newProduct(t, CreateProductRequest{Name: name, Category: models.CategorySupply, Quantity: dec(qty), UnitBase: "ml"})
}

// cocktail creates a bar product made from ingredients, given as ingredient id to per-unit quantity.
func (f *fixture) cocktail(t *testing.T, name, price string, ingredients map[int64]string) *models.Product {
	t.Helper()
	p := f.newProduct(t, CreateProductRequest{Name: name, Category: models.CategoryCocktail, Price: dec(price), IsCompound: true})
	items := make([]RecipeItemRequest, 0, len(ingredients))
	for id, qty := range ingredients {
		items = append(items, RecipeItemRequest{IngredientID: id, Quantity: dec(qty)})
	}
	_, err := f.recipes.SetRecipe(context.Background(), p.ID, items)
	require.NoError(t, err)
	return p
}

func (f *fixture) quantityOf(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	p, err := f.ledger.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func line(productID int64, qty string) OrderLine {
	return OrderLine{ProductID: productID, Quantity: dec(qty)}
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}
