package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"venue_pos_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitSnapshotsPricesAndTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3.50", "20", "5")
	burger := f.newProduct(t, CreateProductRequest{Name: "Burger", Category: models.CategoryFood, Price: dec("12"), RequiresKitchen: true})

	result, err := f.sales.Submit(ctx, SubmitSaleRequest{
		Items:         []OrderLine{line(beer.ID, "2"), line(burger.ID, "1")},
		PaymentMethod: models.PaymentCash,
		TableNumber:   strPtr("7"),
	}, waiter)
	require.NoError(t, err)
	assertDecimal(t, "19", result.Sale.TotalAmount)
	assert.Equal(t, models.PaymentPending, result.Sale.PaymentStatus)
	assert.Nil(t, result.Sale.CollectedAt)

	_, err = f.ledger.UpdateProduct(ctx, beer.ID, UpdateProductRequest{Price: decPtr("5"), Name: strPtr("Premium Lager")})
	require.NoError(t, err)

	sale, err := f.sales.GetSale(ctx, result.Sale.ID)
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "Lager", sale.Items[0].ProductName)
	assertDecimal(t, "3.50", sale.Items[0].UnitPrice)
	assertDecimal(t, "7", sale.Items[0].LineTotal)
	assertDecimal(t, "19", sale.TotalAmount)
	require.NotNil(t, sale.StaffID)
	assert.Equal(t, waiter.UserID, *sale.StaffID)
}

func TestSubmitRoundsFractionalLinesToCents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	wine := f.drink(t, "House Wine", "1.25", "10", "1")

	result, err := f.sales.Submit(ctx, SubmitSaleRequest{
		Items:         []OrderLine{line(wine.ID, "0.333"), line(wine.ID, "0.333")},
		PaymentMethod: models.PaymentCash,
	}, waiter)
	require.NoError(t, err)

	require.Len(t, result.Sale.Items, 2)
	for _, item := range result.Sale.Items {
		assertDecimal(t, "0.42", item.LineTotal)
	}
	assertDecimal(t, "0.84", result.Sale.TotalAmount)
	assertDecimal(t, "9.334", f.quantityOf(t, wine.ID))

	stored, err := f.sales.GetSale(ctx, result.Sale.ID)
	require.NoError(t, err)
	assert.True(t, models.SumLineTotals(stored.Items).Equal(stored.TotalAmount))
}

func TestSubmitLeavesStockUntouchedOnShortage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3", "1", "0")
	rum := f.supply(t, "Rum", "500")
	mojito := f.cocktail(t, "Mojito", "8", map[int64]string{rum.ID: "50"})

	_, err := f.sales.Submit(ctx, SubmitSaleRequest{
		Items:         []OrderLine{line(mojito.ID, "1"), line(beer.ID, "2")},
		PaymentMethod: models.PaymentCash,
	}, waiter)

	shortages := shortagesOf(t, err)
	require.Len(t, shortages, 1)
	assert.Equal(t, beer.ID, shortages[0].ProductID)
	assertDecimal(t, "1", f.quantityOf(t, beer.ID))
	assertDecimal(t, "500", f.quantityOf(t, rum.ID))

	sales, total, err := f.sales.ListSales(ctx, models.SaleFilters{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, sales)
	orders, err := f.queue.List(ctx, models.FulfillmentFilters{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestSubmitDeductsStockAndRoutesDepartments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3", "10", "2")
	rum := f.supply(t, "Rum", "1000")
	mint := f.supply(t, "Mint", "100")
	mojito := f.cocktail(t, "Mojito", "8", map[int64]string{rum.ID: "50", mint.ID: "5"})
	burger := f.newProduct(t, CreateProductRequest{Name: "Burger", Category: models.CategoryFood, Price: dec("12"), RequiresKitchen: true})

	result, err := f.sales.Submit(ctx, SubmitSaleRequest{
		Items:         []OrderLine{line(beer.ID, "2"), line(mojito.ID, "3"), line(burger.ID, "1")},
		PaymentMethod: models.PaymentQR,
		TableNumber:   strPtr("4"),
	}, waiter)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Len(t, result.StockChanges, 3)

	assertDecimal(t, "8", f.quantityOf(t, beer.ID))
	assertDecimal(t, "850", f.quantityOf(t, rum.ID))
	assertDecimal(t, "85", f.quantityOf(t, mint.ID))

	require.Len(t, result.FulfillmentOrders, 2)
	kitchen, bar := result.FulfillmentOrders[0], result.FulfillmentOrders[1]
	assert.Equal(t, models.DepartmentKitchen, kitchen.Department)
	require.Len(t, kitchen.Items, 1)
	assert.Equal(t, burger.ID, kitchen.Items[0].ProductID)
	assert.Equal(t, models.DepartmentBar, bar.Department)
	require.Len(t, bar.Items, 1)
	assert.Equal(t, mojito.ID, bar.Items[0].ProductID)
	assertDecimal(t, "3", bar.Items[0].Quantity)
	for _, o := range result.FulfillmentOrders {
		assert.Equal(t, models.FulfillmentPending, o.Status)
		assert.Equal(t, result.Sale.ID, o.SaleID)
	}

	f.flush(t)
	barNotes, err := f.notifications.List(ctx, bartender, false)
	require.NoError(t, err)
	require.Len(t, barNotes, 1)
	assert.Contains(t, barNotes[0].Message, "Mojito x3")
	kitchenNotes, err := f.notifications.List(ctx, cook, false)
	require.NoError(t, err)
	assert.Len(t, kitchenNotes, 1)
}

func TestSubmitReturnsWhileNotificationSinkStalls(t *testing.T) {
	f := newFixture(t)
	sink := newStalledSink(f.store)
	n := NewNotifier(sink, NotifierConfig{Workers: 1, QueueSize: 1, EnqueueTimeout: 20 * time.Millisecond, RetryBackoff: time.Millisecond})
	t.Cleanup(func() {
		close(sink.release)
		closeNotifier(t, n)
	})
	sales := NewSaleProcessor(f.store, f.checker, f.ledger, NewFulfillmentQueue(f.store, n), 2)
	burger := f.newProduct(t, CreateProductRequest{Name: "Burger", Category: models.CategoryFood, Price: dec("12"), RequiresKitchen: true})

	submit := func() *SaleResult {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		type outcome struct {
			result *SaleResult
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			r, err := sales.Submit(ctx, SubmitSaleRequest{Items: []OrderLine{line(burger.ID, "1")}, PaymentMethod: models.PaymentCash}, waiter)
			done <- outcome{r, err}
		}()
		select {
		case o := <-done:
			require.NoError(t, o.err)
			return o.result
		case <-time.After(2 * time.Second):
			t.Fatal("sale did not return while notifications were stalled")
			return nil
		}
	}

	first := submit()
	sink.waitEntered(t)
	second := submit()
	third := submit()

	for _, r := range []*SaleResult{first, second, third} {
		require.Len(t, r.FulfillmentOrders, 1)
		assert.Equal(t, models.DepartmentKitchen, r.FulfillmentOrders[0].Department)
	}
	assert.Empty(t, first.Warnings)
	assert.Empty(t, second.Warnings)
	require.Len(t, third.Warnings, 1)
	assert.True(t, strings.Contains(third.Warnings[0], "was not notified"), third.Warnings[0])
}

func TestSubmitWithoutPreparedItemsCreatesNoOrders(t *testing.T) {
	f := newFixture(t)
	beer := f.drink(t, "Lager", "3", "10", "2")

	result, err := f.sales.Submit(context.Background(), SubmitSaleRequest{Items: []OrderLine{line(beer.ID, "1")}, PaymentMethod: models.PaymentCash}, waiter)
	require.NoError(t, err)
	assert.NotNil(t, result.FulfillmentOrders)
	assert.Empty(t, result.FulfillmentOrders)
}

func TestSubmitPrepaidIsCollected(t *testing.T) {
	f := newFixture(t)
	beer := f.drink(t, "Lager", "3", "10", "2")

	result, err := f.sales.Submit(context.Background(), SubmitSaleRequest{
		Items: []OrderLine{line(beer.ID, "1")}, PaymentMethod: models.PaymentTransfer, IsPrepaid: true,
	}, waiter)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCollected, result.Sale.PaymentStatus)
	require.NotNil(t, result.Sale.CollectedAt)
}

func TestSubmitRejectsUnknownPaymentMethod(t *testing.T) {
	f := newFixture(t)
	beer := f.drink(t, "Lager", "3", "10", "2")

	_, err := f.sales.Submit(context.Background(), SubmitSaleRequest{Items: []OrderLine{line(beer.ID, "1")}, PaymentMethod: "card"}, waiter)
	assert.ErrorIs(t, err, ErrValidation)
	assertDecimal(t, "10", f.quantityOf(t, beer.ID))
}

func TestConcurrentSalesDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rum := f.supply(t, "Rum", "1000")
	mojito := f.cocktail(t, "Mojito", "8", map[int64]string{rum.ID: "50"})
	beer := f.drink(t, "Lager", "3", "20", "2")

	const sales = 20
	var wg sync.WaitGroup
	errs := make(chan error, sales)
	for i := 0; i < sales; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sales.Submit(ctx, SubmitSaleRequest{
				Items:         []OrderLine{line(mojito.ID, "1"), line(beer.ID, "1")},
				PaymentMethod: models.PaymentCash,
			}, waiter)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assertDecimal(t, "0", f.quantityOf(t, rum.ID))
	assertDecimal(t, "0", f.quantityOf(t, beer.ID))

	_, total, err := f.sales.ListSales(ctx, models.SaleFilters{})
	require.NoError(t, err)
	assert.Equal(t, sales, total)
}

func TestListSalesPagesAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	beer := f.drink(t, "Lager", "3", "100", "2")
	for i := 0; i < 3; i++ {
		_, err := f.sales.Submit(ctx, SubmitSaleRequest{Items: []OrderLine{line(beer.ID, "1")}, PaymentMethod: models.PaymentCash}, waiter)
		require.NoError(t, err)
	}
	_, err := f.sales.Submit(ctx, SubmitSaleRequest{Items: []OrderLine{line(beer.ID, "1")}, PaymentMethod: models.PaymentCash, IsPrepaid: true}, waiter2)
	require.NoError(t, err)

	page, total, err := f.sales.ListSales(ctx, models.SaleFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, page, 2)

	pending := models.PaymentPending
	_, total, err = f.sales.ListSales(ctx, models.SaleFilters{PaymentStatus: &pending})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	bogus := models.PaymentStatus("refunded")
	_, _, err = f.sales.ListSales(ctx, models.SaleFilters{PaymentStatus: &bogus})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.sales.GetSale(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
