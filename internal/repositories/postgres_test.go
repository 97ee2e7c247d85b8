package repositories

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"venue_pos_backend/internal/database"
	"venue_pos_backend/internal/models"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL, applies the schema and empties every table.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, database.ApplySchema(ctx, db))
	_, err = db.ExecContext(ctx, `TRUNCATE notifications, cash_expenses, cash_sessions, fulfillment_items,
		fulfillment_orders, sale_items, sales, stock_adjustments, recipe_items, products, users
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestPostgresAdjustQuantityIsAtomic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewProductRepository(db)

	p := &models.Product{Name: "Lager", Category: models.CategoryDrink, Quantity: decimal.NewFromInt(100), MinStock: decimal.NewFromInt(10)}
	_, err := repo.CreateProduct(ctx, p)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AdjustQuantity(ctx, p.ID, decimal.RequireFromString("-1.5"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := repo.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(got.Quantity), got.Quantity.String())
	assert.Equal(t, models.StockStatusNormal, got.Status)
}

func TestPostgresAdjustQuantityClampsAndDerivesStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewProductRepository(db)

	p := &models.Product{Name: "Rum", Category: models.CategorySupply, Quantity: decimal.NewFromInt(12), MinStock: decimal.NewFromInt(5)}
	_, err := repo.CreateProduct(ctx, p)
	require.NoError(t, err)

	change, err := repo.AdjustQuantity(ctx, p.ID, decimal.NewFromInt(-7))
	require.NoError(t, err)
	assert.False(t, change.Clamped)
	assert.True(t, decimal.NewFromInt(5).Equal(change.NewQuantity), change.NewQuantity.String())
	assert.Equal(t, models.StockStatusLow, change.NewStatus)

	change, err = repo.AdjustQuantity(ctx, p.ID, decimal.NewFromInt(-8))
	require.NoError(t, err)
	assert.True(t, change.Clamped)
	assert.True(t, decimal.NewFromInt(5).Equal(change.PreviousQuantity), change.PreviousQuantity.String())
	assert.True(t, change.NewQuantity.IsZero(), change.NewQuantity.String())
	assert.Equal(t, models.StockStatusCritical, change.NewStatus)

	got, err := repo.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StockStatusCritical, got.Status)

	_, err = repo.AdjustQuantity(ctx, 999, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresSingleOpenCashSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCashSessionRepository(db)

	first := &models.CashSession{InitialCash: decimal.NewFromInt(100)}
	_, err := repo.CreateCashSession(ctx, first)
	require.NoError(t, err)

	_, err = repo.CreateCashSession(ctx, &models.CashSession{InitialCash: decimal.NewFromInt(50)})
	assert.ErrorIs(t, err, ErrDuplicateKey)

	open, err := repo.GetOpenCashSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID)
}

func TestPostgresGetSalesReportsTotalPastLastPage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewSaleRepository(db)

	for i := 0; i < 3; i++ {
		sale := &models.Sale{
			TotalAmount:   decimal.NewFromInt(10),
			PaymentMethod: models.PaymentCash,
			PaymentStatus: models.PaymentPending,
		}
		_, err := repo.CreateSale(ctx, sale)
		require.NoError(t, err)
	}

	sales, total, err := repo.GetSales(ctx, models.SaleFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, sales, 2)
	assert.Equal(t, 3, total)

	sales, total, err = repo.GetSales(ctx, models.SaleFilters{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, 3, total)

	pending := models.PaymentPending
	_, total, err = repo.GetSales(ctx, models.SaleFilters{PaymentStatus: &pending, Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
