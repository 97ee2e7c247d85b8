package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_pos_backend/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductRepository defines the interface for catalog and stock persistence.
type ProductRepository interface {
	CreateProduct(ctx context.Context, product *models.Product) (int64, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error)
	GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// AdjustQuantity applies delta in one atomic statement, floors the result at zero and
	// re-derives status in the same write.
	AdjustQuantity(ctx context.Context, id int64, delta decimal.Decimal) (*models.StockChange, error)
	// SetQuantity overrides the quantity and records adj in the same transaction.
	SetQuantity(ctx context.Context, id int64, quantity decimal.Decimal, adj *models.StockAdjustment) (*models.StockChange, error)
	GetAdjustments(ctx context.Context, productID int64) ([]models.StockAdjustment, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, category, price, quantity, min_stock, status, is_compound,
	requires_kitchen, unit_base, cost_per_unit, created_at, updated_at`

// statusCase renders the stock status rule for a quantity expression.
func statusCase(qty string) string {
	return fmt.Sprintf(`CASE WHEN %[1]s <= 0 THEN 'critical' WHEN %[1]s <= min_stock THEN 'low' ELSE 'normal' END`, qty)
}

func scanProduct(s scanner, p *models.Product) error {
	return s.Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &p.MinStock, &p.Status, &p.IsCompound,
		&p.RequiresKitchen, &p.UnitBase, &p.CostPerUnit, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *productRepository) CreateProduct(ctx context.Context, product *models.Product) (int64, error) {
	query := `INSERT INTO products
	            (name, category, price, quantity, min_stock, status, is_compound,
	             requires_kitchen, unit_base, cost_per_unit, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	          RETURNING id`
	now := time.Now()
	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		product.Name, product.Category, product.Price, product.Quantity, product.MinStock,
		models.DeriveStockStatus(product.Quantity, product.MinStock), product.IsCompound,
		product.RequiresKitchen, product.UnitBase, product.CostPerUnit, now,
	).Scan(&product.ID)
	if err != nil {
		return 0, mapPQError(err, fmt.Sprintf("creating product '%s'", product.Name))
	}
	product.Status = models.DeriveStockStatus(product.Quantity, product.MinStock)
	product.CreatedAt, product.UpdatedAt = now, now
	return product.ID, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p := &models.Product{}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := scanProduct(executor(ctx, r.db).QueryRowContext(ctx, query, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product by ID %d: %v", ErrDatabaseError, id, err)
	}
	return p, nil
}

func (r *productRepository) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Product, error) {
	result := make(map[int64]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%w: getting products by IDs: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &models.Product{}
		if err := scanProduct(rows, p); err != nil {
			return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating products: %v", ErrDatabaseError, err)
	}
	return result, nil
}

func (r *productRepository) GetProducts(ctx context.Context, filters models.ProductFilters) ([]models.Product, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + productColumns + ` FROM products`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argCount))
		args = append(args, *filters.Category)
		argCount++
	}
	if filters.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filters.Status)
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argCount))
		args = append(args, "%"+*filters.Search+"%")
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY name")

	rows, err := executor(ctx, r.db).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating products: %v", ErrDatabaseError, err)
	}
	return products, nil
}

// UpdateProduct writes catalog fields. Quantity is never touched here; status is re-derived
// because min_stock may have changed.
func (r *productRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `UPDATE products
	          SET name = $1, category = $2, price = $3, min_stock = $4, is_compound = $5,
	              requires_kitchen = $6, unit_base = $7, cost_per_unit = $8, updated_at = $9,
	              status = CASE WHEN quantity <= 0 THEN 'critical' WHEN quantity <= $4 THEN 'low' ELSE 'normal' END
	          WHERE id = $10
	          RETURNING quantity, status, updated_at`
	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		product.Name, product.Category, product.Price, product.MinStock, product.IsCompound,
		product.RequiresKitchen, product.UnitBase, product.CostPerUnit, time.Now(), product.ID,
	).Scan(&product.Quantity, &product.Status, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return mapPQError(err, fmt.Sprintf("updating product %d", product.ID))
	}
	return nil
}

func (r *productRepository) DeleteProduct(ctx context.Context, id int64) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("deleting product %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for product deletion %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) AdjustQuantity(ctx context.Context, id int64, delta decimal.Decimal) (*models.StockChange, error) {
	// prev locks the row so the previous value returned is the one the update applied to.
	query := `WITH prev AS (
	              SELECT id, quantity FROM products WHERE id = $2 FOR UPDATE
	          )
	          UPDATE products p
	          SET quantity = GREATEST(p.quantity + $1, 0),
	              status = ` + statusCase("p.quantity + $1") + `,
	              updated_at = $3
	          FROM prev
	          WHERE p.id = prev.id
	          RETURNING prev.quantity, p.quantity, p.status`

	change := &models.StockChange{ProductID: id}
	err := executor(ctx, r.db).QueryRowContext(ctx, query, delta, id, time.Now()).
		Scan(&change.PreviousQuantity, &change.NewQuantity, &change.NewStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: adjusting quantity for product %d: %v", ErrDatabaseError, id, err)
	}
	change.Clamped = change.PreviousQuantity.Add(delta).Sign() < 0
	return change, nil
}

func (r *productRepository) SetQuantity(ctx context.Context, id int64, quantity decimal.Decimal, adj *models.StockAdjustment) (*models.StockChange, error) {
	change := &models.StockChange{ProductID: id}
	err := withTx(ctx, r.db, func(ctx context.Context, exec SQLExecutor) error {
		err := exec.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = $1 FOR UPDATE`, id).
			Scan(&change.PreviousQuantity)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: locking product %d: %v", ErrDatabaseError, id, err)
		}

		now := time.Now()
		err = exec.QueryRowContext(ctx,
			`UPDATE products SET quantity = $1, status = `+statusCase("$1::numeric")+`, updated_at = $2
			 WHERE id = $3 RETURNING quantity, status`,
			quantity, now, id,
		).Scan(&change.NewQuantity, &change.NewStatus)
		if err != nil {
			return fmt.Errorf("%w: setting quantity for product %d: %v", ErrDatabaseError, id, err)
		}

		adj.ProductID = id
		adj.PreviousQuantity = change.PreviousQuantity
		adj.NewQuantity = change.NewQuantity
		adj.CreatedAt = now
		err = exec.QueryRowContext(ctx,
			`INSERT INTO stock_adjustments (product_id, previous_quantity, new_quantity, reason, notes, staff_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			adj.ProductID, adj.PreviousQuantity, adj.NewQuantity, adj.Reason, adj.Notes, adj.StaffID, adj.CreatedAt,
		).Scan(&adj.ID)
		if err != nil {
			return mapPQError(err, fmt.Sprintf("recording stock adjustment for product %d", id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

func (r *productRepository) GetAdjustments(ctx context.Context, productID int64) ([]models.StockAdjustment, error) {
	query := `SELECT id, product_id, previous_quantity, new_quantity, reason, notes, staff_id, created_at
	          FROM stock_adjustments WHERE product_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := executor(ctx, r.db).QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting adjustments for product %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	adjustments := []models.StockAdjustment{}
	for rows.Next() {
		var a models.StockAdjustment
		if err := rows.Scan(&a.ID, &a.ProductID, &a.PreviousQuantity, &a.NewQuantity, &a.Reason, &a.Notes, &a.StaffID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning stock adjustment: %v", ErrDatabaseError, err)
		}
		adjustments = append(adjustments, a)
	}
	return adjustments, rows.Err()
}
