package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_pos_backend/internal/models"

	"github.com/shopspring/decimal"
)

// SaleRepository defines the interface for sale-related database operations.
type SaleRepository interface {
	// CreateSale inserts the header and every item in one transaction, filling in ids.
	CreateSale(ctx context.Context, sale *models.Sale) (int64, error)
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) // sales, total count, error
	// MarkSaleCollected moves a pending sale to collected. ErrConflict when it is not pending.
	MarkSaleCollected(ctx context.Context, id int64, method models.PaymentMethod, at time.Time) error
	GetPendingSales(ctx context.Context) ([]models.Sale, error)
	// SumCollectedByMethod totals sales whose collected_at falls in [from, to].
	SumCollectedByMethod(ctx context.Context, from, to time.Time) (models.CollectedTotals, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository.
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleColumns = `id, total_amount, payment_method, payment_status, concept, table_number, staff_id, created_at, collected_at`

func scanSale(s scanner, sale *models.Sale) error {
	return s.Scan(
		&sale.ID, &sale.TotalAmount, &sale.PaymentMethod, &sale.PaymentStatus, &sale.Concept,
		&sale.TableNumber, &sale.StaffID, &sale.CreatedAt, &sale.CollectedAt,
	)
}

func (r *saleRepository) CreateSale(ctx context.Context, sale *models.Sale) (int64, error) {
	err := withTx(ctx, r.db, func(ctx context.Context, exec SQLExecutor) error {
		if sale.CreatedAt.IsZero() {
			sale.CreatedAt = time.Now()
		}
		err := exec.QueryRowContext(ctx,
			`INSERT INTO sales (total_amount, payment_method, payment_status, concept, table_number, staff_id, created_at, collected_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			sale.TotalAmount, sale.PaymentMethod, sale.PaymentStatus, sale.Concept, sale.TableNumber,
			sale.StaffID, sale.CreatedAt, sale.CollectedAt,
		).Scan(&sale.ID)
		if err != nil {
			return mapPQError(err, "creating sale")
		}

		for i := range sale.Items {
			item := &sale.Items[i]
			item.SaleID = sale.ID
			err := exec.QueryRowContext(ctx,
				`INSERT INTO sale_items (sale_id, product_id, product_name, quantity, unit_price, line_total)
				 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				item.SaleID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.LineTotal,
			).Scan(&item.ID)
			if err != nil {
				return mapPQError(err, fmt.Sprintf("creating sale item for product %d", item.ProductID))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sale.ID, nil
}

func (r *saleRepository) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	sale := &models.Sale{}
	exec := executor(ctx, r.db)
	err := scanSale(exec.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id), sale)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting sale by ID %d: %v", ErrDatabaseError, id, err)
	}
	if sale.Items, err = r.getSaleItems(ctx, exec, id); err != nil {
		return nil, err
	}
	return sale, nil
}

func (r *saleRepository) getSaleItems(ctx context.Context, exec SQLExecutor, saleID int64) ([]models.SaleItem, error) {
	rows, err := exec.QueryContext(ctx,
		`SELECT id, sale_id, product_id, product_name, quantity, unit_price, line_total
		 FROM sale_items WHERE sale_id = $1 ORDER BY id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("%w: getting items for sale %d: %v", ErrDatabaseError, saleID, err)
	}
	defer rows.Close()

	items := []models.SaleItem{}
	for rows.Next() {
		var item models.SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("%w: scanning sale item: %v", ErrDatabaseError, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *saleRepository) GetSales(ctx context.Context, filters models.SaleFilters) ([]models.Sale, int, error) {
	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.StaffID != nil {
		conditions = append(conditions, fmt.Sprintf("staff_id = $%d", argCount))
		args = append(args, *filters.StaffID)
		argCount++
	}
	if filters.TableNumber != nil && *filters.TableNumber != "" {
		conditions = append(conditions, fmt.Sprintf("table_number = $%d", argCount))
		args = append(args, *filters.TableNumber)
		argCount++
	}
	if filters.PaymentStatus != nil {
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", argCount))
		args = append(args, *filters.PaymentStatus)
		argCount++
	}
	if filters.Date != nil && *filters.Date != "" {
		conditions = append(conditions, fmt.Sprintf("DATE(created_at) = $%d", argCount))
		args = append(args, *filters.Date)
		argCount++
	}
	var where strings.Builder
	if len(conditions) > 0 {
		where.WriteString(" WHERE ")
		where.WriteString(strings.Join(conditions, " AND "))
	}

	// counted separately so a page past the end still reports the filtered total
	exec := executor(ctx, r.db)
	totalCount := 0
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`+where.String(), args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("%w: counting sales: %v", ErrDatabaseError, err)
	}

	query := `SELECT ` + saleColumns + ` FROM sales` + where.String() +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: getting sales: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		var sale models.Sale
		if err := scanSale(rows, &sale); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning sale: %v", ErrDatabaseError, err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating sales: %v", ErrDatabaseError, err)
	}
	return sales, totalCount, nil
}

func (r *saleRepository) MarkSaleCollected(ctx context.Context, id int64, method models.PaymentMethod, at time.Time) error {
	exec := executor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE sales SET payment_status = $1, payment_method = $2, collected_at = $3
		 WHERE id = $4 AND payment_status = $5`,
		models.PaymentCollected, method, at, id, models.PaymentPending,
	)
	if err != nil {
		return fmt.Errorf("%w: collecting sale %d: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for sale %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected > 0 {
		return nil
	}

	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: checking sale %d: %v", ErrDatabaseError, id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: sale %d is not pending", ErrConflict, id)
}

func (r *saleRepository) GetPendingSales(ctx context.Context) ([]models.Sale, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE payment_status = $1 ORDER BY created_at, id`, models.PaymentPending)
	if err != nil {
		return nil, fmt.Errorf("%w: getting pending sales: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	sales := []models.Sale{}
	for rows.Next() {
		var sale models.Sale
		if err := scanSale(rows, &sale); err != nil {
			return nil, fmt.Errorf("%w: scanning sale: %v", ErrDatabaseError, err)
		}
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}

func (r *saleRepository) SumCollectedByMethod(ctx context.Context, from, to time.Time) (models.CollectedTotals, error) {
	totals := models.CollectedTotals{Cash: decimal.Zero, Transfer: decimal.Zero, QR: decimal.Zero}
	rows, err := executor(ctx, r.db).QueryContext(ctx,
		`SELECT payment_method, COALESCE(SUM(total_amount), 0)
		 FROM sales
		 WHERE payment_status = $1 AND collected_at >= $2 AND collected_at <= $3
		 GROUP BY payment_method`,
		models.PaymentCollected, from, to,
	)
	if err != nil {
		return totals, fmt.Errorf("%w: summing collected sales: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var method models.PaymentMethod
		var sum decimal.Decimal
		if err := rows.Scan(&method, &sum); err != nil {
			return totals, fmt.Errorf("%w: scanning collected sum: %v", ErrDatabaseError, err)
		}
		switch method {
		case models.PaymentCash:
			totals.Cash = sum
		case models.PaymentTransfer:
			totals.Transfer = sum
		case models.PaymentQR:
			totals.QR = sum
		}
	}
	return totals, rows.Err()
}
