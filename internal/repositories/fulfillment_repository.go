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
)

// FulfillmentRepository persists department work tickets.
type FulfillmentRepository interface {
	CreateFulfillmentOrder(ctx context.Context, order *models.FulfillmentOrder) (int64, error)
	GetFulfillmentOrderByID(ctx context.Context, id int64) (*models.FulfillmentOrder, error)
	GetFulfillmentOrders(ctx context.Context, filters models.FulfillmentFilters) ([]models.FulfillmentOrder, error)
	// UpdateFulfillmentStatus moves an order from one status to another. ErrConflict when the
	// order is no longer in from.
	UpdateFulfillmentStatus(ctx context.Context, id int64, from, to models.FulfillmentStatus, at time.Time) error
	// DeleteFulfillmentOrder removes the order and its items if its status is one of allowedFrom.
	DeleteFulfillmentOrder(ctx context.Context, id int64, allowedFrom []models.FulfillmentStatus) error
}

type fulfillmentRepository struct {
	db *sql.DB
}

func NewFulfillmentRepository(db *sql.DB) FulfillmentRepository {
	return &fulfillmentRepository{db: db}
}

const fulfillmentColumns = `id, sale_id, department, status, staff_id, table_number, created_at, updated_at`

func scanFulfillmentOrder(s scanner, o *models.FulfillmentOrder) error {
	return s.Scan(&o.ID, &o.SaleID, &o.Department, &o.Status, &o.StaffID, &o.TableNumber, &o.CreatedAt, &o.UpdatedAt)
}

func statusStrings(statuses []models.FulfillmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *fulfillmentRepository) CreateFulfillmentOrder(ctx context.Context, order *models.FulfillmentOrder) (int64, error) {
	err := withTx(ctx, r.db, func(ctx context.Context, exec SQLExecutor) error {
		now := time.Now()
		order.CreatedAt, order.UpdatedAt = now, now
		err := exec.QueryRowContext(ctx,
			`INSERT INTO fulfillment_orders (sale_id, department, status, staff_id, table_number, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
			order.SaleID, order.Department, order.Status, order.StaffID, order.TableNumber, now,
		).Scan(&order.ID)
		if err != nil {
			return mapPQError(err, fmt.Sprintf("creating %s order for sale %d", order.Department, order.SaleID))
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err := exec.QueryRowContext(ctx,
				`INSERT INTO fulfillment_items (order_id, sale_item_id, product_id, product_name, quantity)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				item.OrderID, item.SaleItemID, item.ProductID, item.ProductName, item.Quantity,
			).Scan(&item.ID)
			if err != nil {
				return mapPQError(err, fmt.Sprintf("creating fulfillment item for order %d", order.ID))
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *fulfillmentRepository) GetFulfillmentOrderByID(ctx context.Context, id int64) (*models.FulfillmentOrder, error) {
	order := &models.FulfillmentOrder{}
	exec := executor(ctx, r.db)
	err := scanFulfillmentOrder(exec.QueryRowContext(ctx, `SELECT `+fulfillmentColumns+` FROM fulfillment_orders WHERE id = $1`, id), order)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting fulfillment order %d: %v", ErrDatabaseError, id, err)
	}
	items, err := r.getItems(ctx, exec, []int64{id})
	if err != nil {
		return nil, err
	}
	order.Items = items[id]
	if order.Items == nil {
		order.Items = []models.FulfillmentItem{}
	}
	return order, nil
}

func (r *fulfillmentRepository) getItems(ctx context.Context, exec SQLExecutor, orderIDs []int64) (map[int64][]models.FulfillmentItem, error) {
	rows, err := exec.QueryContext(ctx,
		`SELECT id, order_id, sale_item_id, product_id, product_name, quantity
		 FROM fulfillment_items WHERE order_id = ANY($1) ORDER BY id`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: getting fulfillment items: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	byOrder := make(map[int64][]models.FulfillmentItem, len(orderIDs))
	for rows.Next() {
		var item models.FulfillmentItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.SaleItemID, &item.ProductID, &item.ProductName, &item.Quantity); err != nil {
			return nil, fmt.Errorf("%w: scanning fulfillment item: %v", ErrDatabaseError, err)
		}
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	return byOrder, rows.Err()
}

func (r *fulfillmentRepository) GetFulfillmentOrders(ctx context.Context, filters models.FulfillmentFilters) ([]models.FulfillmentOrder, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + fulfillmentColumns + ` FROM fulfillment_orders`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if filters.Department != nil {
		conditions = append(conditions, fmt.Sprintf("department = $%d", argCount))
		args = append(args, *filters.Department)
		argCount++
	}
	if len(filters.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argCount))
		args = append(args, pq.Array(statusStrings(filters.Statuses)))
		argCount++
	}
	if filters.SaleID != nil {
		conditions = append(conditions, fmt.Sprintf("sale_id = $%d", argCount))
		args = append(args, *filters.SaleID)
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY created_at, id")

	exec := executor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: getting fulfillment orders: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	orders := []models.FulfillmentOrder{}
	var ids []int64
	for rows.Next() {
		var o models.FulfillmentOrder
		if err := scanFulfillmentOrder(rows, &o); err != nil {
			return nil, fmt.Errorf("%w: scanning fulfillment order: %v", ErrDatabaseError, err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating fulfillment orders: %v", ErrDatabaseError, err)
	}
	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.getItems(ctx, exec, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.FulfillmentItem{}
		}
	}
	return orders, nil
}

func (r *fulfillmentRepository) UpdateFulfillmentStatus(ctx context.Context, id int64, from, to models.FulfillmentStatus, at time.Time) error {
	exec := executor(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE fulfillment_orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`, to, at, id, from)
	if err != nil {
		return fmt.Errorf("%w: updating fulfillment order %d: %v", ErrDatabaseError, id, err)
	}
	return r.checkConditional(ctx, exec, result, id)
}

func (r *fulfillmentRepository) DeleteFulfillmentOrder(ctx context.Context, id int64, allowedFrom []models.FulfillmentStatus) error {
	exec := executor(ctx, r.db)
	// fulfillment_items cascade with the order.
	result, err := exec.ExecContext(ctx,
		`DELETE FROM fulfillment_orders WHERE id = $1 AND status = ANY($2)`, id, pq.Array(statusStrings(allowedFrom)))
	if err != nil {
		return fmt.Errorf("%w: deleting fulfillment order %d: %v", ErrDatabaseError, id, err)
	}
	return r.checkConditional(ctx, exec, result, id)
}

// checkConditional tells a missing order apart from one in the wrong state.
func (r *fulfillmentRepository) checkConditional(ctx context.Context, exec SQLExecutor, result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for fulfillment order %d: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected > 0 {
		return nil
	}
	var exists bool
	if err := exec.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM fulfillment_orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%w: checking fulfillment order %d: %v", ErrDatabaseError, id, err)
	}
	if !exists {
		return ErrNotFound
	}
	return fmt.Errorf("%w: fulfillment order %d changed status concurrently", ErrConflict, id)
}
