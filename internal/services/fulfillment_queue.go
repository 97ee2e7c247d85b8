package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"

	"github.com/rs/zerolog/log"
)

// FulfillmentQueue runs the kitchen and bar ticket state machine.
type FulfillmentQueue interface {
	// CreateForSale routes the sale's lines to the departments that prepare them. Each
	// department order is created independently; failures come back as warnings.
	CreateForSale(ctx context.Context, sale *models.Sale, products map[int64]*models.Product) ([]models.FulfillmentOrder, []string)
	Get(ctx context.Context, id int64) (*models.FulfillmentOrder, error)
	List(ctx context.Context, filters models.FulfillmentFilters) ([]models.FulfillmentOrder, error)

	StartPreparing(ctx context.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error)
	MarkReady(ctx context.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error)
	MarkDelivered(ctx context.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error)
	// Cancel deletes the order. Stock already deducted for the sale stays deducted.
	Cancel(ctx context.Context, id int64, actor models.Actor) error
}

type fulfillmentQueue struct {
	repo     repositories.FulfillmentRepository
	notifier Notifier
	now      func() time.Time
}

func NewFulfillmentQueue(repo repositories.FulfillmentRepository, notifier Notifier) FulfillmentQueue {
	return &fulfillmentQueue{repo: repo, notifier: notifier, now: time.Now}
}

func isDepartmentStaff(actor models.Actor, dept models.Department) bool {
	return actor.Role == dept.StaffRole()
}

func isPlacingStaff(actor models.Actor, order *models.FulfillmentOrder) bool {
	return order.StaffID != nil && *order.StaffID == actor.UserID
}

func (q *fulfillmentQueue) CreateForSale(ctx context.Context, sale *models.Sale, products map[int64]*models.Product) ([]models.FulfillmentOrder, []string) {
	byDept := map[models.Department][]models.FulfillmentItem{}
	for _, item := range sale.Items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		fi := models.FulfillmentItem{
			SaleItemID:  item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
		}
		if product.RequiresKitchen {
			byDept[models.DepartmentKitchen] = append(byDept[models.DepartmentKitchen], fi)
		}
		if product.RequiresBar() {
			byDept[models.DepartmentBar] = append(byDept[models.DepartmentBar], fi)
		}
	}

	var orders []models.FulfillmentOrder
	var warnings []string
	for _, dept := range []models.Department{models.DepartmentKitchen, models.DepartmentBar} {
		items := byDept[dept]
		if len(items) == 0 {
			continue
		}
		order := &models.FulfillmentOrder{
			SaleID:      sale.ID,
			Department:  dept,
			Status:      models.FulfillmentPending,
			StaffID:     sale.StaffID,
			TableNumber: sale.TableNumber,
			Items:       items,
		}
		if _, err := q.repo.CreateFulfillmentOrder(ctx, order); err != nil {
			log.Error().Err(err).Int64("sale_id", sale.ID).Str("department", string(dept)).Msg("Failed to create fulfillment order")
			warnings = append(warnings, fmt.Sprintf("%s order for sale %d was not created", dept, sale.ID))
			continue
		}
		orders = append(orders, *order)

		msg := models.Notification{
			TargetRole:        roleTarget(dept.StaffRole()),
			Message:           fmt.Sprintf("New %s order #%d%s: %s", dept, order.ID, tableSuffix(order.TableNumber), summarizeItems(items)),
			RelatedEntityType: "fulfillment_order",
			RelatedEntityID:   order.ID,
		}
		if _, err := q.notifier.Publish(ctx, msg); err != nil {
			log.Warn().Err(err).Int64("order_id", order.ID).Msg("Department notification not queued")
			warnings = append(warnings, fmt.Sprintf("%s was not notified of order %d", dept.StaffRole(), order.ID))
		}
	}
	return orders, warnings
}

func tableSuffix(table *string) string {
	if table == nil || *table == "" {
		return ""
	}
	return " for table " + *table
}

func summarizeItems(items []models.FulfillmentItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s x%s", item.ProductName, item.Quantity)
	}
	return strings.Join(parts, ", ")
}

func (q *fulfillmentQueue) Get(ctx context.Context, id int64) (*models.FulfillmentOrder, error) {
	order, err := q.repo.GetFulfillmentOrderByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "fulfillment order", id)
	}
	return order, nil
}

func (q *fulfillmentQueue) List(ctx context.Context, filters models.FulfillmentFilters) ([]models.FulfillmentOrder, error) {
	if filters.Department != nil && !filters.Department.IsValid() {
		return nil, validationf("unknown department '%s'", *filters.Department)
	}
	for _, s := range filters.Statuses {
		if !s.IsValid() {
			return nil, validationf("unknown status '%s'", s)
		}
	}
	return q.repo.GetFulfillmentOrders(ctx, filters)
}

// advance moves the order one step along its only path after guard approves the actor.
func (q *fulfillmentQueue) advance(ctx context.Context, id int64, actor models.Actor, from models.FulfillmentStatus, guard func(*models.FulfillmentOrder) bool) (*models.FulfillmentOrder, error) {
	order, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !guard(order) {
		return nil, fmt.Errorf("%w: %s may not move %s order %d", ErrAuthorizationDenied, actor.Role, order.Department, id)
	}
	to, ok := from.Next()
	if !ok || order.Status != from {
		return nil, fmt.Errorf("%w: order %d is %s, expected %s", ErrInvalidTransition, id, order.Status, from)
	}

	at := q.now()
	if err := q.repo.UpdateFulfillmentStatus(ctx, id, from, to, at); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("%w: order %d changed concurrently", ErrInvalidTransition, id)
		}
		return nil, notFoundOr(err, "fulfillment order", id)
	}
	order.Status = to
	order.UpdatedAt = at
	log.Info().Int64("order_id", id).Str("from", string(from)).Str("to", string(to)).Int64("actor_id", actor.UserID).Msg("Fulfillment order advanced")
	return order, nil
}

func (q *fulfillmentQueue) StartPreparing(ctx context.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error) {
	return q.advance(ctx, id, actor, models.FulfillmentPending, func(o *models.FulfillmentOrder) bool {
		return isDepartmentStaff(actor, o.Department)
	})
}

func (q *fulfillmentQueue) MarkReady(ctx context.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error) {
	order, err := q.advance(ctx, id, actor, models.FulfillmentInProgress, func(o *models.FulfillmentOrder) bool {
		return isDepartmentStaff(actor, o.Department)
	})
	if err != nil {
		return nil, err
	}

	msg := models.Notification{
		TargetRole:        roleTarget(models.RoleWaiter),
		Message:           fmt.Sprintf("%s order #%d%s is ready", order.Department, order.ID, tableSuffix(order.TableNumber)),
		RelatedEntityType: "fulfillment_order",
		RelatedEntityID:   order.ID,
	}
	if _, err := q.notifier.Publish(ctx, msg); err != nil {
		log.Warn().Err(err).Int64("order_id", order.ID).Msg("Ready notification not queued")
	}
	return order, nil
}

func (q *fulfillmentQueue) MarkDelivered(ctx context.Context, id int64, actor models.Actor) (*models.FulfillmentOrder, error) {
	return q.advance(ctx, id, actor, models.FulfillmentReady, func(o *models.FulfillmentOrder) bool {
		return isPlacingStaff(actor, o)
	})
}

func (q *fulfillmentQueue) Cancel(ctx context.Context, id int64, actor models.Actor) error {
	order, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !isDepartmentStaff(actor, order.Department) && !isPlacingStaff(actor, order) {
		return fmt.Errorf("%w: %s may not cancel %s order %d", ErrAuthorizationDenied, actor.Role, order.Department, id)
	}
	if !order.Status.Cancellable() {
		return fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, id, order.Status)
	}

	allowed := []models.FulfillmentStatus{models.FulfillmentPending, models.FulfillmentInProgress, models.FulfillmentReady}
	if err := q.repo.DeleteFulfillmentOrder(ctx, id, allowed); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return fmt.Errorf("%w: order %d was delivered concurrently", ErrInvalidTransition, id)
		}
		return notFoundOr(err, "fulfillment order", id)
	}
	log.Info().Int64("order_id", id).Int64("sale_id", order.SaleID).Int64("actor_id", actor.UserID).Msg("Fulfillment order cancelled")
	return nil
}
