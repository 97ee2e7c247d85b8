package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"
)

func cloneFulfillment(o *models.FulfillmentOrder) models.FulfillmentOrder {
	out := *o
	out.Items = append([]models.FulfillmentItem{}, o.Items...)
	return out
}

func (s *Store) CreateFulfillmentOrder(ctx context.Context, order *models.FulfillmentOrder) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[order.SaleID]; !ok {
		return 0, fmt.Errorf("%w: sale %d does not exist", repositories.ErrForeignKey, order.SaleID)
	}
	now := time.Now()
	order.ID = s.nextID()
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.Items {
		order.Items[i].ID = s.nextID()
		order.Items[i].OrderID = order.ID
	}
	stored := cloneFulfillment(order)
	s.fulfillment[order.ID] = &stored
	return order.ID, nil
}

func (s *Store) GetFulfillmentOrderByID(ctx context.Context, id int64) (*models.FulfillmentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.fulfillment[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := cloneFulfillment(o)
	return &out, nil
}

func (s *Store) GetFulfillmentOrders(ctx context.Context, filters models.FulfillmentFilters) ([]models.FulfillmentOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := []models.FulfillmentOrder{}
	for _, o := range s.fulfillment {
		if filters.Department != nil && o.Department != *filters.Department {
			continue
		}
		if len(filters.Statuses) > 0 && !slices.Contains(filters.Statuses, o.Status) {
			continue
		}
		if filters.SaleID != nil && o.SaleID != *filters.SaleID {
			continue
		}
		orders = append(orders, cloneFulfillment(o))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (s *Store) UpdateFulfillmentStatus(ctx context.Context, id int64, from, to models.FulfillmentStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.fulfillment[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if o.Status != from {
		return fmt.Errorf("%w: fulfillment order %d is %s", repositories.ErrConflict, id, o.Status)
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}

func (s *Store) DeleteFulfillmentOrder(ctx context.Context, id int64, allowedFrom []models.FulfillmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.fulfillment[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if !slices.Contains(allowedFrom, o.Status) {
		return fmt.Errorf("%w: fulfillment order %d is %s", repositories.ErrConflict, id, o.Status)
	}
	delete(s.fulfillment, id)
	return nil
}
