// Package memory holds an in-process implementation of every repository interface.
// It backs STORAGE_DRIVER=memory and the service test suites.
package memory

import (
	"context"
	"sync"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"
)

// Store keeps all tables behind one mutex, so each repository call is atomic with
// respect to every other call.
type Store struct {
	mu sync.Mutex

	products    map[int64]*models.Product
	recipes     map[int64][]models.RecipeItem
	adjustments []models.StockAdjustment

	sales map[int64]*models.Sale

	fulfillment map[int64]*models.FulfillmentOrder

	sessions map[int64]*models.CashSession
	expenses []models.CashExpense

	notifications map[string]*models.Notification

	users     map[int64]*models.User
	passwords map[int64]string

	seq int64
}

var (
	_ repositories.ProductRepository      = (*Store)(nil)
	_ repositories.RecipeRepository       = (*Store)(nil)
	_ repositories.SaleRepository         = (*Store)(nil)
	_ repositories.FulfillmentRepository  = (*Store)(nil)
	_ repositories.CashSessionRepository  = (*Store)(nil)
	_ repositories.NotificationRepository = (*Store)(nil)
	_ repositories.UserRepository         = (*Store)(nil)
	_ repositories.Transactor             = (*Store)(nil)
)

func New() *Store {
	return &Store{
		products:      map[int64]*models.Product{},
		recipes:       map[int64][]models.RecipeItem{},
		sales:         map[int64]*models.Sale{},
		fulfillment:   map[int64]*models.FulfillmentOrder{},
		sessions:      map[int64]*models.CashSession{},
		notifications: map[string]*models.Notification{},
		users:         map[int64]*models.User{},
		passwords:     map[int64]string{},
	}
}

// WithinTx runs fn directly. Multi-row writes in this store are already single calls under the lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// nextID must be called with mu held.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Set exposes the store as every repository at once.
func (s *Store) Set() repositories.Set {
	return repositories.Set{
		Tx:            s,
		Products:      s,
		Recipes:       s,
		Sales:         s,
		Fulfillment:   s,
		CashSessions:  s,
		Notifications: s,
		Users:         s,
	}
}
