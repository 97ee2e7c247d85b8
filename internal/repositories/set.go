package repositories

import "database/sql"

// Set bundles one implementation of every repository the services depend on.
type Set struct {
	Tx            Transactor
	Products      ProductRepository
	Recipes       RecipeRepository
	Sales         SaleRepository
	Fulfillment   FulfillmentRepository
	CashSessions  CashSessionRepository
	Notifications NotificationRepository
	Users         UserRepository
}

// NewPostgresSet builds the PostgreSQL-backed repositories over db.
func NewPostgresSet(db *sql.DB) Set {
	return Set{
		Tx:            NewSQLTransactor(db),
		Products:      NewProductRepository(db),
		Recipes:       NewRecipeRepository(db),
		Sales:         NewSaleRepository(db),
		Fulfillment:   NewFulfillmentRepository(db),
		CashSessions:  NewCashSessionRepository(db),
		Notifications: NewNotificationRepository(db),
		Users:         NewUserRepository(db),
	}
}
