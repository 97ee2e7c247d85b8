package router

import (
	"net/http"

	"venue_pos_backend/internal/handlers"
	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/repositories"
	"venue_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Options tunes the services built by Setup.
type Options struct {
	StockFanoutLimit int
}

// Setup builds the services over repos and registers every route under /api/v1.
// The notifier is owned by the caller, which closes it on shutdown.
func Setup(engine *gin.Engine, repos repositories.Set, notifier services.Notifier, opts Options) {
	ledger := services.NewStockLedger(repos.Products)
	recipes := services.NewRecipeGraph(repos.Recipes, repos.Products)
	checker := services.NewAvailabilityChecker(repos.Products, recipes)
	producer := services.NewProducer(repos.Tx, checker, ledger)
	queue := services.NewFulfillmentQueue(repos.Fulfillment, notifier)
	processor := services.NewSaleProcessor(repos.Sales, checker, ledger, queue, opts.StockFanoutLimit)
	payments := services.NewPaymentLedger(repos.Sales)
	reconciler := services.NewCashSessionReconciler(repos.Tx, repos.CashSessions, repos.Sales)
	authService := services.NewAuthService(repos.Users)
	notifications := services.NewNotificationService(repos.Notifications)

	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(ledger, recipes, producer)
	saleHandler := handlers.NewSaleHandler(processor, checker, payments)
	paymentHandler := handlers.NewPaymentHandler(payments)
	fulfillmentHandler := handlers.NewFulfillmentHandler(queue)
	cashSessionHandler := handlers.NewCashSessionHandler(reconciler)
	notificationHandler := handlers.NewNotificationHandler(notifications)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := engine.Group("/api/v1")
	SetupPublicAuthRoutes(apiV1.Group("/auth"), authHandler)

	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupAuthenticatedAuthRoutes(authenticated.Group("/auth"), authHandler)
		SetupProductRoutes(authenticated, productHandler)
		SetupSaleRoutes(authenticated, saleHandler)
		SetupPaymentRoutes(authenticated, paymentHandler)
		SetupFulfillmentRoutes(authenticated, fulfillmentHandler)
		SetupCashSessionRoutes(authenticated, cashSessionHandler)
		SetupNotificationRoutes(authenticated, notificationHandler)
	}
}
