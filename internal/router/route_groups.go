package router

import (
	"venue_pos_backend/internal/handlers"
	"venue_pos_backend/internal/middleware"
	"venue_pos_backend/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	adminOnly     = middleware.RoleAuthMiddleware(models.RoleAdmin)
	saleTakers    = middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleWaiter, models.RoleCashier, models.RoleBartender)
	collectors    = middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleWaiter, models.RoleCashier)
	producers     = middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleKitchen, models.RoleBartender)
	drawerKeepers = middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleCashier)
)

func SetupPublicAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.POST("/login", authHandler.LoginUser)
}

func SetupAuthenticatedAuthRoutes(group *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	group.GET("/me", authHandler.GetCurrentUser)
	group.POST("/register", adminOnly, authHandler.RegisterUser)
}

// SetupProductRoutes sets up catalog, stock, recipe and production routes.
func SetupProductRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.ProductHandler) {
	productRoutes := authenticatedGroup.Group("/products")
	{
		productRoutes.GET("", h.GetProducts)
		productRoutes.GET("/:id", h.GetProduct)
		productRoutes.GET("/:id/recipe", h.GetRecipe)
		productRoutes.GET("/:id/adjustments", adminOnly, h.GetAdjustments)

		productRoutes.POST("", adminOnly, h.CreateProduct)
		productRoutes.PUT("/:id", adminOnly, h.UpdateProduct)
		productRoutes.DELETE("/:id", adminOnly, h.DeleteProduct)
		productRoutes.POST("/:id/restock", adminOnly, h.Restock)
		productRoutes.POST("/:id/adjustments", adminOnly, h.SetQuantity)
		productRoutes.PUT("/:id/recipe", adminOnly, h.SetRecipe)
		productRoutes.DELETE("/:id/recipe", adminOnly, h.ClearRecipe)

		productRoutes.POST("/:id/produce", producers, h.Produce)
	}
}

// SetupSaleRoutes sets up sale submission and lookup routes.
func SetupSaleRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.SaleHandler) {
	saleRoutes := authenticatedGroup.Group("/sales")
	{
		saleRoutes.POST("/check", saleTakers, h.CheckAvailability)
		saleRoutes.POST("", saleTakers, h.SubmitSale)
		saleRoutes.GET("", h.GetSales)
		saleRoutes.GET("/:id", h.GetSale)
		saleRoutes.POST("/:id/collect", collectors, h.CollectSale)
	}
}

func SetupPaymentRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.PaymentHandler) {
	paymentRoutes := authenticatedGroup.Group("/payments")
	paymentRoutes.Use(collectors)
	{
		paymentRoutes.POST("/collect-group", h.CollectGroup)
		paymentRoutes.GET("/pending-groups", h.GetPendingGroups)
	}
}

// SetupFulfillmentRoutes sets up the kitchen and bar queue. Per-order permissions are
// decided by the queue itself.
func SetupFulfillmentRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.FulfillmentHandler) {
	fulfillmentRoutes := authenticatedGroup.Group("/fulfillment-orders")
	{
		fulfillmentRoutes.GET("", h.GetFulfillmentOrders)
		fulfillmentRoutes.GET("/:id", h.GetFulfillmentOrder)
		fulfillmentRoutes.PATCH("/:id/start", h.StartPreparing)
		fulfillmentRoutes.PATCH("/:id/ready", h.MarkReady)
		fulfillmentRoutes.PATCH("/:id/deliver", h.MarkDelivered)
		fulfillmentRoutes.DELETE("/:id", h.CancelFulfillmentOrder)
	}
}

func SetupCashSessionRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.CashSessionHandler) {
	sessionRoutes := authenticatedGroup.Group("/cash-sessions")
	sessionRoutes.Use(drawerKeepers)
	{
		sessionRoutes.POST("", h.OpenSession)
		sessionRoutes.GET("/current", h.GetCurrentSession)
		sessionRoutes.GET("/:id", h.GetSession)
		sessionRoutes.POST("/:id/tickets", h.RecordTickets)
		sessionRoutes.GET("/:id/expenses", h.GetExpenses)
		sessionRoutes.POST("/:id/expenses", h.RecordExpense)
		sessionRoutes.POST("/:id/close", h.CloseSession)
	}
}

func SetupNotificationRoutes(authenticatedGroup *gin.RouterGroup, h *handlers.NotificationHandler) {
	notificationRoutes := authenticatedGroup.Group("/notifications")
	{
		notificationRoutes.GET("", h.GetNotifications)
		notificationRoutes.PATCH("/:id/read", h.MarkRead)
	}
}
