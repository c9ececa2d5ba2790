package routes

import (
	"qrdine-api/handlers"
	"qrdine-api/middleware"
	"qrdine-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", handlers.Register)
		public.POST("/auth/login", handlers.Login)

		// Restaurants & menus (no auth needed — this is the QR landing page)
		public.GET("/restaurants", handlers.ListRestaurants)
		public.GET("/restaurants/:id/menu", handlers.GetMenu)
		public.GET("/restaurants/:id/qr", handlers.GetMenuQR)

		// State machine info (great for docs/Postman)
		public.GET("/state-machine", handlers.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/profile", handlers.GetProfile)

		// WhatsApp bridge intake (any authenticated bridge account)
		auth.POST("/whatsapp/orders", handlers.WhatsAppIntake)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", handlers.Checkout)
		customer.GET("/orders", handlers.GetMyOrders)
		customer.GET("/orders/:id", handlers.GetOrderDetail)
	}

	// ── Kitchen / restaurant owner routes ──────────────────────────
	kitchen := r.Group("/api/kitchen")
	kitchen.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleKitchen))
	{
		// Restaurant & menu management
		kitchen.POST("/restaurant", handlers.CreateRestaurant)
		kitchen.GET("/restaurant", handlers.GetMyRestaurant)
		kitchen.POST("/dishes", handlers.AddDish)
		kitchen.PUT("/dishes/:dishId", handlers.UpdateDish)
		kitchen.DELETE("/dishes/:dishId", handlers.DeleteDish)

		// Order queue
		kitchen.GET("/orders", handlers.GetKitchenQueue)
		kitchen.GET("/orders/feed", handlers.GetKitchenFeed)
		kitchen.GET("/orders/whatsapp", handlers.GetWhatsAppFeed)
		kitchen.PUT("/orders/:id/status", handlers.UpdateOrderStatus)
		kitchen.PUT("/orders/:id/payment", handlers.SetOrderPaymentStatus)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", handlers.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", handlers.AdminForceOrderStatus)
		admin.DELETE("/orders/:id", handlers.AdminDeleteOrder)
		admin.POST("/orders/:id/bill", handlers.GenerateBill)
		admin.PUT("/auto-complete", handlers.SetAutoCompletion)
		admin.POST("/projections/rebuild", handlers.RebuildProjections)
		admin.GET("/dishes/:dishId/statistics", handlers.GetDishStatistics)
	}
}
