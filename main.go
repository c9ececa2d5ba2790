package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"qrdine-api/clock"
	"qrdine-api/config"
	"qrdine-api/handlers"
	"qrdine-api/lifecycle"
	"qrdine-api/projector"
	"qrdine-api/routes"
	"qrdine-api/scheduler"

	"github.com/gin-gonic/gin"
)

func main() {
	// Set Gin mode
	mode := os.Getenv("GIN_MODE")
	if mode == "" {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize stores
	config.InitDB()
	config.InitRedis()

	// Wire the core: clock → projector → lifecycle → scheduler
	clk := clock.Real()

	var publisher projector.EventPublisher
	if broker := config.KafkaBroker(); broker != "" {
		publisher = projector.NewKafkaPublisher(broker)
		log.Println("✅ Order events publishing to", broker)
	}
	views := projector.New(config.Redis, config.DB, clk, publisher)
	orders := lifecycle.NewService(config.DB, clk, views)

	sched := scheduler.New(orders, clk, scheduler.DefaultPeriod)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	log.Println("✅ Auto-completion scheduler running")

	handlers.Init(orders, views, sched, clk)

	// Create Gin router with default middleware (logger + recovery)
	r := gin.Default()

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "QR-Dine Order Management API",
			"version": "1.0.0",
		})
	})

	// Welcome
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "🍽️ Welcome to the QR-Dine Order Management API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"customer", "kitchen", "admin"},
		})
	})

	// Register all routes
	routes.SetupRoutes(r)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("🚀 Server running on http://localhost:%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
