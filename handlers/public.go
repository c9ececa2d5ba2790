package handlers

import (
	"net/http"
	"os"

	"qrdine-api/config"
	"qrdine-api/models"
	"qrdine-api/statemachine"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// ListRestaurants returns all restaurants (public)
func ListRestaurants(c *gin.Context) {
	var restaurants []models.Restaurant
	query := config.DB

	if cuisine := c.Query("cuisine"); cuisine != "" {
		query = query.Where("cuisine LIKE ?", "%"+cuisine+"%")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	if open := c.Query("open"); open == "true" {
		query = query.Where("is_open = ?", true)
	}

	query.Find(&restaurants)
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetMenu returns the visible menu for a restaurant (public, QR landing)
func GetMenu(c *gin.Context) {
	restaurantID := c.Param("id")
	var restaurant models.Restaurant
	if err := config.DB.First(&restaurant, restaurantID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}

	var dishes []models.Dish
	query := config.DB.Where("restaurant_id = ?", restaurantID)

	// Visibility gates — hidden dishes never mutate order history
	if c.Query("all") != "true" {
		query = query.Where("in_stock = ? AND available_today = ?", true, true)
	}
	if taste := c.Query("taste"); taste != "" {
		query = query.Where("taste = ?", taste)
	}
	query.Find(&dishes)

	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(dishes),
		"menu":       dishes,
	})
}

// GetMenuQR serves the PNG QR code customers scan at the table
func GetMenuQR(c *gin.Context) {
	restaurantID := c.Param("id")
	var restaurant models.Restaurant
	if err := config.DB.First(&restaurant, restaurantID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}

	base := os.Getenv("PUBLIC_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	png, err := qrcode.Encode(base+"/api/restaurants/"+restaurantID+"/menu", qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GetStateMachineInfo returns the full state machine for informational purposes
func GetStateMachineInfo(c *gin.Context) {
	var info []gin.H
	for _, t := range statemachine.GetAllTransitions() {
		info = append(info, gin.H{"from": t.From, "to": t.To, "actor": t.Actor})
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine": info,
		"terminal_states": []models.OrderStatus{
			models.StatusCompleted, models.StatusCancelled, models.StatusNoShow,
			models.StatusRejected, models.StatusDelivered,
		},
		"description": "QR-Dine Order Lifecycle State Machine",
	})
}
