package handlers

import (
	"net/http"

	"qrdine-api/config"
	"qrdine-api/middleware"
	"qrdine-api/models"

	"github.com/gin-gonic/gin"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type CreateRestaurantRequest struct {
	Name        string `json:"name" binding:"required"`
	Cuisine     string `json:"cuisine"`
	Address     string `json:"address" binding:"required"`
	Description string `json:"description"`
}

// CreateRestaurant lets a kitchen-role user create their restaurant
func CreateRestaurant(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant := models.Restaurant{
		OwnerID:     ownerID,
		Name:        req.Name,
		Cuisine:     req.Cuisine,
		Address:     req.Address,
		Description: req.Description,
		IsOpen:      true,
	}
	if err := config.DB.Create(&restaurant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create restaurant"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// GetMyRestaurant fetches the restaurant owned by the logged-in user
func GetMyRestaurant(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}
	config.DB.Preload("Dishes").First(restaurant, restaurant.ID)
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// ── Dish Management ──────────────────────────────────────────────────────────

type DishRequest struct {
	Name            string              `json:"name" binding:"required"`
	Description     string              `json:"description"`
	Price           float64             `json:"price" binding:"min=0"`
	Taste           models.TasteProfile `json:"taste"`
	PrepTimeMinutes int                 `json:"prep_time_minutes"`
	MaxSpiceLevel   int                 `json:"max_spice_level"`
	MaxSaltLevel    int                 `json:"max_salt_level"`
	MaxSweetLevel   int                 `json:"max_sweet_level"`
	HasSaladAddOn   bool                `json:"has_salad_add_on"`
	InStock         *bool               `json:"in_stock"`
	AvailableToday  *bool               `json:"available_today"`
}

// AddDish creates a menu entry for the owner's restaurant
func AddDish(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}

	var req DishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taste := req.Taste
	if taste == "" {
		taste = models.TasteNormal
	}
	prep := req.PrepTimeMinutes
	if prep < 1 {
		prep = models.DefaultPrepMinutes
	}

	dish := models.Dish{
		RestaurantID:    restaurant.ID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Taste:           taste,
		PrepTimeMinutes: prep,
		MaxSpiceLevel:   req.MaxSpiceLevel,
		MaxSaltLevel:    req.MaxSaltLevel,
		MaxSweetLevel:   req.MaxSweetLevel,
		HasSaladAddOn:   req.HasSaladAddOn,
		InStock:         true,
		AvailableToday:  true,
	}
	if err := config.DB.Create(&dish).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create dish"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Dish added", "dish": dish})
}

// UpdateDish edits a dish; visibility flags gate the menu but never touch
// existing order history (snapshots are frozen at checkout)
func UpdateDish(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}

	var dish models.Dish
	if err := config.DB.First(&dish, c.Param("dishId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found"})
		return
	}
	if dish.RestaurantID != restaurant.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This dish does not belong to your restaurant"})
		return
	}

	var req DishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{
		"name":             req.Name,
		"description":      req.Description,
		"price":            req.Price,
		"max_spice_level":  req.MaxSpiceLevel,
		"max_salt_level":   req.MaxSaltLevel,
		"max_sweet_level":  req.MaxSweetLevel,
		"has_salad_add_on": req.HasSaladAddOn,
	}
	if req.Taste != "" {
		updates["taste"] = req.Taste
	}
	if req.PrepTimeMinutes >= 1 {
		updates["prep_time_minutes"] = req.PrepTimeMinutes
	}
	if req.InStock != nil {
		updates["in_stock"] = *req.InStock
	}
	if req.AvailableToday != nil {
		updates["available_today"] = *req.AvailableToday
	}
	config.DB.Model(&dish).Updates(updates)

	c.JSON(http.StatusOK, gin.H{"message": "Dish updated", "dish": dish})
}

// DeleteDish removes a menu entry (order history keeps its snapshots)
func DeleteDish(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}

	var dish models.Dish
	if err := config.DB.First(&dish, c.Param("dishId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dish not found"})
		return
	}
	if dish.RestaurantID != restaurant.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This dish does not belong to your restaurant"})
		return
	}

	config.DB.Delete(&dish)
	c.JSON(http.StatusOK, gin.H{"message": "Dish deleted"})
}
