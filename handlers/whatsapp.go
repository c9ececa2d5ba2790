package handlers

import (
	"net/http"

	"qrdine-api/config"
	"qrdine-api/middleware"
	"qrdine-api/models"

	"github.com/gin-gonic/gin"
)

// WhatsAppIntakeRequest carries a bridged order payload. Legacy bridge
// clients stored the tenant under several different field names; the alias
// resolver picks the right one.
type WhatsAppIntakeRequest struct {
	RestaurantID  uint                 `json:"restaurant_id"`
	AdminID       uint                 `json:"admin_id"`
	HotelID       uint                 `json:"hotel_id"`
	UserID        uint                 `json:"user_id"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	Items         []struct {
		DishID   uint `json:"dish_id" binding:"required"`
		Quantity int  `json:"quantity" binding:"required,min=1"`
	} `json:"items" binding:"required,min=1"`
}

// WhatsAppIntake creates an order from the WhatsApp bridge. Same lifecycle
// as a QR order, but projected into the restaurant's WhatsApp feed as well.
func WhatsAppIntake(c *gin.Context) {
	var req WhatsAppIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurantID := models.ResolveRestaurantID(req.RestaurantID, req.AdminID, req.HotelID, req.UserID)
	if restaurantID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No restaurant alias present in payload"})
		return
	}

	method := req.PaymentMethod
	if method == "" {
		method = models.PayCash
	}

	var lines []models.CartLine
	for _, reqItem := range req.Items {
		var dish models.Dish
		if err := config.DB.First(&dish, reqItem.DishID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dish not found"})
			return
		}
		if dish.RestaurantID != restaurantID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dish '" + dish.Name + "' does not belong to this restaurant"})
			return
		}
		lines = append(lines, models.CartLine{
			DishID:          dish.ID,
			Name:            dish.Name,
			Quantity:        reqItem.Quantity,
			UnitPrice:       dish.Price,
			PrepTimeMinutes: dish.PrepTimeMinutes,
		})
	}

	order, err := orders.CreateOrder(c.Request.Context(), middleware.GetUserID(c), restaurantID,
		lines, method, models.SourceWhatsApp)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "WhatsApp order accepted",
		"order":   order,
	})
}
