package handlers

import (
	"net/http"
	"time"

	"qrdine-api/config"
	"qrdine-api/lifecycle"
	"qrdine-api/middleware"
	"qrdine-api/models"
	"qrdine-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ownedRestaurant loads the restaurant belonging to the logged-in kitchen user
func ownedRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	ownerID := middleware.GetUserID(c)
	var restaurant models.Restaurant
	if err := config.DB.Where("owner_id = ?", ownerID).First(&restaurant).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No restaurant found for your account"})
		return nil, false
	}
	return &restaurant, true
}

// GetKitchenQueue lists the restaurant's active orders with live progress.
// Supports status and date-range filters for the kitchen display.
func GetKitchenQueue(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}

	filters := lifecycle.Filters{Status: models.OrderStatus(c.Query("status"))}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.From = t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.To = t
		}
	}

	list, err := orders.ListActiveOrders(c.Request.Context(), restaurant.ID, filters)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := map[string]int{}
	result := make([]gin.H, 0, len(list))
	for i := range list {
		summary[string(list[i].Status)]++
		result = append(result, orderView(&list[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant":    restaurant.Name,
		"order_summary": summary,
		"auto_complete": timers.Enabled(),
		"count":         len(result),
		"orders":        result,
	})
}

// GetKitchenFeed serves the projected (eventually-consistent) kitchen view
func GetKitchenFeed(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}
	entries, err := views.KitchenQueue(c.Request.Context(), restaurant.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Kitchen feed unavailable, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

// GetWhatsAppFeed serves the projected WhatsApp intake view
func GetWhatsAppFeed(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}
	entries, err := views.WhatsAppQueue(c.Request.Context(), restaurant.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WhatsApp feed unavailable, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(entries), "entries": entries})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus handles the kitchen's state transitions
func UpdateOrderStatus(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}

	order, err := orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.RestaurantID != restaurant.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to your restaurant"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := orders.Transition(c.Request.Context(), order.ID, req.Status,
		statemachine.ActorKitchen, middleware.GetUserID(c), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order_id":        updated.ID,
		"previous_status": order.Status,
		"current_status":  updated.Status,
	})
}

type PaymentStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required"`
}

// SetOrderPaymentStatus updates payment state, allowed in any lifecycle state
func SetOrderPaymentStatus(c *gin.Context) {
	restaurant, ok := ownedRestaurant(c)
	if !ok {
		return
	}

	order, err := orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.RestaurantID != restaurant.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to your restaurant"})
		return
	}

	var req PaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := orders.SetPaymentStatus(c.Request.Context(), order.ID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Payment status updated",
		"order_id":       updated.ID,
		"payment_status": updated.PaymentStatus,
	})
}
