package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"qrdine-api/config"
	"qrdine-api/lifecycle"
	"qrdine-api/middleware"
	"qrdine-api/models"
	"qrdine-api/statemachine"

	"github.com/gin-gonic/gin"
)

// AdminGetAllOrders returns all orders with full detail — admin only
func AdminGetAllOrders(c *gin.Context) {
	var list []models.Order
	query := config.DB.Preload("Items").Preload("Bill").Preload("StatusHistory")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID := c.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}
	if restaurantID := c.Query("restaurant_id"); restaurantID != "" {
		query = query.Where("restaurant_id = ?", restaurantID)
	}

	query.Order("created_at desc").Find(&list)

	summary := map[string]int{}
	var totalRevenue float64
	for _, o := range list {
		summary[string(o.Status)]++
		if o.Status == models.StatusCompleted || o.Status == models.StatusDelivered {
			totalRevenue += o.TotalAmount
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"total_revenue": totalRevenue,
		"count":         len(list),
		"orders":        list,
	})
}

type AdminForceStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Reason string             `json:"reason"`
}

// AdminForceOrderStatus applies an admin transition (cancel/no-show/reject
// or any other admin-permitted edge). Terminal states stay sticky: forcing
// a transition out of one still fails the guard.
func AdminForceOrderStatus(c *gin.Context) {
	var req AdminForceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := orders.Transition(c.Request.Context(), c.Param("id"), req.Status,
		statemachine.ActorAdmin, middleware.GetUserID(c), "[ADMIN OVERRIDE] "+req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Order status updated by admin",
		"order_id":   updated.ID,
		"new_status": updated.Status,
	})
}

// AdminDeleteOrder permanently removes an order and its derived views
func AdminDeleteOrder(c *gin.Context) {
	err := orders.DeleteOrder(c.Request.Context(), c.Param("id"), middleware.GetRole(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order permanently deleted", "order_id": c.Param("id")})
}

// GenerateBill creates (or returns) the immutable bill for a completed order
func GenerateBill(c *gin.Context) {
	bill, err := orders.GenerateBill(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if errors.Is(err, lifecycle.ErrBillExists) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Bill already exists, returning the original",
			"bill":    bill,
		})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Bill generated", "bill": bill})
}

type AutoCompleteRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetAutoCompletion toggles the automatic completion scheduler globally
func SetAutoCompletion(c *gin.Context) {
	var req AutoCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	timers.SetEnabled(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"auto_complete": timers.Enabled()})
}

// RebuildProjections drops and reconstructs every derived view
func RebuildProjections(c *gin.Context) {
	if err := views.Rebuild(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Rebuild failed, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Derived views rebuilt from canonical orders"})
}

// GetDishStatistics reads the projected order counters for a dish
func GetDishStatistics(c *gin.Context) {
	dishID, err := strconv.ParseUint(c.Param("dishId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dish id"})
		return
	}
	stats, err := views.DishStats(c.Request.Context(), uint(dishID))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Statistics unavailable, please retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statistics": stats})
}
