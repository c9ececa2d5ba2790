package handlers

import (
	"net/http"

	"qrdine-api/config"
	"qrdine-api/middleware"
	"qrdine-api/models"
	"qrdine-api/preptime"

	"github.com/gin-gonic/gin"
)

type CheckoutRequest struct {
	RestaurantID  uint                 `json:"restaurant_id" binding:"required"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	Items         []struct {
		DishID        uint                 `json:"dish_id" binding:"required"`
		Quantity      int                  `json:"quantity" binding:"required,min=1"`
		Customization models.Customization `json:"customization"`
	} `json:"items" binding:"required,min=1"`
}

// Checkout commits the customer's cart as a new order. Prices and prep times
// are snapshotted from the catalog here; the order never re-reads the menu.
func Checkout(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var restaurant models.Restaurant
	if err := config.DB.First(&restaurant, req.RestaurantID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Restaurant not found"})
		return
	}
	if !restaurant.IsOpen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Restaurant is currently closed"})
		return
	}

	var lines []models.CartLine
	for _, reqItem := range req.Items {
		var dish models.Dish
		if err := config.DB.First(&dish, reqItem.DishID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dish not found"})
			return
		}
		if dish.RestaurantID != req.RestaurantID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dish '" + dish.Name + "' does not belong to this restaurant"})
			return
		}
		if !dish.InStock || !dish.AvailableToday {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Dish '" + dish.Name + "' is not available"})
			return
		}
		lines = append(lines, models.CartLine{
			DishID:          dish.ID,
			Name:            dish.Name,
			Quantity:        reqItem.Quantity,
			UnitPrice:       dish.Price,
			PrepTimeMinutes: dish.PrepTimeMinutes,
			Customization:   reqItem.Customization,
		})
	}

	order, err := orders.CreateOrder(c.Request.Context(), customerID, req.RestaurantID, lines, req.PaymentMethod, models.SourceQR)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":           "Order placed successfully",
		"order":             order,
		"prep_ends_at":      order.PrepEndsAt,
		"remaining_minutes": preptime.RemainingMinutes(order.PrepEndsAt, clk.Now()),
	})
}

// orderView decorates an order with live progress numbers for display
func orderView(o *models.Order) gin.H {
	now := clk.Now()
	return gin.H{
		"order":             o,
		"percent_complete":  preptime.Percent(o.PrepStartedAt, o.PrepEndsAt, now),
		"remaining_minutes": preptime.RemainingMinutes(o.PrepEndsAt, now),
		"overdue":           o.Status == models.StatusPreparing && now.After(o.PrepEndsAt),
	}
}

// GetMyOrders returns the logged-in customer's order history
func GetMyOrders(c *gin.Context) {
	customerID := middleware.GetUserID(c)
	list, err := orders.ListCustomerOrders(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	result := make([]gin.H, 0, len(list))
	for i := range list {
		result = append(result, orderView(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(result), "orders": result})
}

// GetOrderDetail returns a single order's full detail with history
func GetOrderDetail(c *gin.Context) {
	customerID := middleware.GetUserID(c)

	order, err := orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if order.CustomerID != customerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This order does not belong to you"})
		return
	}
	c.JSON(http.StatusOK, orderView(order))
}
