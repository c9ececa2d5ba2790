package handlers

import (
	"errors"
	"net/http"

	"qrdine-api/clock"
	"qrdine-api/lifecycle"
	"qrdine-api/projector"
	"qrdine-api/scheduler"

	"github.com/gin-gonic/gin"
)

var (
	orders *lifecycle.Service
	views  *projector.Projector
	timers *scheduler.Scheduler
	clk    clock.Clock
)

// Init wires the core services into the handler layer.
func Init(lc *lifecycle.Service, proj *projector.Projector, sched *scheduler.Scheduler, c clock.Clock) {
	orders = lc
	views = proj
	timers = sched
	clk = c
}

// respondError maps lifecycle errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	case errors.Is(err, lifecycle.ErrEmptyCart), errors.Is(err, lifecycle.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error, please retry"})
	}
}
