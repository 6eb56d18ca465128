package handlers

import (
	"errors"
	"net/http"
	"time"

	"homecook-api/middleware"
	"homecook-api/models"
	"homecook-api/statemachine"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
)

// GetMyOrders returns all orders for the logged-in customer
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.orders.ListForCustomer(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.internalError(c, "Failed to load orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order's full detail with history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	order, err := h.orders.GetForCustomer(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load order", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":             order,
		"minutes_elapsed":   int(time.Since(order.Timestamp).Minutes()),
		"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
	})
}

type CancelOrderRequest struct {
	Note string `json:"note"`
}

// CancelOrder cancels an order the cook has not started preparing
func (h *Handler) CancelOrder(c *gin.Context) {
	ctx := c.Request.Context()
	customerID := middleware.GetUserID(c)

	var req CancelOrderRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.orders.GetForCustomer(ctx, customerID, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load order", err)
		return
	}

	note := req.Note
	if note == "" {
		note = "Order cancelled by customer"
	}
	if _, err := h.orders.Transition(ctx, order, models.StatusCancelled, statemachine.ActorCustomer, customerID, note); err != nil {
		h.transitionError(c, order, models.StatusCancelled, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order_id": order.ID})
}

func (h *Handler) transitionError(c *gin.Context, order *models.Order, to models.OrderStatus, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":             "Invalid state transition",
			"current_status":    order.Status,
			"requested":         to,
			"reason":            err.Error(),
			"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
		})
	case errors.Is(err, store.ErrStatusChanged):
		c.JSON(http.StatusConflict, gin.H{"error": "Order status changed, reload and try again"})
	default:
		h.internalError(c, "Failed to update order", err)
	}
}
