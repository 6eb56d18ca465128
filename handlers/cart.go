package handlers

import (
	"errors"
	"net/http"

	"homecook-api/cart"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
)

func cartError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, cart.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, cart.ErrInvalidQuantity), errors.Is(err, cart.ErrItemUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
	}
	return true
}

// GetCart returns the caller's cart with derived totals
func (h *Handler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cart": h.session(c).Cart.Summary()})
}

type AddCartItemRequest struct {
	MenuItemID string `json:"menu_item_id" binding:"required"`
	Quantity   *int   `json:"quantity"`
}

// AddCartItem merges a menu item into the cart. Price and availability are
// read from the store, never from the request.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	item, err := h.spots.MenuItem(c.Request.Context(), req.MenuItemID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load menu item", err)
		return
	}

	cs := h.session(c).Cart
	if cartError(c, cs.AddItem(*item, qty)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Added to cart", "cart": cs.Summary()})
}

type UpdateCartLineRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// UpdateCartLine sets a line's quantity; zero or less removes the line
func (h *Handler) UpdateCartLine(c *gin.Context) {
	var req UpdateCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cs := h.session(c).Cart
	if cartError(c, cs.UpdateQuantity(c.Param("lineId"), *req.Quantity)) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cs.Summary()})
}

// RemoveCartLine drops one line
func (h *Handler) RemoveCartLine(c *gin.Context) {
	cs := h.session(c).Cart
	if cartError(c, cs.RemoveItem(c.Param("lineId"))) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cs.Summary()})
}

// ClearCart empties the cart
func (h *Handler) ClearCart(c *gin.Context) {
	cs := h.session(c).Cart
	if cartError(c, cs.Clear()) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared", "cart": cs.Summary()})
}
