package handlers

import (
	"errors"
	"net/http"

	"homecook-api/geo"
	"homecook-api/middleware"
	"homecook-api/models"
	"homecook-api/statemachine"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
)

// ── Cook Spot Management ─────────────────────────────────────────────────────

type CreateCookSpotRequest struct {
	Name        string   `json:"name" binding:"required,notblank"`
	Cuisine     string   `json:"cuisine"`
	Description string   `json:"description"`
	PriceRange  string   `json:"price_range"`
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
}

// CreateCookSpot lists the caller's kitchen on the marketplace
func (h *Handler) CreateCookSpot(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := middleware.GetUserID(c)

	var req CreateCookSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !(geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coordinates out of range"})
		return
	}
	if _, err := h.spots.GetByOwner(ctx, ownerID); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "You already run a cook spot"})
		return
	}

	profile, err := h.profiles.Cook(ctx, ownerID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cook profile not found"})
		return
	}
	cuisine := req.Cuisine
	if cuisine == "" {
		cuisine = profile.Cuisine
	}

	spot := models.CookSpot{
		OwnerID:     &ownerID,
		Name:        req.Name,
		Chef:        profile.CookerName,
		Cuisine:     cuisine,
		Description: req.Description,
		PriceRange:  req.PriceRange,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
	}
	if err := h.spots.Create(ctx, &spot); err != nil {
		h.internalError(c, "Failed to create cook spot", err)
		return
	}
	if err := h.profiles.LinkCookSpot(ctx, ownerID, spot.ID); err != nil {
		h.log.WithError(err).WithField("spot_id", spot.ID).Warn("Linking cook spot to profile failed")
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Cook spot created", "cookspot": spot})
}

// GetMyCookSpot fetches the spot run by the logged-in cook
func (h *Handler) GetMyCookSpot(c *gin.Context) {
	spot, err := h.spots.GetByOwner(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No cook spot found for your account"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cookspot": spot})
}

// UpdateCookSpot updates cook spot details
func (h *Handler) UpdateCookSpot(c *gin.Context) {
	ctx := c.Request.Context()
	spot, err := h.spots.GetByOwner(ctx, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cook spot not found"})
		return
	}
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lat, lng := spot.Latitude, spot.Longitude
	if v, ok := req["latitude"].(float64); ok {
		lat = v
	}
	if v, ok := req["longitude"].(float64); ok {
		lng = v
	}
	if !(geo.Point{Latitude: lat, Longitude: lng}).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Coordinates out of range"})
		return
	}

	updated, err := h.spots.Update(ctx, spot.ID, req)
	if err != nil {
		h.internalError(c, "Failed to update cook spot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cook spot updated", "cookspot": updated})
}

// ── Menu Management ──────────────────────────────────────────────────────────

type AddMenuItemRequest struct {
	Name        string  `json:"name" binding:"required,notblank"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"min=0"`
	IsAvailable *bool   `json:"is_available"`
	ImageURL    *string `json:"image_url" binding:"omitempty,url"`
}

// AddMenuItem adds a dish to the caller's menu
func (h *Handler) AddMenuItem(c *gin.Context) {
	ctx := c.Request.Context()
	spot, err := h.spots.GetByOwner(ctx, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Create your cook spot first"})
		return
	}
	var req AddMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsAvailable: req.IsAvailable == nil || *req.IsAvailable,
		ImageURL:    req.ImageURL,
	}
	if err := h.spots.AddMenuItem(ctx, spot.ID, &item); err != nil {
		h.internalError(c, "Failed to add menu item", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// ── Order Management ─────────────────────────────────────────────────────────

// GetCookOrders returns orders that include dishes from the caller's spot
func (h *Handler) GetCookOrders(c *gin.Context) {
	ctx := c.Request.Context()
	spot, err := h.spots.GetByOwner(ctx, middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No cook spot found for your account"})
		return
	}

	orders, err := h.orders.ListForCookSpot(ctx, spot.ID, models.OrderStatus(c.Query("status")))
	if err != nil {
		h.internalError(c, "Failed to load orders", err)
		return
	}

	summary := map[string]int{}
	for _, o := range orders {
		summary[string(o.Status)]++
	}
	c.JSON(http.StatusOK, gin.H{
		"cookspot":      spot.Name,
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// UpdateOrderStatus moves an order along its lifecycle
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	ctx := c.Request.Context()
	cookID := middleware.GetUserID(c)

	spot, err := h.spots.GetByOwner(ctx, cookID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No cook spot found for your account"})
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.GetForCookSpot(ctx, spot.ID, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load order", err)
		return
	}

	prev, err := h.orders.Transition(ctx, order, req.Status, statemachine.ActorCook, cookID, req.Note)
	if err != nil {
		h.transitionError(c, order, req.Status, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Order status updated",
		"order_id":        order.ID,
		"previous_status": string(prev),
		"current_status":  string(order.Status),
	})
}
