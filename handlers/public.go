package handlers

import (
	"errors"
	"net/http"
	"strings"

	"homecook-api/middleware"
	"homecook-api/models"
	"homecook-api/statemachine"
	"homecook-api/store"

	"github.com/gin-gonic/gin"
)

// ListCookSpots returns the live catalog snapshot (public)
func (h *Handler) ListCookSpots(c *gin.Context) {
	state := h.catalog.State()
	cuisine := strings.ToLower(c.Query("cuisine"))
	search := strings.ToLower(c.Query("search"))

	spots := make([]models.CookSpot, 0, len(state.Spots))
	for _, s := range state.Spots {
		if cuisine != "" && !strings.Contains(strings.ToLower(s.Cuisine), cuisine) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		spots = append(spots, s)
	}

	c.JSON(http.StatusOK, gin.H{
		"phase":      state.Phase,
		"loading":    state.Loading,
		"updated_at": state.UpdatedAt,
		"count":      len(spots),
		"cookspots":  spots,
	})
}

// GetCookSpot returns a single cook spot with its reviews
func (h *Handler) GetCookSpot(c *gin.Context) {
	spot, err := h.spots.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cook spot not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to load cook spot", err)
		return
	}

	liked := []models.Review{}
	for _, r := range spot.Reviews {
		if r.IsPositive() {
			liked = append(liked, r)
		}
	}
	c.JSON(http.StatusOK, gin.H{"cookspot": spot, "positive_reviews": liked})
}

// GetMenu returns the menu of a cook spot (public)
func (h *Handler) GetMenu(c *gin.Context) {
	ctx := c.Request.Context()
	spot, err := h.spots.Get(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cook spot not found"})
		return
	}

	items, err := h.spots.Menu(ctx, spot.ID, c.Query("available") == "true")
	if err != nil {
		h.internalError(c, "Failed to load menu", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cookspot": spot.Name,
		"count":    len(items),
		"menu":     items,
	})
}

type ReviewRequest struct {
	Rating  float64 `json:"rating" binding:"required,min=1,max=5"`
	Comment string  `json:"comment" binding:"max=1000"`
}

// AddReview posts a review under the caller's profile name
func (h *Handler) AddReview(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	claims := middleware.GetClaims(c)
	name := claims.Email
	if p, found, err := h.profiles.Prefill(ctx, claims.UserID, claims.Role); err == nil && found && p.Name != "" {
		name = p.Name
	}

	review := models.Review{UserName: name, Comment: strings.TrimSpace(req.Comment), Rating: req.Rating}
	err := h.spots.AddReview(ctx, c.Param("id"), &review)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Cook spot not found"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to save review", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review added", "review": review})
}

// GetStateMachineInfo returns the order lifecycle for documentation
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	terminal := []models.OrderStatus{}
	for _, s := range []models.OrderStatus{
		models.StatusPending, models.StatusAccepted, models.StatusPreparing,
		models.StatusOutForDelivery, models.StatusDelivered, models.StatusCancelled,
	} {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": terminal,
		"description":     "Homecook Order Lifecycle State Machine",
	})
}
