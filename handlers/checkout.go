package handlers

import (
	"errors"
	"net/http"

	"homecook-api/checkout"
	"homecook-api/middleware"

	"github.com/gin-gonic/gin"
)

// GetCheckoutPrefill returns the profile fields that pre-populate the form
func (h *Handler) GetCheckoutPrefill(c *gin.Context) {
	prefill, found, err := h.profiles.Prefill(c.Request.Context(), middleware.GetUserID(c), middleware.GetRole(c))
	if err != nil {
		h.internalError(c, "Failed to load profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"found":           found,
		"prefill":         prefill,
		"payment_methods": checkout.PaymentMethods,
		"delivery_fee":    checkout.DeliveryFee,
	})
}

// Checkout submits the caller's cart as an order
func (h *Handler) Checkout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := h.session(c)
	conf, err := s.Checkout.Submit(c.Request.Context(), s.UserID, req)

	var verr *checkout.ValidationError
	var subErr *checkout.SubmissionError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please fill in every required field", "fields": verr.Fields})
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Your cart is empty"})
		return
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.As(err, &subErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": subErr.Error(), "cart": s.Cart.Summary()})
		return
	case err != nil:
		h.internalError(c, "Failed to submit order", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Order placed successfully",
		"order_id":  conf.OrderID,
		"timestamp": conf.Timestamp,
		"order":     conf.Order,
	})
}

// GetCheckoutState reports the submit control state
func (h *Handler) GetCheckoutState(c *gin.Context) {
	s := h.session(c)
	c.JSON(http.StatusOK, gin.H{"checkout": s.Checkout.Status(), "cart": s.Cart.Summary()})
}
