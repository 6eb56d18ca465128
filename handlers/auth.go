package handlers

import (
	"errors"
	"net/http"

	"homecook-api/auth"
	"homecook-api/middleware"
	"homecook-api/models"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Email      string          `json:"email" binding:"required,email"`
	Password   string          `json:"password" binding:"required,min=6"`
	Role       models.UserRole `json:"role" binding:"required"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Address    string          `json:"address"`
	CookerName string          `json:"cooker_name"`
	Cuisine    string          `json:"cuisine"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new account with the profile of its role
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		Role:       req.Role,
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		CookerName: req.CookerName,
		Cuisine:    req.Cuisine,
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	case errors.Is(err, auth.ErrInvalidRole), errors.Is(err, auth.ErrMissingCookFields), errors.Is(err, auth.ErrWeakPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.internalError(c, "Failed to create account", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Account created successfully",
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       sess.User,
	})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		h.internalError(c, "Failed to sign in", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"user":       sess.User,
	})
}

// Logout revokes the caller's token and drops their session state
func (h *Handler) Logout(c *gin.Context) {
	h.auth.SignOut(middleware.GetClaims(c))
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

// GetProfile returns the authenticated user and their role's profile
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)
	user, err := h.auth.User(ctx, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var profile interface{}
	if user.Role == models.RoleCook {
		profile, err = h.profiles.Cook(ctx, userID)
	} else {
		profile, err = h.profiles.Customer(ctx, userID)
	}
	if err != nil {
		profile = nil
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "profile": profile})
}
