package routes

import (
	"homecook-api/handlers"
	"homecook-api/middleware"
	"homecook-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, verifier middleware.TokenVerifier) {
	authRequired := middleware.AuthRequired(verifier)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Live catalog (no auth needed)
		public.GET("/cookspots", h.ListCookSpots)
		public.GET("/cookspots/:id", h.GetCookSpot)
		public.GET("/cookspots/:id/menu", h.GetMenu)

		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authRequired)
	{
		auth.POST("/auth/logout", h.Logout)
		auth.GET("/profile", h.GetProfile)
		auth.POST("/cookspots/:id/reviews", h.AddReview)

		auth.GET("/nearby", h.GetNearby)
		auth.GET("/nearby/stream", h.StreamNearby)
		auth.PUT("/nearby/radius", h.SetRadius)

		auth.PUT("/location/authorization", h.SetLocationAuthorization)
		auth.POST("/location/fix", h.ReportFix)
		auth.POST("/location/error", h.ReportLocationError)
		auth.POST("/location/request", h.RequestLocationPermission)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.GET("/cart", h.GetCart)
		customer.POST("/cart/items", h.AddCartItem)
		customer.PUT("/cart/lines/:lineId", h.UpdateCartLine)
		customer.DELETE("/cart/lines/:lineId", h.RemoveCartLine)
		customer.DELETE("/cart", h.ClearCart)

		customer.GET("/checkout/prefill", h.GetCheckoutPrefill)
		customer.POST("/checkout", h.Checkout)
		customer.GET("/checkout/state", h.GetCheckoutState)

		customer.GET("/customer/orders", h.GetMyOrders)
		customer.GET("/customer/orders/:id", h.GetOrderDetail)
		customer.PUT("/customer/orders/:id/cancel", h.CancelOrder)
	}

	// ── Cook routes ────────────────────────────────────────────────
	cook := r.Group("/api/cook")
	cook.Use(authRequired, middleware.RoleRequired(models.RoleCook))
	{
		cook.POST("/spot", h.CreateCookSpot)
		cook.GET("/spot", h.GetMyCookSpot)
		cook.PUT("/spot", h.UpdateCookSpot)

		cook.POST("/menu", h.AddMenuItem)

		cook.GET("/orders", h.GetCookOrders)
		cook.PUT("/orders/:id/status", h.UpdateOrderStatus)
	}
}
