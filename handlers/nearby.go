package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"homecook-api/location"
	"homecook-api/middleware"
	"homecook-api/nearby"

	"github.com/gin-gonic/gin"
)

// keepAliveInterval spaces the comment events that keep idle streams open
var keepAliveInterval = 15 * time.Second

// GetNearby returns the caller's current nearby list
func (h *Handler) GetNearby(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nearby": h.session(c).Nearby.Result()})
}

// StreamNearby pushes the nearby list as server-sent events every time it
// is recomputed. Slow readers only ever see the latest list.
func (h *Handler) StreamNearby(c *gin.Context) {
	userID := middleware.GetUserID(c)
	feed := h.session(c).Nearby

	updates := make(chan nearby.Result, 1)
	unsubscribe := feed.Subscribe(func(r nearby.Result) { offerLatest(updates, r) })
	defer unsubscribe()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.SSEvent("nearby", feed.Result())
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case r := <-updates:
			c.SSEvent("nearby", r)
			return true
		case <-ticker.C:
			if _, ok := h.sessions.Lookup(userID); !ok {
				return false
			}
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
}

// offerLatest replaces whatever is pending in ch with r
func offerLatest(ch chan nearby.Result, r nearby.Result) {
	for {
		select {
		case ch <- r:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

type RadiusRequest struct {
	RadiusMeters *float64 `json:"radius_meters" binding:"required"`
}

// SetRadius changes the search radius of the caller's nearby list
func (h *Handler) SetRadius(c *gin.Context) {
	var req RadiusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	feed := h.session(c).Nearby
	feed.SetRadius(*req.RadiusMeters)
	c.JSON(http.StatusOK, gin.H{"nearby": feed.Result()})
}

type AuthorizationRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetLocationAuthorization records the device's location permission
func (h *Handler) SetLocationAuthorization(c *gin.Context) {
	var req AuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := location.ParseAuthorization(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := h.session(c)
	s.Location.HandleAuthorization(a)
	c.JSON(http.StatusOK, locationStatus(s.Location, s.Provider))
}

type FixRequest struct {
	Latitude   *float64  `json:"latitude" binding:"required"`
	Longitude  *float64  `json:"longitude" binding:"required"`
	Accuracy   float64   `json:"accuracy"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ReportFix takes a position reading from the device
func (h *Handler) ReportFix(c *gin.Context) {
	var req FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := h.session(c)
	if !s.Provider.Updating() {
		c.JSON(http.StatusConflict, gin.H{
			"error":         "Location updates are not active",
			"authorization": s.Location.Authorization(),
		})
		return
	}
	err := s.Location.HandleFix(location.Fix{
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		Accuracy:   req.Accuracy,
		RecordedAt: req.RecordedAt,
	})
	if errors.Is(err, location.ErrInvalidFix) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nearby": s.Nearby.Result()})
}

type LocationErrorRequest struct {
	Message string `json:"message" binding:"required"`
}

// ReportLocationError records a device-side location failure
func (h *Handler) ReportLocationError(c *gin.Context) {
	var req LocationErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := h.session(c)
	s.Location.HandleError(errors.New(req.Message))
	c.JSON(http.StatusOK, locationStatus(s.Location, s.Provider))
}

// RequestLocationPermission asks the device to prompt for permission again
func (h *Handler) RequestLocationPermission(c *gin.Context) {
	s := h.session(c)
	s.Location.RequestAuthorization()
	c.JSON(http.StatusOK, locationStatus(s.Location, s.Provider))
}

func locationStatus(t *location.Tracker, p *location.ReportedProvider) gin.H {
	a := t.Authorization()
	body := gin.H{
		"authorization":       a,
		"updating":            p.Updating(),
		"permission_blocked":  a.Blocked(),
		"permission_requests": p.PermissionRequests(),
		"position":            t.Position(),
	}
	if err := t.LastError(); err != nil {
		body["last_error"] = err.Error()
	}
	return body
}
