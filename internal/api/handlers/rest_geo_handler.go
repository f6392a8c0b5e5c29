package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"plantfinder/api/internal/services"
)

// RestGeoHandler handles REST requests for IP geolocation.
type RestGeoHandler struct {
	geoService services.IGeoService
}

// NewRestGeoHandler creates a new RestGeoHandler.
func NewRestGeoHandler(geoService services.IGeoService) *RestGeoHandler {
	return &RestGeoHandler{geoService: geoService}
}

// DetectLocation handles GET /v1/geolocation
func (h *RestGeoHandler) DetectLocation(c *gin.Context) {
	clientIP := clientIPFromHeaders(c)

	location, err := h.geoService.DetectLocation(c.Request.Context(), clientIP)
	if err != nil {
		if errors.Is(err, services.ErrLocationNotDetected) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Unable to detect location from IP address"})
			return
		}
		handleServiceError(c, err, "Failed to detect location")
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, location)
}

// clientIPFromHeaders extracts the originating client IP from proxy headers,
// falling back to the connection's remote address.
func clientIPFromHeaders(c *gin.Context) string {
	raw := c.GetHeader("X-Forwarded-For")
	if raw == "" {
		raw = c.GetHeader("X-Real-IP")
	}
	if raw == "" {
		return c.ClientIP()
	}
	// X-Forwarded-For may hold a chain; the first entry is the client
	return strings.TrimSpace(strings.Split(raw, ",")[0])
}
