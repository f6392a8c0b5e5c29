package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantfinder/api/internal/services"
)

// RestExchangeHandler handles REST requests for the seed exchange.
type RestExchangeHandler struct {
	exchangeService services.IExchangeService
}

// NewRestExchangeHandler creates a new RestExchangeHandler.
func NewRestExchangeHandler(exchangeService services.IExchangeService) *RestExchangeHandler {
	return &RestExchangeHandler{exchangeService: exchangeService}
}

// CreateOffer handles POST /v1/exchange/offer
func (h *RestExchangeHandler) CreateOffer(c *gin.Context) {
	var req struct {
		UserID   string `json:"user_id" binding:"required"`
		PlantID  string `json:"plant_id" binding:"required"`
		Quantity int    `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	offer, err := h.exchangeService.CreateOffer(c.Request.Context(), req.UserID, req.PlantID, req.Quantity)
	if err != nil {
		handleServiceError(c, err, "Failed to create offer")
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// CreateRequest handles POST /v1/exchange/request
func (h *RestExchangeHandler) CreateRequest(c *gin.Context) {
	var req struct {
		UserID  string `json:"user_id" binding:"required"`
		PlantID string `json:"plant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	request, err := h.exchangeService.CreateRequest(c.Request.Context(), req.UserID, req.PlantID)
	if err != nil {
		handleServiceError(c, err, "Failed to create request")
		return
	}
	c.JSON(http.StatusCreated, request)
}

// CancelOffer handles POST /v1/exchange/offer/:id/cancel
func (h *RestExchangeHandler) CancelOffer(c *gin.Context) {
	offerID := c.Param("id")
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.exchangeService.CancelOffer(c.Request.Context(), req.UserID, offerID); err != nil {
		handleServiceError(c, err, "Failed to cancel offer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Offer cancelled"})
}

// CancelRequest handles POST /v1/exchange/request/:id/cancel
func (h *RestExchangeHandler) CancelRequest(c *gin.Context) {
	requestID := c.Param("id")
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := h.exchangeService.CancelRequest(c.Request.Context(), req.UserID, requestID); err != nil {
		handleServiceError(c, err, "Failed to cancel request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}

// GetAllPlantsVolume handles GET /v1/exchange/volume
func (h *RestExchangeHandler) GetAllPlantsVolume(c *gin.Context) {
	volumes, err := h.exchangeService.GetAllPlantsVolume(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, "Failed to get exchange volume")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": volumes})
}

// GetPlantVolume handles GET /v1/plant/:id/volume
func (h *RestExchangeHandler) GetPlantVolume(c *gin.Context) {
	volume, err := h.exchangeService.GetPlantVolume(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get plant volume")
		return
	}
	c.JSON(http.StatusOK, volume)
}

// GetUserActivity handles GET /v1/user/:id/exchange
func (h *RestExchangeHandler) GetUserActivity(c *gin.Context) {
	activity, err := h.exchangeService.GetUserAllPlantsActivity(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get user activity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": activity})
}

// GetUserPlantActivity handles GET /v1/user/:id/exchange/:plant_id
func (h *RestExchangeHandler) GetUserPlantActivity(c *gin.Context) {
	activity, err := h.exchangeService.GetUserPlantActivity(c.Request.Context(), c.Param("id"), c.Param("plant_id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get user activity")
		return
	}
	c.JSON(http.StatusOK, activity)
}
