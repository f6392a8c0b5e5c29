package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantfinder/api/internal/models"
	"plantfinder/api/internal/services"
)

// RestMatchHandler handles REST requests for the match lifecycle.
type RestMatchHandler struct {
	matchService services.IMatchService
}

// NewRestMatchHandler creates a new RestMatchHandler.
func NewRestMatchHandler(matchService services.IMatchService) *RestMatchHandler {
	return &RestMatchHandler{matchService: matchService}
}

// GetMatchByID handles GET /v1/match/:id
func (h *RestMatchHandler) GetMatchByID(c *gin.Context) {
	match, err := h.matchService.GetMatchByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get match")
		return
	}
	c.JSON(http.StatusOK, match)
}

// GetUserMatches handles GET /v1/user/:id/match
func (h *RestMatchHandler) GetUserMatches(c *gin.Context) {
	matches, err := h.matchService.GetUserMatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get user matches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matches})
}

// GetPlantMatches handles GET /v1/plant/:id/match
func (h *RestMatchHandler) GetPlantMatches(c *gin.Context) {
	matches, err := h.matchService.GetPlantMatches(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get plant matches")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": matches})
}

func bindUserID(c *gin.Context) (string, bool) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return "", false
	}
	return req.UserID, true
}

// ConfirmMatch handles POST /v1/match/:id/confirm
func (h *RestMatchHandler) ConfirmMatch(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	match, err := h.matchService.ConfirmMatch(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to confirm match")
		return
	}
	c.JSON(http.StatusOK, match)
}

// MarkAsSent handles POST /v1/match/:id/sent
func (h *RestMatchHandler) MarkAsSent(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	match, err := h.matchService.MarkAsSent(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to mark match as sent")
		return
	}
	c.JSON(http.StatusOK, match)
}

// MarkAsReceived handles POST /v1/match/:id/received
func (h *RestMatchHandler) MarkAsReceived(c *gin.Context) {
	userID, ok := bindUserID(c)
	if !ok {
		return
	}
	match, err := h.matchService.MarkAsReceived(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to mark match as received")
		return
	}
	c.JSON(http.StatusOK, match)
}

// UpdatePlantingStatus handles POST /v1/match/:id/planting
func (h *RestMatchHandler) UpdatePlantingStatus(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	match, err := h.matchService.UpdatePlantingStatus(c.Request.Context(), req.UserID, c.Param("id"), models.PlantingStatus(req.Status))
	if err != nil {
		handleServiceError(c, err, "Failed to update planting status")
		return
	}
	c.JSON(http.StatusOK, match)
}
