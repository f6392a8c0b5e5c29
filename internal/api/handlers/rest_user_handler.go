package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantfinder/api/internal/models"
	"plantfinder/api/internal/services"
)

// RestUserHandler handles REST requests for member profiles.
type RestUserHandler struct {
	userService services.IUserService
}

// NewRestUserHandler creates a new RestUserHandler.
func NewRestUserHandler(userService services.IUserService) *RestUserHandler {
	return &RestUserHandler{userService: userService}
}

// GetUserByID handles GET /v1/user/:id
func (h *RestUserHandler) GetUserByID(c *gin.Context) {
	user, err := h.userService.FindUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpsertUser handles PUT /v1/user/:id
func (h *RestUserHandler) UpsertUser(c *gin.Context) {
	var req struct {
		DisplayName string `json:"display_name" binding:"required"`
		Email       string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	user, err := h.userService.UpsertUser(c.Request.Context(), &models.User{
		ID:          c.Param("id"),
		DisplayName: req.DisplayName,
		Email:       req.Email,
	})
	if err != nil {
		handleServiceError(c, err, "Failed to save user")
		return
	}
	c.JSON(http.StatusOK, user)
}
