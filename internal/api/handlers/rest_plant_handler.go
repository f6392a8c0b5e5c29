package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"plantfinder/api/internal/models"
	"plantfinder/api/internal/services"
	"plantfinder/api/internal/storage"
	"plantfinder/api/internal/tasks"
)

// IAsynqClient defines the Asynq client methods used by handlers. This
// allows easier mocking than using the concrete asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestPlantHandler handles REST requests for the plant catalog and photos.
type RestPlantHandler struct {
	plantService services.IPlantService
	storage      storage.IS3Storage
	taskClient   IAsynqClient
}

// NewRestPlantHandler creates a new RestPlantHandler. storage and taskClient
// may be nil, which disables the photo endpoints.
func NewRestPlantHandler(plantService services.IPlantService, storage storage.IS3Storage, taskClient IAsynqClient) *RestPlantHandler {
	return &RestPlantHandler{
		plantService: plantService,
		storage:      storage,
		taskClient:   taskClient,
	}
}

// SearchPlants handles GET /v1/plant/search
func (h *RestPlantHandler) SearchPlants(c *gin.Context) {
	query := c.Query("q")
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	plants, err := h.plantService.SearchPlants(c.Request.Context(), query, limit)
	if err != nil {
		handleServiceError(c, err, "Failed to search plants")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": plants})
}

// GetPlantByID handles GET /v1/plant/:id
func (h *RestPlantHandler) GetPlantByID(c *gin.Context) {
	plant, err := h.plantService.FindPlantByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, "Failed to get plant")
		return
	}
	c.JSON(http.StatusOK, plant)
}

// RegisterPlant handles PUT /v1/plant/:id
func (h *RestPlantHandler) RegisterPlant(c *gin.Context) {
	var req struct {
		CommonName     string `json:"common_name" binding:"required"`
		ScientificName string `json:"scientific_name"`
		Description    string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	plant, err := h.plantService.RegisterPlant(c.Request.Context(), &models.Plant{
		ID:             c.Param("id"),
		CommonName:     req.CommonName,
		ScientificName: req.ScientificName,
		Description:    req.Description,
	})
	if err != nil {
		handleServiceError(c, err, "Failed to register plant")
		return
	}
	c.JSON(http.StatusOK, plant)
}

// GetPhotoUploadURL handles POST /v1/plant/:id/photo. It returns a
// pre-signed S3 PUT URL the client uploads the original photo to.
func (h *RestPlantHandler) GetPhotoUploadURL(c *gin.Context) {
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo uploads are not configured"})
		return
	}

	var req struct {
		UserID      string `json:"user_id" binding:"required"`
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"content_type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	plantID := c.Param("id")
	// The plant must exist before accepting photos for it
	if _, err := h.plantService.FindPlantByID(c.Request.Context(), plantID); err != nil {
		handleServiceError(c, err, "Failed to look up plant")
		return
	}

	url, objectKey, err := h.storage.GeneratePresignedPutURL(c.Request.Context(), req.UserID, plantID, req.Filename, req.ContentType)
	if err != nil {
		log.Printf("Error generating presigned URL for plant %s: %v", plantID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate upload URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": url,
		"object_key": objectKey,
	})
}

// ConfirmPhotoUpload handles POST /v1/plant/:id/photo/confirm. Once the
// client finishes the S3 upload it calls this to schedule processing.
func (h *RestPlantHandler) ConfirmPhotoUpload(c *gin.Context) {
	if h.taskClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Photo uploads are not configured"})
		return
	}

	var req struct {
		ObjectKey string `json:"object_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	plantID := c.Param("id")
	payloadBytes, _ := json.Marshal(tasks.ImageTaskPayload{
		S3Key:   req.ObjectKey,
		PlantID: plantID,
	})
	task := asynq.NewTask(tasks.TypeImageProcess, payloadBytes, asynq.Queue("images")) // Use dedicated queue

	taskInfo, err := h.taskClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		log.Printf("ERROR enqueuing image processing task for key %s, plant %s: %v", req.ObjectKey, plantID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule image processing"})
		return
	}

	log.Printf("Enqueued image processing task ID %s for key %s, plant %s", taskInfo.ID, req.ObjectKey, plantID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Image upload confirmed, processing scheduled.",
		"task_id": taskInfo.ID,
	})
}
