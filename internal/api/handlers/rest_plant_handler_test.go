package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"plantfinder/api/internal/api/handlers"
	"plantfinder/api/internal/models"
	"plantfinder/api/internal/tasks"
)

func setupPlantRouter(svc *MockPlantService, store *MockS3Storage, taskClient *MockAsynqClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	var handler *handlers.RestPlantHandler
	if store == nil {
		handler = handlers.NewRestPlantHandler(svc, nil, nil)
	} else {
		handler = handlers.NewRestPlantHandler(svc, store, taskClient)
	}
	r := gin.New()
	r.GET("/v1/plant/search", handler.SearchPlants)
	r.GET("/v1/plant/:id", handler.GetPlantByID)
	r.PUT("/v1/plant/:id", handler.RegisterPlant)
	r.POST("/v1/plant/:id/photo", handler.GetPhotoUploadURL)
	r.POST("/v1/plant/:id/photo/confirm", handler.ConfirmPhotoUpload)
	return r
}

func TestRestPlantHandler_Search(t *testing.T) {
	mockSvc := new(MockPlantService)
	r := setupPlantRouter(mockSvc, nil, nil)

	mockSvc.On("SearchPlants", mock.Anything, "milkweed", 50).Return([]models.Plant{
		{ID: "milkweed", CommonName: "Common Milkweed"},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/plant/search?q=milkweed", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Common Milkweed")
}

func TestRestPlantHandler_GetAndRegister(t *testing.T) {
	mockSvc := new(MockPlantService)
	r := setupPlantRouter(mockSvc, nil, nil)

	mockSvc.On("FindPlantByID", mock.Anything, "tomato").Return(&models.Plant{
		ID: "tomato", CommonName: "Tomato",
	}, nil)
	mockSvc.On("FindPlantByID", mock.Anything, "missing").
		Return(nil, fmt.Errorf("%w: plant missing", models.ErrNotFound))
	mockSvc.On("RegisterPlant", mock.Anything, mock.MatchedBy(func(p *models.Plant) bool {
		return p.ID == "basil" && p.CommonName == "Sweet Basil"
	})).Return(&models.Plant{ID: "basil", CommonName: "Sweet Basil"}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/plant/tomato", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("GET", "/v1/plant/missing", nil)
	r.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusNotFound, w2.Code)

	body, _ := json.Marshal(gin.H{"common_name": "Sweet Basil"})
	w3 := httptest.NewRecorder()
	req3, _ := http.NewRequest("PUT", "/v1/plant/basil", bytes.NewBuffer(body))
	req3.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestRestPlantHandler_PhotoUploadFlow(t *testing.T) {
	mockSvc := new(MockPlantService)
	mockStore := new(MockS3Storage)
	mockTaskClient := new(MockAsynqClient)
	r := setupPlantRouter(mockSvc, mockStore, mockTaskClient)

	mockSvc.On("FindPlantByID", mock.Anything, "tomato").Return(&models.Plant{ID: "tomato"}, nil)
	mockStore.On("GeneratePresignedPutURL", mock.Anything, "alice", "tomato", "photo.jpg", "image/jpeg").
		Return("https://s3.example.com/upload", "plants/tomato/alice/key_photo.jpg", nil)

	body, _ := json.Marshal(gin.H{"user_id": "alice", "filename": "photo.jpg", "content_type": "image/jpeg"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/plant/tomato/photo", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://s3.example.com/upload", resp["upload_url"])
	assert.Equal(t, "plants/tomato/alice/key_photo.jpg", resp["object_key"])

	mockTaskClient.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		if task.Type() != tasks.TypeImageProcess {
			return false
		}
		var payload tasks.ImageTaskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return false
		}
		return payload.PlantID == "tomato" && payload.S3Key == "plants/tomato/alice/key_photo.jpg"
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "task-1"}, nil)

	confirmBody, _ := json.Marshal(gin.H{"object_key": "plants/tomato/alice/key_photo.jpg"})
	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest("POST", "/v1/plant/tomato/photo/confirm", bytes.NewBuffer(confirmBody))
	req2.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w2, req2)

	assert.Equal(t, http.StatusOK, w2.Code)
	mockTaskClient.AssertExpectations(t)
}

func TestRestPlantHandler_PhotoEndpointsUnconfigured(t *testing.T) {
	mockSvc := new(MockPlantService)
	r := setupPlantRouter(mockSvc, nil, nil)

	body, _ := json.Marshal(gin.H{"user_id": "alice", "filename": "photo.jpg", "content_type": "image/jpeg"})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/v1/plant/tomato/photo", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
