package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"plantfinder/api/internal/models"
)

// --- Mocks ---

// MockExchangeService
type MockExchangeService struct {
	mock.Mock
}

func (m *MockExchangeService) CreateOffer(ctx context.Context, userID, plantID string, quantity int) (*models.SeedOffer, error) {
	args := m.Called(ctx, userID, plantID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedOffer), args.Error(1)
}

func (m *MockExchangeService) CreateRequest(ctx context.Context, userID, plantID string) (*models.SeedRequest, error) {
	args := m.Called(ctx, userID, plantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedRequest), args.Error(1)
}

func (m *MockExchangeService) CancelOffer(ctx context.Context, userID, offerID string) error {
	args := m.Called(ctx, userID, offerID)
	return args.Error(0)
}

func (m *MockExchangeService) CancelRequest(ctx context.Context, userID, requestID string) error {
	args := m.Called(ctx, userID, requestID)
	return args.Error(0)
}

func (m *MockExchangeService) GetPlantVolume(ctx context.Context, plantID string) (*models.PlantVolume, error) {
	args := m.Called(ctx, plantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlantVolume), args.Error(1)
}

func (m *MockExchangeService) GetAllPlantsVolume(ctx context.Context) ([]models.PlantVolume, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PlantVolume), args.Error(1)
}

func (m *MockExchangeService) GetUserPlantActivity(ctx context.Context, userID, plantID string) (*models.UserPlantActivity, error) {
	args := m.Called(ctx, userID, plantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserPlantActivity), args.Error(1)
}

func (m *MockExchangeService) GetUserAllPlantsActivity(ctx context.Context, userID string) ([]models.UserPlantActivity, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserPlantActivity), args.Error(1)
}

// MockMatchService
type MockMatchService struct {
	mock.Mock
}

func (m *MockMatchService) GetMatchByID(ctx context.Context, matchID string) (*models.MatchDetails, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchDetails), args.Error(1)
}

func (m *MockMatchService) GetUserMatches(ctx context.Context, userID string) ([]models.MatchDetails, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchDetails), args.Error(1)
}

func (m *MockMatchService) GetPlantMatches(ctx context.Context, plantID string) ([]models.MatchDetails, error) {
	args := m.Called(ctx, plantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MatchDetails), args.Error(1)
}

func (m *MockMatchService) ConfirmMatch(ctx context.Context, userID, matchID string) (*models.SeedMatch, error) {
	args := m.Called(ctx, userID, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedMatch), args.Error(1)
}

func (m *MockMatchService) MarkAsSent(ctx context.Context, userID, matchID string) (*models.SeedMatch, error) {
	args := m.Called(ctx, userID, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedMatch), args.Error(1)
}

func (m *MockMatchService) MarkAsReceived(ctx context.Context, userID, matchID string) (*models.SeedMatch, error) {
	args := m.Called(ctx, userID, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedMatch), args.Error(1)
}

func (m *MockMatchService) UpdatePlantingStatus(ctx context.Context, userID, matchID string, status models.PlantingStatus) (*models.SeedMatch, error) {
	args := m.Called(ctx, userID, matchID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SeedMatch), args.Error(1)
}

// MockPlantService
type MockPlantService struct {
	mock.Mock
}

func (m *MockPlantService) RegisterPlant(ctx context.Context, plant *models.Plant) (*models.Plant, error) {
	args := m.Called(ctx, plant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plant), args.Error(1)
}

func (m *MockPlantService) FindPlantByID(ctx context.Context, plantID string) (*models.Plant, error) {
	args := m.Called(ctx, plantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Plant), args.Error(1)
}

func (m *MockPlantService) SearchPlants(ctx context.Context, query string, limit int) ([]models.Plant, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Plant), args.Error(1)
}

func (m *MockPlantService) AddImageToPlant(ctx context.Context, plantID, imageKey string) error {
	args := m.Called(ctx, plantID, imageKey)
	return args.Error(0)
}

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockGeoService
type MockGeoService struct {
	mock.Mock
}

func (m *MockGeoService) DetectLocation(ctx context.Context, clientIP string) (*models.Geolocation, error) {
	args := m.Called(ctx, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Geolocation), args.Error(1)
}

// MockS3Storage
type MockS3Storage struct {
	mock.Mock
}

func (m *MockS3Storage) GeneratePresignedPutURL(ctx context.Context, userID, plantID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, plantID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
