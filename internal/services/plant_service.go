package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plantfinder/api/internal/config"
	"plantfinder/api/internal/models"
)

const (
	plantsCollection = "plants"
)

// IPlantService defines the interface for the plant catalog.
type IPlantService interface {
	RegisterPlant(ctx context.Context, plant *models.Plant) (*models.Plant, error)
	FindPlantByID(ctx context.Context, plantID string) (*models.Plant, error)
	SearchPlants(ctx context.Context, query string, limit int) ([]models.Plant, error)
	AddImageToPlant(ctx context.Context, plantID, imageKey string) error
}

// plantService implements IPlantService.
type plantService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewPlantService creates a new PlantService.
func NewPlantService(db *mongo.Database, cfg *config.Config) IPlantService {
	return &plantService{db: db, cfg: cfg}
}

// RegisterPlant upserts catalog data keyed by plant ID. Registering the
// same plant again replaces its display data but keeps accumulated images.
func (s *plantService) RegisterPlant(ctx context.Context, plant *models.Plant) (*models.Plant, error) {
	if plant == nil || strings.TrimSpace(plant.ID) == "" {
		return nil, fmt.Errorf("%w: plant id is required", models.ErrValidation)
	}
	if strings.TrimSpace(plant.CommonName) == "" {
		return nil, fmt.Errorf("%w: plant common name is required", models.ErrValidation)
	}

	plant.UpdatedAt = time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"common_name":     plant.CommonName,
		"scientific_name": plant.ScientificName,
		"description":     plant.Description,
		"updated_at":      plant.UpdatedAt,
	}}

	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(plantsCollection).UpdateByID(ctx, plant.ID, update, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to register plant %s: %w", plant.ID, err)
	}
	return s.FindPlantByID(ctx, plant.ID)
}

// FindPlantByID finds a plant by its ID.
func (s *plantService) FindPlantByID(ctx context.Context, plantID string) (*models.Plant, error) {
	var plant models.Plant
	err := s.db.Collection(plantsCollection).FindOne(ctx, bson.M{"_id": plantID}).Decode(&plant)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: plant %s", models.ErrNotFound, plantID)
		}
		return nil, fmt.Errorf("failed to find plant %s: %w", plantID, err)
	}
	return &plant, nil
}

// SearchPlants runs a text search over the catalog, best score first. An
// empty query lists plants alphabetically by common name.
func (s *plantService) SearchPlants(ctx context.Context, query string, limit int) ([]models.Plant, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	filter := bson.M{}
	opts := options.Find().SetLimit(int64(limit))
	if strings.TrimSpace(query) != "" {
		filter["$text"] = bson.M{"$search": query}
		opts.SetProjection(bson.D{{Key: "score", Value: bson.M{"meta": "textScore"}}})
		opts.SetSort(bson.D{{Key: "score", Value: bson.M{"meta": "textScore"}}})
	} else {
		opts.SetSort(bson.D{{Key: "common_name", Value: 1}})
	}

	cursor, err := s.db.Collection(plantsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search plants: %w", err)
	}
	var plants []models.Plant
	if err := cursor.All(ctx, &plants); err != nil {
		return nil, fmt.Errorf("failed to decode plant search results: %w", err)
	}
	return plants, nil
}

// AddImageToPlant adds a processed image key to a plant's image array. It
// should only be called after the image processing task is complete.
func (s *plantService) AddImageToPlant(ctx context.Context, plantID, imageKey string) error {
	update := bson.M{
		"$addToSet": bson.M{"images": imageKey},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := s.db.Collection(plantsCollection).UpdateByID(ctx, plantID, update)
	if err != nil {
		return fmt.Errorf("db error adding image %s to plant %s: %w", imageKey, plantID, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: plant %s", models.ErrNotFound, plantID)
	}
	return nil
}
