package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"plantfinder/api/internal/config"
	"plantfinder/api/internal/db"
	"plantfinder/api/internal/models"
	"plantfinder/api/internal/utils"
)

func setupTestDBPlant(t *testing.T, dbName string) *mongo.Database {
	database := utils.SetupTestDB(t, dbName, "plants")
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return database
}

func TestPlantService_RegisterAndFind(t *testing.T) {
	database := setupTestDBPlant(t, "testdb_plant_register")
	svc := NewPlantService(database, &config.Config{})
	ctx := context.Background()

	_, err := svc.RegisterPlant(ctx, &models.Plant{ID: "tomato"})
	assert.True(t, errors.Is(err, models.ErrValidation))
	_, err = svc.RegisterPlant(ctx, &models.Plant{CommonName: "Tomato"})
	assert.True(t, errors.Is(err, models.ErrValidation))

	plant, err := svc.RegisterPlant(ctx, &models.Plant{
		ID:             "tomato",
		CommonName:     "Tomato",
		ScientificName: "Solanum lycopersicum",
		Description:    "A warm-season annual.",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Tomato", plant.CommonName)

	found, err := svc.FindPlantByID(ctx, "tomato")
	assert.NoError(t, err)
	assert.Equal(t, "Solanum lycopersicum", found.ScientificName)

	_, err = svc.FindPlantByID(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// Re-registering updates display data and keeps images
	assert.NoError(t, svc.AddImageToPlant(ctx, "tomato", "plants/tomato-1.jpg"))
	updated, err := svc.RegisterPlant(ctx, &models.Plant{
		ID:         "tomato",
		CommonName: "Garden Tomato",
	})
	assert.NoError(t, err)
	assert.Equal(t, "Garden Tomato", updated.CommonName)
	assert.Contains(t, updated.Images, "plants/tomato-1.jpg")
}

func TestPlantService_Search(t *testing.T) {
	database := setupTestDBPlant(t, "testdb_plant_search")
	svc := NewPlantService(database, &config.Config{})
	ctx := context.Background()

	seed := []models.Plant{
		{ID: "tomato", CommonName: "Tomato", ScientificName: "Solanum lycopersicum"},
		{ID: "basil", CommonName: "Sweet Basil", ScientificName: "Ocimum basilicum"},
		{ID: "milkweed", CommonName: "Common Milkweed", ScientificName: "Asclepias syriaca", Description: "Host plant for monarch butterflies."},
	}
	for i := range seed {
		_, err := svc.RegisterPlant(ctx, &seed[i])
		require.NoError(t, err)
	}

	results, err := svc.SearchPlants(ctx, "milkweed", 10)
	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "milkweed", results[0].ID)

	results, err = svc.SearchPlants(ctx, "monarch", 10)
	assert.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "milkweed", results[0].ID)

	// Empty query lists alphabetically
	results, err = svc.SearchPlants(ctx, "", 10)
	assert.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Common Milkweed", results[0].CommonName)

	results, err = svc.SearchPlants(ctx, "zzzz", 10)
	assert.NoError(t, err)
	assert.Len(t, results, 0)
}

func TestPlantService_AddImage(t *testing.T) {
	database := setupTestDBPlant(t, "testdb_plant_image")
	svc := NewPlantService(database, &config.Config{})
	ctx := context.Background()

	err := svc.AddImageToPlant(ctx, "missing", "plants/x.jpg")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = svc.RegisterPlant(ctx, &models.Plant{ID: "basil", CommonName: "Sweet Basil"})
	require.NoError(t, err)

	assert.NoError(t, svc.AddImageToPlant(ctx, "basil", "plants/basil-1.jpg"))
	// Adding the same key twice keeps the array deduplicated
	assert.NoError(t, svc.AddImageToPlant(ctx, "basil", "plants/basil-1.jpg"))

	plant, err := svc.FindPlantByID(ctx, "basil")
	assert.NoError(t, err)
	assert.Equal(t, []string{"plants/basil-1.jpg"}, plant.Images)
}
