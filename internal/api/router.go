package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"plantfinder/api/internal/api/handlers"
	"plantfinder/api/internal/api/middleware"
	"plantfinder/api/internal/config"
	"plantfinder/api/internal/services"
	"plantfinder/api/internal/storage"
)

// SetupRouter configures and returns the main Gin engine. storageService and
// taskClient may be nil (e.g. in environments without S3/Redis), which
// disables the photo endpoints and match notifications.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, storageService storage.IS3Storage, taskClient handlers.IAsynqClient) *gin.Engine {
	// Initialize services needed by API handlers
	var exchangeTaskClient services.IAsynqClient
	if taskClient != nil {
		exchangeTaskClient = taskClient
	}
	exchangeService := services.NewExchangeService(db, cfg, exchangeTaskClient)
	matchService := services.NewMatchService(db, cfg)
	plantService := services.NewPlantService(db, cfg)
	userService := services.NewUserService(db, cfg)
	geoService := services.NewGeoService(cfg, rdb)

	r := gin.Default()

	// Apply global middleware first (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restExchangeHandler := handlers.NewRestExchangeHandler(exchangeService)
	restMatchHandler := handlers.NewRestMatchHandler(matchService)
	restPlantHandler := handlers.NewRestPlantHandler(plantService, storageService, taskClient)
	restUserHandler := handlers.NewRestUserHandler(userService)
	restGeoHandler := handlers.NewRestGeoHandler(geoService)

	v1 := r.Group("/v1")
	{
		// Exchange routes
		v1.POST("/exchange/offer", restExchangeHandler.CreateOffer)
		v1.POST("/exchange/request", restExchangeHandler.CreateRequest)
		v1.POST("/exchange/offer/:id/cancel", restExchangeHandler.CancelOffer)
		v1.POST("/exchange/request/:id/cancel", restExchangeHandler.CancelRequest)
		v1.GET("/exchange/volume", restExchangeHandler.GetAllPlantsVolume)

		// Match routes
		v1.GET("/match/:id", restMatchHandler.GetMatchByID)
		v1.POST("/match/:id/confirm", restMatchHandler.ConfirmMatch)
		v1.POST("/match/:id/sent", restMatchHandler.MarkAsSent)
		v1.POST("/match/:id/received", restMatchHandler.MarkAsReceived)
		v1.POST("/match/:id/planting", restMatchHandler.UpdatePlantingStatus)

		// Plant routes - search must come before :id to avoid conflicts
		v1.GET("/plant/search", restPlantHandler.SearchPlants)
		v1.GET("/plant/:id", restPlantHandler.GetPlantByID)
		v1.PUT("/plant/:id", restPlantHandler.RegisterPlant)
		v1.GET("/plant/:id/volume", restExchangeHandler.GetPlantVolume)
		v1.GET("/plant/:id/match", restMatchHandler.GetPlantMatches)
		v1.POST("/plant/:id/photo", restPlantHandler.GetPhotoUploadURL)
		v1.POST("/plant/:id/photo/confirm", restPlantHandler.ConfirmPhotoUpload)

		// User routes
		v1.GET("/user/:id", restUserHandler.GetUserByID)
		v1.PUT("/user/:id", restUserHandler.UpsertUser)
		v1.GET("/user/:id/exchange", restExchangeHandler.GetUserActivity)
		v1.GET("/user/:id/exchange/:plant_id", restExchangeHandler.GetUserPlantActivity)
		v1.GET("/user/:id/match", restMatchHandler.GetUserMatches)

		// Geolocation proxy
		v1.GET("/geolocation", restGeoHandler.DetectLocation)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r
}
