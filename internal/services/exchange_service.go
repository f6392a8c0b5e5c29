package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plantfinder/api/internal/config"
	"plantfinder/api/internal/db"
	"plantfinder/api/internal/models"
)

// IExchangeService defines the interface for the seed exchange matcher:
// offer/request intake, automatic pairing, cancellation and volume queries.
type IExchangeService interface {
	CreateOffer(ctx context.Context, userID, plantID string, quantity int) (*models.SeedOffer, error)
	CreateRequest(ctx context.Context, userID, plantID string) (*models.SeedRequest, error)
	CancelOffer(ctx context.Context, userID, offerID string) error
	CancelRequest(ctx context.Context, userID, requestID string) error
	GetPlantVolume(ctx context.Context, plantID string) (*models.PlantVolume, error)
	GetAllPlantsVolume(ctx context.Context) ([]models.PlantVolume, error)
	GetUserPlantActivity(ctx context.Context, userID, plantID string) (*models.UserPlantActivity, error)
	GetUserAllPlantsActivity(ctx context.Context, userID string) ([]models.UserPlantActivity, error)
}

// IAsynqClient defines the interface for the Asynq client methods used by
// the exchange service. This allows easier mocking than using the concrete
// asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TypeMatchNotify is the background task enqueued whenever the matcher pairs
// an offer with a request, so both parties get an email. The handler lives in
// internal/tasks; the type is declared here because the matcher owns the
// enqueue side.
const TypeMatchNotify = "match:notify"

// MatchNotifyPayload is the payload for TypeMatchNotify tasks.
type MatchNotifyPayload struct {
	MatchID string `json:"match_id"`
}

const (
	offersCollection   = "seed_offers"
	requestsCollection = "seed_requests"
	matchesCollection  = "seed_matches"
)

// exchangeService implements IExchangeService.
type exchangeService struct {
	db  *mongo.Database
	cfg *config.Config

	// Serializes the read-open-items-then-mutate sections so concurrent HTTP
	// callers cannot double-allocate a packet or slip past the one-open-offer
	// check between the read and the write.
	mu sync.Mutex

	taskClient IAsynqClient // optional; nil disables match notifications
}

// NewExchangeService creates a new ExchangeService. taskClient may be nil,
// in which case no match notification tasks are enqueued.
func NewExchangeService(db *mongo.Database, cfg *config.Config, taskClient IAsynqClient) IExchangeService {
	return &exchangeService{db: db, cfg: cfg, taskClient: taskClient}
}

// CreateOffer creates an open offer and immediately satisfies it against
// existing open requests for the same plant, oldest first, one packet per
// request. The returned offer reflects any consumption that occurred.
func (s *exchangeService) CreateOffer(ctx context.Context, userID, plantID string, quantity int) (*models.SeedOffer, error) {
	if userID == "" || plantID == "" {
		return nil, fmt.Errorf("%w: user id and plant id are required", models.ErrValidation)
	}
	if quantity < models.MinOfferQuantity || quantity > models.MaxOfferQuantity {
		return nil, fmt.Errorf("%w: offer quantity must be between %d and %d packets",
			models.ErrValidation, models.MinOfferQuantity, models.MaxOfferQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offers := s.db.Collection(offersCollection)

	// One non-cancelled offer per (user, plant) at a time.
	count, err := offers.CountDocuments(ctx, bson.M{
		"user_id":  userID,
		"plant_id": plantID,
		"status":   bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing offers for user %s: %w", userID, err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: user already has an active offer for plant %s", models.ErrConflict, plantID)
	}

	now := time.Now().UTC()
	offer := &models.SeedOffer{
		ID:        uuid.NewString(),
		PlantID:   plantID,
		UserID:    userID,
		Quantity:  quantity,
		Status:    models.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = db.Try(func() error {
		_, insertErr := offers.InsertOne(ctx, offer)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert offer for user %s: %w", userID, err)
	}

	if err := s.matchOfferWithRequests(ctx, offer); err != nil {
		return nil, err
	}

	return offer, nil
}

// CreateRequest creates an open request (always one packet) and immediately
// tries to satisfy it against the oldest open offer for the same plant,
// excluding the requester's own offers.
func (s *exchangeService) CreateRequest(ctx context.Context, userID, plantID string) (*models.SeedRequest, error) {
	if userID == "" || plantID == "" {
		return nil, fmt.Errorf("%w: user id and plant id are required", models.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests := s.db.Collection(requestsCollection)

	// One non-cancelled request per (user, plant) at a time.
	count, err := requests.CountDocuments(ctx, bson.M{
		"user_id":  userID,
		"plant_id": plantID,
		"status":   bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing requests for user %s: %w", userID, err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: user already has an active request for plant %s", models.ErrConflict, plantID)
	}

	now := time.Now().UTC()
	request := &models.SeedRequest{
		ID:        uuid.NewString(),
		PlantID:   plantID,
		UserID:    userID,
		Quantity:  1,
		Status:    models.StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = db.Try(func() error {
		_, insertErr := requests.InsertOne(ctx, request)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert request for user %s: %w", userID, err)
	}

	if err := s.matchRequestWithOffer(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// matchOfferWithRequests consumes the new offer against open requests for
// the same plant, oldest first, skipping the offerer's own requests. The
// offer document is updated in place (and in the db) with the remaining
// quantity and resulting status.
func (s *exchangeService) matchOfferWithRequests(ctx context.Context, offer *models.SeedOffer) error {
	requests := s.db.Collection(requestsCollection)

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(offer.Quantity))
	cursor, err := requests.Find(ctx, bson.M{
		"plant_id": offer.PlantID,
		"status":   models.StatusOpen,
		"user_id":  bson.M{"$ne": offer.UserID}, // never match a user with themselves
	}, opts)
	if err != nil {
		return fmt.Errorf("failed to find open requests for plant %s: %w", offer.PlantID, err)
	}
	var open []models.SeedRequest
	if err := cursor.All(ctx, &open); err != nil {
		return fmt.Errorf("failed to decode open requests for plant %s: %w", offer.PlantID, err)
	}

	remaining := offer.Quantity
	for i := range open {
		if remaining <= 0 {
			break
		}
		if err := s.createMatch(ctx, offer, &open[i]); err != nil {
			return err
		}
		remaining--
	}

	offer.Quantity = remaining
	if remaining == 0 {
		offer.Status = models.StatusMatched
	}
	offer.UpdatedAt = time.Now().UTC()

	_, err = s.db.Collection(offersCollection).UpdateByID(ctx, offer.ID, bson.M{"$set": bson.M{
		"quantity":   offer.Quantity,
		"status":     offer.Status,
		"updated_at": offer.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update offer %s after matching: %w", offer.ID, err)
	}
	return nil
}

// matchRequestWithOffer satisfies the new request against the single oldest
// open offer with remaining quantity, skipping the requester's own offers.
// If no offer is available the request simply stays open.
func (s *exchangeService) matchRequestWithOffer(ctx context.Context, request *models.SeedRequest) error {
	offers := s.db.Collection(offersCollection)

	var offer models.SeedOffer
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}})
	err := offers.FindOne(ctx, bson.M{
		"plant_id": request.PlantID,
		"status":   models.StatusOpen,
		"quantity": bson.M{"$gt": 0},
		"user_id":  bson.M{"$ne": request.UserID}, // never match a user with themselves
	}, opts).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil // no supply; request remains open
		}
		return fmt.Errorf("failed to find open offer for plant %s: %w", request.PlantID, err)
	}

	if err := s.createMatch(ctx, &offer, request); err != nil {
		return err
	}

	offer.Quantity--
	if offer.Quantity == 0 {
		offer.Status = models.StatusMatched
	}
	offer.UpdatedAt = time.Now().UTC()
	_, err = offers.UpdateByID(ctx, offer.ID, bson.M{"$set": bson.M{
		"quantity":   offer.Quantity,
		"status":     offer.Status,
		"updated_at": offer.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update offer %s after matching: %w", offer.ID, err)
	}
	return nil
}

// createMatch pairs one packet of the offer with the request, marks the
// request matched and enqueues the notification task.
func (s *exchangeService) createMatch(ctx context.Context, offer *models.SeedOffer, request *models.SeedRequest) error {
	now := time.Now().UTC()
	match := &models.SeedMatch{
		ID:         uuid.NewString(),
		OfferID:    offer.ID,
		RequestID:  request.ID,
		PlantID:    offer.PlantID,
		SenderID:   offer.UserID,
		ReceiverID: request.UserID,
		Quantity:   1, // a request is always for one packet
		Status:     models.MatchMatched,
		MatchedAt:  now,
	}

	err := db.Try(func() error {
		_, insertErr := s.db.Collection(matchesCollection).InsertOne(ctx, match)
		return insertErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert match for offer %s / request %s: %w", offer.ID, request.ID, err)
	}

	request.Status = models.StatusMatched
	request.UpdatedAt = now
	_, err = s.db.Collection(requestsCollection).UpdateByID(ctx, request.ID, bson.M{"$set": bson.M{
		"status":     request.Status,
		"updated_at": request.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to mark request %s matched: %w", request.ID, err)
	}

	s.enqueueMatchNotification(ctx, match.ID)
	return nil
}

// enqueueMatchNotification enqueues the email notification for a fresh match.
// Failures are logged, not propagated: notification delivery is best effort
// and must not undo a completed pairing.
func (s *exchangeService) enqueueMatchNotification(ctx context.Context, matchID string) {
	if s.taskClient == nil {
		return
	}
	payloadBytes, err := json.Marshal(MatchNotifyPayload{MatchID: matchID})
	if err != nil {
		log.Printf("Failed to marshal match notification payload for match %s: %v", matchID, err)
		return
	}
	task := asynq.NewTask(TypeMatchNotify, payloadBytes)
	if _, err := s.taskClient.EnqueueContext(ctx, task); err != nil {
		log.Printf("Failed to enqueue match notification for match %s: %v", matchID, err)
	}
}

// CancelOffer cancels an open offer owned by the user.
func (s *exchangeService) CancelOffer(ctx context.Context, userID, offerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	offers := s.db.Collection(offersCollection)

	var offer models.SeedOffer
	if err := offers.FindOne(ctx, bson.M{"_id": offerID}).Decode(&offer); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: offer %s", models.ErrNotFound, offerID)
		}
		return fmt.Errorf("failed to find offer %s: %w", offerID, err)
	}
	if offer.UserID != userID {
		return fmt.Errorf("%w: only the owner can cancel an offer", models.ErrNotAuthorized)
	}
	if offer.Status != models.StatusOpen {
		// Once paired, the exchange must run through the match lifecycle.
		return fmt.Errorf("%w: only open offers can be cancelled", models.ErrInvalidState)
	}

	_, err := offers.UpdateByID(ctx, offerID, bson.M{"$set": bson.M{
		"status":     models.StatusCancelled,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to cancel offer %s: %w", offerID, err)
	}
	return nil
}

// CancelRequest cancels an open request owned by the user.
func (s *exchangeService) CancelRequest(ctx context.Context, userID, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := s.db.Collection(requestsCollection)

	var request models.SeedRequest
	if err := requests.FindOne(ctx, bson.M{"_id": requestID}).Decode(&request); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: request %s", models.ErrNotFound, requestID)
		}
		return fmt.Errorf("failed to find request %s: %w", requestID, err)
	}
	if request.UserID != userID {
		return fmt.Errorf("%w: only the owner can cancel a request", models.ErrNotAuthorized)
	}
	if request.Status != models.StatusOpen {
		return fmt.Errorf("%w: only open requests can be cancelled", models.ErrInvalidState)
	}

	_, err := requests.UpdateByID(ctx, requestID, bson.M{"$set": bson.M{
		"status":     models.StatusCancelled,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("failed to cancel request %s: %w", requestID, err)
	}
	return nil
}

// GetPlantVolume sums the quantity over open offers and counts open requests
// for one plant.
func (s *exchangeService) GetPlantVolume(ctx context.Context, plantID string) (*models.PlantVolume, error) {
	volume := &models.PlantVolume{PlantID: plantID}

	cursor, err := s.db.Collection(offersCollection).Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"plant_id": plantID, "status": models.StatusOpen}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$plant_id", "total": bson.M{"$sum": "$quantity"}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate open offers for plant %s: %w", plantID, err)
	}
	var offerTotals []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &offerTotals); err != nil {
		return nil, fmt.Errorf("failed to decode offer totals for plant %s: %w", plantID, err)
	}
	if len(offerTotals) > 0 {
		volume.OpenOffers = offerTotals[0].Total
	}

	requestCount, err := s.db.Collection(requestsCollection).CountDocuments(ctx, bson.M{
		"plant_id": plantID,
		"status":   models.StatusOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count open requests for plant %s: %w", plantID, err)
	}
	volume.OpenRequests = int(requestCount)

	return volume, nil
}

// GetAllPlantsVolume aggregates open offer packets and open request counts
// per plant, for every plant with at least one open offer or request.
// Plants with no open activity are omitted.
func (s *exchangeService) GetAllPlantsVolume(ctx context.Context) ([]models.PlantVolume, error) {
	byPlant := make(map[string]*models.PlantVolume)

	offerCursor, err := s.db.Collection(offersCollection).Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": models.StatusOpen}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$plant_id", "total": bson.M{"$sum": "$quantity"}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate open offers: %w", err)
	}
	var offerTotals []struct {
		PlantID string `bson:"_id"`
		Total   int    `bson:"total"`
	}
	if err := offerCursor.All(ctx, &offerTotals); err != nil {
		return nil, fmt.Errorf("failed to decode open offer totals: %w", err)
	}
	for _, ot := range offerTotals {
		byPlant[ot.PlantID] = &models.PlantVolume{PlantID: ot.PlantID, OpenOffers: ot.Total}
	}

	requestCursor, err := s.db.Collection(requestsCollection).Aggregate(ctx, mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"status": models.StatusOpen}}},
		bson.D{{Key: "$group", Value: bson.M{"_id": "$plant_id", "total": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate open requests: %w", err)
	}
	var requestTotals []struct {
		PlantID string `bson:"_id"`
		Total   int    `bson:"total"`
	}
	if err := requestCursor.All(ctx, &requestTotals); err != nil {
		return nil, fmt.Errorf("failed to decode open request totals: %w", err)
	}
	for _, rt := range requestTotals {
		if existing, ok := byPlant[rt.PlantID]; ok {
			existing.OpenRequests = rt.Total
		} else {
			byPlant[rt.PlantID] = &models.PlantVolume{PlantID: rt.PlantID, OpenRequests: rt.Total}
		}
	}

	volumes := make([]models.PlantVolume, 0, len(byPlant))
	for _, v := range byPlant {
		volumes = append(volumes, *v)
	}
	return volumes, nil
}

// GetUserPlantActivity reports the user's non-cancelled offer and request
// for one plant, if any.
func (s *exchangeService) GetUserPlantActivity(ctx context.Context, userID, plantID string) (*models.UserPlantActivity, error) {
	activity := &models.UserPlantActivity{PlantID: plantID}

	var offer models.SeedOffer
	err := s.db.Collection(offersCollection).FindOne(ctx, bson.M{
		"user_id":  userID,
		"plant_id": plantID,
		"status":   bson.M{"$ne": models.StatusCancelled},
	}).Decode(&offer)
	switch {
	case err == nil:
		activity.HasActiveOffer = true
		activity.ActiveOfferID = offer.ID
		activity.ActiveOfferQuantity = offer.Quantity
		status := offer.Status
		activity.ActiveOfferStatus = &status
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("failed to find active offer for user %s: %w", userID, err)
	}

	var request models.SeedRequest
	err = s.db.Collection(requestsCollection).FindOne(ctx, bson.M{
		"user_id":  userID,
		"plant_id": plantID,
		"status":   bson.M{"$ne": models.StatusCancelled},
	}).Decode(&request)
	switch {
	case err == nil:
		activity.HasActiveRequest = true
		activity.ActiveRequestID = request.ID
		status := request.Status
		activity.ActiveRequestStatus = &status
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("failed to find active request for user %s: %w", userID, err)
	}

	return activity, nil
}

// GetUserAllPlantsActivity reports the user's non-cancelled offers and
// requests across all plants.
func (s *exchangeService) GetUserAllPlantsActivity(ctx context.Context, userID string) ([]models.UserPlantActivity, error) {
	byPlant := make(map[string]*models.UserPlantActivity)

	offerCursor, err := s.db.Collection(offersCollection).Find(ctx, bson.M{
		"user_id": userID,
		"status":  bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find offers for user %s: %w", userID, err)
	}
	var userOffers []models.SeedOffer
	if err := offerCursor.All(ctx, &userOffers); err != nil {
		return nil, fmt.Errorf("failed to decode offers for user %s: %w", userID, err)
	}
	for i := range userOffers {
		offer := userOffers[i]
		status := offer.Status
		byPlant[offer.PlantID] = &models.UserPlantActivity{
			PlantID:             offer.PlantID,
			HasActiveOffer:      true,
			ActiveOfferID:       offer.ID,
			ActiveOfferQuantity: offer.Quantity,
			ActiveOfferStatus:   &status,
		}
	}

	requestCursor, err := s.db.Collection(requestsCollection).Find(ctx, bson.M{
		"user_id": userID,
		"status":  bson.M{"$ne": models.StatusCancelled},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find requests for user %s: %w", userID, err)
	}
	var userRequests []models.SeedRequest
	if err := requestCursor.All(ctx, &userRequests); err != nil {
		return nil, fmt.Errorf("failed to decode requests for user %s: %w", userID, err)
	}
	for i := range userRequests {
		request := userRequests[i]
		status := request.Status
		if existing, ok := byPlant[request.PlantID]; ok {
			existing.HasActiveRequest = true
			existing.ActiveRequestID = request.ID
			existing.ActiveRequestStatus = &status
		} else {
			byPlant[request.PlantID] = &models.UserPlantActivity{
				PlantID:             request.PlantID,
				HasActiveRequest:    true,
				ActiveRequestID:     request.ID,
				ActiveRequestStatus: &status,
			}
		}
	}

	activities := make([]models.UserPlantActivity, 0, len(byPlant))
	for _, a := range byPlant {
		activities = append(activities, *a)
	}
	return activities, nil
}
