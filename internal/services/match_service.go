package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"plantfinder/api/internal/config"
	"plantfinder/api/internal/models"
)

// IMatchService defines the interface for driving matches through the
// confirm / ship / receive / planting lifecycle and querying them.
type IMatchService interface {
	GetMatchByID(ctx context.Context, matchID string) (*models.MatchDetails, error)
	GetUserMatches(ctx context.Context, userID string) ([]models.MatchDetails, error)
	GetPlantMatches(ctx context.Context, plantID string) ([]models.MatchDetails, error)
	ConfirmMatch(ctx context.Context, userID, matchID string) (*models.SeedMatch, error)
	MarkAsSent(ctx context.Context, userID, matchID string) (*models.SeedMatch, error)
	MarkAsReceived(ctx context.Context, userID, matchID string) (*models.SeedMatch, error)
	UpdatePlantingStatus(ctx context.Context, userID, matchID string, status models.PlantingStatus) (*models.SeedMatch, error)
}

// matchService implements IMatchService.
type matchService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewMatchService creates a new MatchService.
func NewMatchService(db *mongo.Database, cfg *config.Config) IMatchService {
	return &matchService{db: db, cfg: cfg}
}

func (s *matchService) findMatch(ctx context.Context, matchID string) (*models.SeedMatch, error) {
	var match models.SeedMatch
	err := s.db.Collection(matchesCollection).FindOne(ctx, bson.M{"_id": matchID}).Decode(&match)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: match %s", models.ErrNotFound, matchID)
		}
		return nil, fmt.Errorf("failed to find match %s: %w", matchID, err)
	}
	return &match, nil
}

// GetMatchByID returns one match with plant and party names attached.
func (s *matchService) GetMatchByID(ctx context.Context, matchID string) (*models.MatchDetails, error) {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	details := s.enrich(ctx, []models.SeedMatch{*match})
	return &details[0], nil
}

// GetUserMatches returns every match where the user is sender or receiver,
// newest first.
func (s *matchService) GetUserMatches(ctx context.Context, userID string) ([]models.MatchDetails, error) {
	return s.findMatches(ctx, bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}})
}

// GetPlantMatches returns every match for one plant, newest first.
func (s *matchService) GetPlantMatches(ctx context.Context, plantID string) ([]models.MatchDetails, error) {
	return s.findMatches(ctx, bson.M{"plant_id": plantID})
}

func (s *matchService) findMatches(ctx context.Context, filter bson.M) ([]models.MatchDetails, error) {
	opts := options.Find().SetSort(bson.D{{Key: "matched_at", Value: -1}})
	cursor, err := s.db.Collection(matchesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find matches: %w", err)
	}
	var matches []models.SeedMatch
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}
	return s.enrich(ctx, matches), nil
}

// enrich attaches plant display names and party display names. Lookups are
// best effort: a missing plant or user document degrades to a placeholder
// rather than failing the query.
func (s *matchService) enrich(ctx context.Context, matches []models.SeedMatch) []models.MatchDetails {
	details := make([]models.MatchDetails, 0, len(matches))
	plantCache := make(map[string]*models.Plant)
	nameCache := make(map[string]string)

	plantFor := func(plantID string) *models.Plant {
		if cached, ok := plantCache[plantID]; ok {
			return cached
		}
		var plant models.Plant
		if err := s.db.Collection(plantsCollection).FindOne(ctx, bson.M{"_id": plantID}).Decode(&plant); err != nil {
			plantCache[plantID] = nil
			return nil
		}
		plantCache[plantID] = &plant
		return &plant
	}
	nameFor := func(userID string) string {
		if cached, ok := nameCache[userID]; ok {
			return cached
		}
		name := userID
		var user models.User
		if err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err == nil && user.DisplayName != "" {
			name = user.DisplayName
		}
		nameCache[userID] = name
		return name
	}

	for _, match := range matches {
		d := models.MatchDetails{
			SeedMatch:           match,
			PlantCommonName:     "Unknown Plant",
			PlantScientificName: "Unknown",
			SenderName:          nameFor(match.SenderID),
			ReceiverName:        nameFor(match.ReceiverID),
		}
		if plant := plantFor(match.PlantID); plant != nil {
			if plant.CommonName != "" {
				d.PlantCommonName = plant.CommonName
			}
			if plant.ScientificName != "" {
				d.PlantScientificName = plant.ScientificName
			}
		}
		details = append(details, d)
	}
	return details
}

// ConfirmMatch moves a match from matched to confirmed. Only the sender may
// confirm.
func (s *matchService) ConfirmMatch(ctx context.Context, userID, matchID string) (*models.SeedMatch, error) {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.SenderID != userID {
		return nil, fmt.Errorf("%w: only the sender can confirm a match", models.ErrNotAuthorized)
	}
	if match.Status != models.MatchMatched {
		return nil, fmt.Errorf("%w: match %s is %s, expected %s", models.ErrInvalidState, matchID, match.Status, models.MatchMatched)
	}

	now := time.Now().UTC()
	match.Status = models.MatchConfirmed
	match.ConfirmedAt = &now
	_, err = s.db.Collection(matchesCollection).UpdateByID(ctx, matchID, bson.M{"$set": bson.M{
		"status":       match.Status,
		"confirmed_at": now,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm match %s: %w", matchID, err)
	}
	return match, nil
}

// MarkAsSent moves a confirmed match to sent and mirrors the status onto the
// underlying offer and request. Only the sender may mark as sent.
func (s *matchService) MarkAsSent(ctx context.Context, userID, matchID string) (*models.SeedMatch, error) {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.SenderID != userID {
		return nil, fmt.Errorf("%w: only the sender can mark a match as sent", models.ErrNotAuthorized)
	}
	if match.Status != models.MatchConfirmed {
		return nil, fmt.Errorf("%w: match %s is %s, expected %s", models.ErrInvalidState, matchID, match.Status, models.MatchConfirmed)
	}

	now := time.Now().UTC()
	match.Status = models.MatchSent
	match.SentAt = &now
	_, err = s.db.Collection(matchesCollection).UpdateByID(ctx, matchID, bson.M{"$set": bson.M{
		"status":  match.Status,
		"sent_at": now,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to mark match %s as sent: %w", matchID, err)
	}
	if err := s.mirrorStatus(ctx, match, models.StatusSent, now); err != nil {
		return nil, err
	}
	return match, nil
}

// MarkAsReceived moves a sent match to received and mirrors the status onto
// the underlying offer and request. Only the receiver may mark as received.
func (s *matchService) MarkAsReceived(ctx context.Context, userID, matchID string) (*models.SeedMatch, error) {
	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.ReceiverID != userID {
		return nil, fmt.Errorf("%w: only the receiver can mark a match as received", models.ErrNotAuthorized)
	}
	if match.Status != models.MatchSent {
		return nil, fmt.Errorf("%w: match %s is %s, expected %s", models.ErrInvalidState, matchID, match.Status, models.MatchSent)
	}

	now := time.Now().UTC()
	match.Status = models.MatchReceived
	match.ReceivedAt = &now
	_, err = s.db.Collection(matchesCollection).UpdateByID(ctx, matchID, bson.M{"$set": bson.M{
		"status":      match.Status,
		"received_at": now,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to mark match %s as received: %w", matchID, err)
	}
	if err := s.mirrorStatus(ctx, match, models.StatusReceived, now); err != nil {
		return nil, err
	}
	return match, nil
}

// plantingTimestampField maps each planting status to the document field it
// stamps.
var plantingTimestampField = map[models.PlantingStatus]string{
	models.PlantingPlanted:     "planted_at",
	models.PlantingSprouted:    "sprouted_at",
	models.PlantingGrown:       "grown_at",
	models.PlantingFlowered:    "flowered_at",
	models.PlantingSeeded:      "seeded_at",
	models.PlantingEstablished: "established_at",
}

// UpdatePlantingStatus records the receiver's growing progress on a received
// match. Reaching established completes the match along with its offer and
// request; the earlier statuses only stamp their timestamp.
func (s *matchService) UpdatePlantingStatus(ctx context.Context, userID, matchID string, status models.PlantingStatus) (*models.SeedMatch, error) {
	if !models.ValidPlantingStatus(status) {
		return nil, fmt.Errorf("%w: unknown planting status %q", models.ErrValidation, status)
	}

	match, err := s.findMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.ReceiverID != userID {
		return nil, fmt.Errorf("%w: only the receiver can record planting progress", models.ErrNotAuthorized)
	}
	if match.Status != models.MatchReceived && match.Status != models.MatchComplete {
		return nil, fmt.Errorf("%w: planting progress requires a received match, match %s is %s", models.ErrInvalidState, matchID, match.Status)
	}

	now := time.Now().UTC()
	match.PlantingStatus = &status
	update := bson.M{
		"planting_status":               status,
		plantingTimestampField[status]: now,
	}

	if status == models.PlantingEstablished {
		match.Status = models.MatchComplete
		match.CompletedAt = &now
		update["status"] = models.MatchComplete
		update["completed_at"] = now
	}

	_, err = s.db.Collection(matchesCollection).UpdateByID(ctx, matchID, bson.M{"$set": update})
	if err != nil {
		return nil, fmt.Errorf("failed to update planting status on match %s: %w", matchID, err)
	}

	if status == models.PlantingEstablished {
		if err := s.mirrorStatus(ctx, match, models.StatusComplete, now); err != nil {
			return nil, err
		}
	}
	return match, nil
}

// mirrorStatus copies a lifecycle transition onto the match's underlying
// offer and request records.
func (s *matchService) mirrorStatus(ctx context.Context, match *models.SeedMatch, status models.SeedShareStatus, at time.Time) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": at}}
	if _, err := s.db.Collection(offersCollection).UpdateByID(ctx, match.OfferID, update); err != nil {
		return fmt.Errorf("failed to update offer %s to %s: %w", match.OfferID, status, err)
	}
	if _, err := s.db.Collection(requestsCollection).UpdateByID(ctx, match.RequestID, update); err != nil {
		return fmt.Errorf("failed to update request %s to %s: %w", match.RequestID, status, err)
	}
	return nil
}
