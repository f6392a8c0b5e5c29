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
	usersCollection = "users"
)

// IUserService defines the interface for member profiles.
type IUserService interface {
	FindUserByID(ctx context.Context, userID string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
}

// userService implements IUserService.
type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

// FindUserByID finds a user by their ID.
func (s *userService) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: user %s", models.ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to find user %s: %w", userID, err)
	}
	return &user, nil
}

// UpsertUser creates or updates a member profile keyed by user ID.
func (s *userService) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	if strings.TrimSpace(user.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", models.ErrValidation)
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"display_name": user.DisplayName,
			"email":        user.Email,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.db.Collection(usersCollection).UpdateByID(ctx, user.ID, update, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return s.FindUserByID(ctx, user.ID)
}
