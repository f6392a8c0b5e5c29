package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		// Disconnect if ping fails
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	fmt.Println("Successfully connected to MongoDB!")

	return client, db, nil
}

// EnsureIndexes creates the indexes the application queries rely on.
// Creation is idempotent, so it runs on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	plantIndexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "common_name", Value: "text"},
			{Key: "scientific_name", Value: "text"},
			{Key: "description", Value: "text"},
		}},
	}
	if _, err := db.Collection("plants").Indexes().CreateMany(ctx, plantIndexes); err != nil {
		return fmt.Errorf("failed to create plant indexes: %w", err)
	}

	shareIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "plant_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "plant_id", Value: 1}}},
	}
	for _, coll := range []string{"seed_offers", "seed_requests"} {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, shareIndexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}

	matchIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "matched_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "matched_at", Value: -1}}},
		{Keys: bson.D{{Key: "plant_id", Value: 1}, {Key: "matched_at", Value: -1}}},
	}
	if _, err := db.Collection("seed_matches").Indexes().CreateMany(ctx, matchIndexes); err != nil {
		return fmt.Errorf("failed to create match indexes: %w", err)
	}
	return nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	fmt.Println("MongoDB connection closed.")
	return nil
}
