package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectDatabase establishes the MongoDB connection and stores the database
// handle in config.DB.
func ConnectDatabase() (*mongo.Client, error) {
	ctx, cancel := CreateContext(10 * time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(AppConfig.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	DB = client.Database(AppConfig.DatabaseName)
	return client, nil
}

// EnsureIndexes creates the indexes the services rely on:
//   - partial unique (owner_id, parent_id, original_name/name) on active
//     files and folders, the backstop for the check-then-act sibling name
//     race; violations surface as duplicate key errors mapped to Conflict
//   - unique (owner_id, item_id) on trash and locker records, preventing
//     double-trashing and double-locking
//   - (owner_id, path) on folders for subtree prefix queries
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	activeFilter := bson.M{"is_trashed": false, "is_locked": false}

	fileIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "original_name", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(activeFilter),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "is_trashed", Value: 1}},
		},
	}
	if _, err := db.Collection("files").Indexes().CreateMany(ctx, fileIndexes); err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}

	folderIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "parent_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(activeFilter),
		},
		{
			Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "path", Value: 1}},
		},
	}
	if _, err := db.Collection("folders").Indexes().CreateMany(ctx, folderIndexes); err != nil {
		return fmt.Errorf("failed to create folder indexes: %w", err)
	}

	trashIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "item_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("trash").Indexes().CreateOne(ctx, trashIndex); err != nil {
		return fmt.Errorf("failed to create trash index: %w", err)
	}

	lockerRecordIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "item_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("locker_items").Indexes().CreateOne(ctx, lockerRecordIndex); err != nil {
		return fmt.Errorf("failed to create locker item index: %w", err)
	}

	lockerIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("lockers").Indexes().CreateOne(ctx, lockerIndex); err != nil {
		return fmt.Errorf("failed to create locker index: %w", err)
	}

	return nil
}
