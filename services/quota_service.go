package services

import (
	"context"
	"fmt"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// QuotaTracker is the slice of the quota ledger the managers depend on;
// QuotaService is the Mongo implementation.
type QuotaTracker interface {
	Adjust(ctx context.Context, ownerID primitive.ObjectID, delta int64) error
	CheckSpace(ctx context.Context, ownerID primitive.ObjectID, additionalSize int64) error
}

// QuotaService is the ledger for a user's used-storage counter. The counter
// is only ever moved by atomic increments; Recompute is the out-of-band
// repair path, never part of a request.
type QuotaService struct {
	userCollection *mongo.Collection
	fileCollection *mongo.Collection
	maxUserStorage int64
}

func NewQuotaService(db *mongo.Database, maxUserStorage int64) *QuotaService {
	return &QuotaService{
		userCollection: db.Collection("users"),
		fileCollection: db.Collection("files"),
		maxUserStorage: maxUserStorage,
	}
}

// Adjust moves the owner's used-storage counter by delta bytes.
func (s *QuotaService) Adjust(ctx context.Context, ownerID primitive.ObjectID, delta int64) error {
	if delta == 0 {
		return nil
	}
	_, err := s.userCollection.UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$inc": bson.M{"used_storage": delta}},
	)
	if err != nil {
		return utils.NewInternal("failed to update storage usage: %v", err)
	}
	return nil
}

// CheckSpace verifies that additionalSize bytes fit in the owner's quota.
func (s *QuotaService) CheckSpace(ctx context.Context, ownerID primitive.ObjectID, additionalSize int64) error {
	var user models.User
	err := s.userCollection.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return utils.NewNotFound("user not found")
	} else if err != nil {
		return utils.NewInternal("database error: %v", err)
	}

	limit := user.MaxStorage
	if limit == 0 {
		limit = s.maxUserStorage
	}
	if user.UsedStorage+additionalSize > limit {
		return utils.NewInsufficientStorage("upload would exceed storage limit")
	}
	return nil
}

// Recompute rebuilds the used counter from a full scan of the owner's
// files and overwrites the ledger value. Trashed files still hold their
// blobs, so they count until purged. This is the defined repair for counter
// drift after a crash between a blob mutation and its quota increment.
func (s *QuotaService) Recompute(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$size"}}}},
	}

	cursor, err := s.fileCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, utils.NewInternal("failed to recompute storage: %v", err)
	}
	defer cursor.Close(ctx)

	var total int64
	if cursor.Next(ctx) {
		var result struct {
			Total int64 `bson:"total"`
		}
		if err := cursor.Decode(&result); err != nil {
			return 0, utils.NewInternal("failed to decode storage total: %v", err)
		}
		total = result.Total
	}

	_, err = s.userCollection.UpdateOne(ctx,
		bson.M{"_id": ownerID},
		bson.M{"$set": bson.M{"used_storage": total}},
	)
	if err != nil {
		return 0, utils.NewInternal("failed to store recomputed usage: %v", err)
	}

	utils.LogInfo(fmt.Sprintf("recomputed storage for user %s: %d bytes", ownerID.Hex(), total))
	return total, nil
}

// AllUserIDs lists every user id, for the reconciliation job.
func (s *QuotaService) AllUserIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cursor, err := s.userCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, utils.NewInternal("failed to list users: %v", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}
