package services

import (
	"context"
	"time"

	"vaultdrive/models"
	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TrashEntityStore is the trash-record persistence contract; TrashStore is
// the Mongo implementation.
type TrashEntityStore interface {
	Insert(ctx context.Context, ownerID, itemID primitive.ObjectID, itemType models.ItemType, name, originalPath string, size int64) error
	Find(ctx context.Context, ownerID, recordID primitive.ObjectID) (*models.TrashRecord, error)
	List(ctx context.Context, ownerID primitive.ObjectID, itemType models.ItemType, opts QueryOptions) ([]models.TrashRecord, int64, error)
	ListExpired(ctx context.Context, now time.Time) ([]models.TrashRecord, error)
	ItemIDs(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error)
	Delete(ctx context.Context, ownerID, recordID primitive.ObjectID) error
	DeleteByItem(ctx context.Context, ownerID, itemID primitive.ObjectID) error
}

// TrashStore persists TrashRecord documents. The unique (owner_id, item_id)
// index makes double-trashing an insert conflict.
type TrashStore struct {
	collection    *mongo.Collection
	retentionDays int
}

func NewTrashStore(db *mongo.Database, retentionDays int) *TrashStore {
	return &TrashStore{collection: db.Collection("trash"), retentionDays: retentionDays}
}

func (s *TrashStore) Insert(ctx context.Context, ownerID, itemID primitive.ObjectID, itemType models.ItemType, name, originalPath string, size int64) error {
	now := time.Now()
	record := models.TrashRecord{
		ID:           primitive.NewObjectID(),
		OwnerID:      ownerID,
		ItemID:       itemID,
		ItemType:     itemType,
		Name:         name,
		OriginalPath: originalPath,
		Size:         size,
		TrashedAt:    now,
		AutoPurgeAt:  now.AddDate(0, 0, s.retentionDays),
	}
	if _, err := s.collection.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflict("item is already in the trash")
		}
		return utils.NewInternal("failed to create trash record: %v", err)
	}
	return nil
}

func (s *TrashStore) Find(ctx context.Context, ownerID, recordID primitive.ObjectID) (*models.TrashRecord, error) {
	var record models.TrashRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": recordID, "owner_id": ownerID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewNotFound("trash record not found")
	} else if err != nil {
		return nil, utils.NewInternal("database error: %v", err)
	}
	return &record, nil
}

func (s *TrashStore) List(ctx context.Context, ownerID primitive.ObjectID, itemType models.ItemType, opts QueryOptions) ([]models.TrashRecord, int64, error) {
	filter := bson.M{"owner_id": ownerID}
	if itemType != "" {
		filter["item_type"] = itemType
	}

	total, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.NewInternal("failed to count trash records: %v", err)
	}

	findOpts := opts.findOptions("trashed_at")
	if opts.SortBy == "" {
		findOpts.SetSort(bson.M{"trashed_at": -1})
	}

	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, 0, utils.NewInternal("failed to list trash records: %v", err)
	}
	defer cursor.Close(ctx)

	var records []models.TrashRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, utils.NewInternal("failed to decode trash records: %v", err)
	}
	return records, total, nil
}

// ListExpired returns records whose auto-purge deadline has passed.
func (s *TrashStore) ListExpired(ctx context.Context, now time.Time) ([]models.TrashRecord, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"auto_purge_at": bson.M{"$lte": now}},
		options.Find().SetSort(bson.M{"auto_purge_at": 1}),
	)
	if err != nil {
		return nil, utils.NewInternal("failed to list expired trash: %v", err)
	}
	defer cursor.Close(ctx)

	var records []models.TrashRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, utils.NewInternal("failed to decode expired trash: %v", err)
	}
	return records, nil
}

// ItemIDs returns the ids of every entity the owner currently holds a
// trash record for. Folder restore consults this so items trashed on their
// own keep their trashed state when an enclosing folder comes back.
func (s *TrashStore) ItemIDs(ctx context.Context, ownerID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := s.collection.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetProjection(bson.M{"item_id": 1}),
	)
	if err != nil {
		return nil, utils.NewInternal("failed to list trash items: %v", err)
	}
	defer cursor.Close(ctx)

	var ids []primitive.ObjectID
	for cursor.Next(ctx) {
		var doc struct {
			ItemID primitive.ObjectID `bson:"item_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		ids = append(ids, doc.ItemID)
	}
	if err := cursor.Err(); err != nil {
		return nil, utils.NewInternal("cursor error: %v", err)
	}
	return ids, nil
}

func (s *TrashStore) Delete(ctx context.Context, ownerID, recordID primitive.ObjectID) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": recordID, "owner_id": ownerID}); err != nil {
		return utils.NewInternal("failed to delete trash record: %v", err)
	}
	return nil
}

// DeleteByItem removes the record referencing the given entity, if any.
// Hard deletes call this so purged items never leave dangling records.
func (s *TrashStore) DeleteByItem(ctx context.Context, ownerID, itemID primitive.ObjectID) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID, "item_id": itemID}); err != nil {
		return utils.NewInternal("failed to delete trash record: %v", err)
	}
	return nil
}
