package services

import (
	"context"
	"fmt"

	"vaultdrive/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AggregateTracker is the aggregate-counter contract the managers depend
// on; FolderStatsService is the Mongo implementation.
type AggregateTracker interface {
	Adjust(ctx context.Context, folderID *primitive.ObjectID, deltaFiles, deltaFolders, deltaSize int64)
}

// FolderStatsService owns every adjustment to a folder's cached aggregate
// counters. File and folder mutations call through here so the increment
// logic has one implementation. Deltas apply to the immediate parent only;
// they are never propagated to grandparents.
type FolderStatsService struct {
	folderCollection *mongo.Collection
}

func NewFolderStatsService(db *mongo.Database) *FolderStatsService {
	return &FolderStatsService{folderCollection: db.Collection("folders")}
}

// Adjust applies signed deltas to a folder's cached file count, folder
// count, and size in a single atomic $inc. A nil folderID (root) is a no-op
// since the root has no counter document.
func (s *FolderStatsService) Adjust(ctx context.Context, folderID *primitive.ObjectID, deltaFiles, deltaFolders, deltaSize int64) {
	if folderID == nil {
		return
	}
	if deltaFiles == 0 && deltaFolders == 0 && deltaSize == 0 {
		return
	}

	_, err := s.folderCollection.UpdateOne(ctx,
		bson.M{"_id": *folderID},
		bson.M{"$inc": bson.M{
			"file_count":   deltaFiles,
			"folder_count": deltaFolders,
			"size":         deltaSize,
		}},
	)
	if err != nil {
		// No user-facing failure mode: the entity mutation this rides
		// along with has already happened. Log so the reconciler and
		// operators can see the drift.
		utils.LogError(fmt.Sprintf("folder stats adjust failed for %s", folderID.Hex()), err)
	}
}
