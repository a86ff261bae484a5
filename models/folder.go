package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Folder struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	ParentID  *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	Name      string              `bson:"name" json:"name"`
	Path      string              `bson:"path" json:"path"`
	IsTrashed bool                `bson:"is_trashed" json:"is_trashed"`
	IsLocked  bool                `bson:"is_locked" json:"is_locked"`

	// Cached aggregates over direct active children only. Maintained
	// incrementally through FolderStatsService, never recomputed inline.
	Size        int64 `bson:"size" json:"size"`
	FileCount   int64 `bson:"file_count" json:"file_count"`
	FolderCount int64 `bson:"folder_count" json:"folder_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
