package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type File struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	ParentID     *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"` // nil means root
	Name         string              `bson:"name" json:"name"`                               // stored name, unique on disk
	OriginalName string              `bson:"original_name" json:"original_name"`             // display name, unique among active siblings
	Path         string              `bson:"path" json:"path"`                               // materialized logical path
	StoragePath  string              `bson:"storage_path" json:"-"`                          // opaque blob store handle
	FileType     string              `bson:"file_type" json:"file_type"`
	Size         int64               `bson:"size" json:"size"`
	IsTrashed    bool                `bson:"is_trashed" json:"is_trashed"`
	IsLocked     bool                `bson:"is_locked" json:"is_locked"`
	Metadata     map[string]string   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}
