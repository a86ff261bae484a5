package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TrashRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	ItemID       primitive.ObjectID `bson:"item_id" json:"item_id"`
	ItemType     ItemType           `bson:"item_type" json:"item_type"`
	Name         string             `bson:"name" json:"name"`
	OriginalPath string             `bson:"original_path" json:"original_path"`
	Size         int64              `bson:"size" json:"size"`
	TrashedAt    time.Time          `bson:"trashed_at" json:"trashed_at"`
	AutoPurgeAt  time.Time          `bson:"auto_purge_at" json:"auto_purge_at"`
}
