package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// MaxUnlockAttempts is the number of consecutive PIN failures allowed
	// before the locker cools down.
	MaxUnlockAttempts = 3

	// UnlockCooldown is how long the locker rejects every unlock and
	// PIN-reset attempt after too many failures.
	UnlockCooldown = 5 * time.Minute
)

// Locker is a user's vault credential document. At most one per owner.
type Locker struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID            primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	PINHash            string              `bson:"pin_hash" json:"-"`
	SecurityQuestion   string              `bson:"security_question" json:"security_question"`
	SecurityAnswerHash string              `bson:"security_answer_hash" json:"-"`
	Attempts           int                 `bson:"attempts" json:"-"`
	LockedUntil        *time.Time          `bson:"locked_until,omitempty" json:"-"`
	VaultFolderID      *primitive.ObjectID `bson:"vault_folder_id,omitempty" json:"-"`
	IsActive           bool                `bson:"is_active" json:"is_active"`
	CreatedAt          time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updated_at"`
}

// InCooldown reports whether the locker is still inside a failure cooldown
// window at the given instant.
func (l *Locker) InCooldown(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// RegisterFailure counts a failed unlock or reset attempt. The cooldown
// starts when the attempt counter reaches MaxUnlockAttempts.
func (l *Locker) RegisterFailure(now time.Time) {
	l.Attempts++
	if l.Attempts >= MaxUnlockAttempts {
		until := now.Add(UnlockCooldown)
		l.LockedUntil = &until
	}
}

// RegisterSuccess clears the attempt counter and any cooldown.
func (l *Locker) RegisterSuccess() {
	l.Attempts = 0
	l.LockedUntil = nil
}

// LockerRecord marks a single file or folder as a member of the owner's
// locker. One record per (owner, item).
type LockerRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID      primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	ItemID       primitive.ObjectID `bson:"item_id" json:"item_id"`
	ItemType     ItemType           `bson:"item_type" json:"item_type"`
	LastUnlockAt *time.Time         `bson:"last_unlock_at,omitempty" json:"last_unlock_at,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}
