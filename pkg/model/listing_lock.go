package model

import "time"

// ListingLock is an advisory lock serializing check-and-reserve for a single
// listing. The _id is the lock key, so a second insert fails with a
// duplicate key error while the lock is held.
type ListingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
