package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "Listing_locks"
	lockKeyPrefix      = "listing_lock_"
)

// ListingLockRepository provides advisory locks that serialize
// check-and-reserve per listing.
type ListingLockRepository interface {
	// Acquire returns ErrLockHeld when another owner holds an unexpired lock.
	Acquire(ctx context.Context, listingID, owner string, ttl time.Duration) (*model.ListingLock, error)
	Release(ctx context.Context, lock *model.ListingLock) error
}

type mongoListingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewListingLockRepository(cfg *config.Config) ListingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoListingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func LockKey(listingID string) string {
	return lockKeyPrefix + listingID
}

func (r *mongoListingLockRepository) Acquire(ctx context.Context, listingID, owner string, ttl time.Duration) (*model.ListingLock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	key := LockKey(listingID)

	// The TTL monitor only runs once a minute, so clear an expired lock left
	// behind by a crashed holder before trying to take it.
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "expires_at": bson.M{"$lte": now}}); err != nil {
		return nil, fmt.Errorf("failed to clear expired lock: %w", err)
	}

	lock := &model.ListingLock{
		ID:        key,
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingserrors.ErrLockHeld
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return lock, nil
}

// Release only deletes the lock if it is still owned by the caller, so a lock
// that expired and was re-acquired is left alone.
func (r *mongoListingLockRepository) Release(ctx context.Context, lock *model.ListingLock) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": lock.ID, "owner": lock.Owner}); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
