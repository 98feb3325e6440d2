package audit

import (
	"context"
	"errors"
	"fmt"

	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Booking_events"

var ErrDuplicateEvent = errors.New("booking event already recorded")

type EventStore interface {
	// Insert returns ErrDuplicateEvent when the event id was recorded before.
	Insert(ctx context.Context, event *model.BookingEvent) error
}

type mongoEventStore struct {
	cfg  *config.Config
	coll *mongo.Collection
}

func NewMongoEventStore(cfg *config.Config) EventStore {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventStore{
		cfg:  cfg,
		coll: db.Collection(CollectionName),
	}
}

func (s *mongoEventStore) Insert(ctx context.Context, event *model.BookingEvent) error {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to insert booking event: %w", err)
	}
	return nil
}
