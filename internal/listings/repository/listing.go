package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	listingserrors "staybook/internal/listings/errors"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	"staybook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Listings"
)

type ListingRepository interface {
	Create(ctx context.Context, listing *model.Listing) error
	FindByID(ctx context.Context, id string) (*model.Listing, error)
	FindAll(ctx context.Context) ([]*model.Listing, error)
	Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
	// FindSummaries returns title and location for the given ids, keyed by id.
	FindSummaries(ctx context.Context, ids []string) (map[string]*model.ListingSummary, error)
	// ReplaceAll deletes every listing and inserts the given ones.
	ReplaceAll(ctx context.Context, listings []*model.Listing) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoListingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoListingRepository(cfg *config.Config) ListingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoListingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManagerFor(cfg.Client.Mongo, cfg.MongoUseTransactions),
	}
}

func (r *mongoListingRepository) Create(ctx context.Context, listing *model.Listing) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	stamp(listing, time.Now())
	result, err := r.collection.InsertOne(ctx, listing)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		listing.ID = oid.Hex()
	}
	return nil
}

func (r *mongoListingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", listingserrors.ErrInvalidID, id)
	}

	var listing model.Listing
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, listingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}

	return &listing, nil
}

func (r *mongoListingRepository) FindAll(ctx context.Context) ([]*model.Listing, error) {
	return r.find(ctx, bson.M{})
}

func (r *mongoListingRepository) Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	return r.find(ctx, buildSearchFilter(filter))
}

func (r *mongoListingRepository) find(ctx context.Context, filter bson.M) ([]*model.Listing, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []*model.Listing{}
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}

	return listings, nil
}

func (r *mongoListingRepository) FindSummaries(ctx context.Context, ids []string) (map[string]*model.ListingSummary, error) {
	summaries := make(map[string]*model.ListingSummary, len(ids))

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			objectIDs = append(objectIDs, oid)
		}
	}
	if len(objectIDs) == 0 {
		return summaries, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"title": 1, "location": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find listing summaries: %w", err)
	}
	defer cursor.Close(ctx)

	var found []*model.ListingSummary
	if err = cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode listing summaries: %w", err)
	}
	for _, s := range found {
		summaries[s.ID] = s
	}
	return summaries, nil
}

func (r *mongoListingRepository) ReplaceAll(ctx context.Context, listings []*model.Listing) error {
	return r.ExecuteTransaction(ctx, func(ctx context.Context) error {
		ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
		defer cancel()

		if _, err := r.collection.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clear listings: %w", err)
		}
		if len(listings) == 0 {
			return nil
		}

		now := time.Now()
		docs := make([]any, len(listings))
		for i, l := range listings {
			stamp(l, now)
			docs[i] = l
		}

		result, err := r.collection.InsertMany(ctx, docs)
		if err != nil {
			return fmt.Errorf("failed to insert listings: %w", err)
		}
		for i, id := range result.InsertedIDs {
			if oid, ok := id.(primitive.ObjectID); ok {
				listings[i].ID = oid.Hex()
			}
		}
		return nil
	})
}

func (r *mongoListingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func stamp(l *model.Listing, now time.Time) {
	now = now.UTC().Truncate(time.Millisecond)
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
}

// buildSearchFilter renders the same predicate as model.ListingFilter.Matches.
func buildSearchFilter(f model.ListingFilter) bson.M {
	filter := bson.M{}

	if f.Location != "" {
		filter["location"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Location), Options: "i"}
	}
	if f.HasDateRange() {
		filter["available_from"] = bson.M{"$lte": *f.CheckIn}
		filter["available_to"] = bson.M{"$gte": *f.CheckOut}
	}
	if f.Guests != nil {
		filter["max_guests"] = bson.M{"$gte": *f.Guests}
	}
	if f.MaxPrice != nil {
		filter["price_per_night"] = bson.M{"$lte": *f.MaxPrice}
	}

	return filter
}
