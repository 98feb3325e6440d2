package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	listingserrors "staybook/internal/listings/errors"
	"staybook/internal/listings/validator"
	"staybook/pkg/cache"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostID = "64b7f0c2a1b2c3d4e5f60718"

type mockListingRepository struct {
	createFunc   func(ctx context.Context, listing *model.Listing) error
	findByIDFunc func(ctx context.Context, id string) (*model.Listing, error)
	findAllFunc  func(ctx context.Context) ([]*model.Listing, error)
	searchFunc   func(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
}

func (m *mockListingRepository) Create(ctx context.Context, listing *model.Listing) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, listing)
	}
	listing.ID = "64b7f0c2a1b2c3d4e5f60720"
	return nil
}

func (m *mockListingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, listingserrors.ErrNotFound
}

func (m *mockListingRepository) FindAll(ctx context.Context) ([]*model.Listing, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return []*model.Listing{}, nil
}

func (m *mockListingRepository) Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, filter)
	}
	return []*model.Listing{}, nil
}

func (m *mockListingRepository) FindSummaries(ctx context.Context, ids []string) (map[string]*model.ListingSummary, error) {
	return map[string]*model.ListingSummary{}, nil
}

func (m *mockListingRepository) ReplaceAll(ctx context.Context, listings []*model.Listing) error {
	return nil
}

func (m *mockListingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func newTestService(repo *mockListingRepository, c cache.Cache) ListingService {
	log := logger.NewNop()
	cfg := &config.Config{Log: log, CacheTTL: time.Minute}
	return NewListingService(repo, validator.NewListingValidator(log), c, cfg)
}

func validRequest() *model.CreateListingRequest {
	return &model.CreateListingRequest{
		Title:         "  Beachside   Bungalow ",
		Location:      "Goa, India",
		PricePerNight: 95,
		MaxGuests:     2,
		Amenities:     []string{"Wi-Fi", " Pool ", "wi-fi", ""},
		AvailableFrom: "2025-06-15",
		AvailableTo:   "2025-10-31",
		Description:   "Relax in a beachside bungalow with ocean views.",
	}
}

func TestGetByID_NotFound(t *testing.T) {
	svc := newTestService(&mockListingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Listing, error) {
			if id == "not-an-id" {
				return nil, listingserrors.ErrInvalidID
			}
			return nil, listingserrors.ErrNotFound
		},
	}, nil)

	for _, id := range []string{"64b7f0c2a1b2c3d4e5f60799", "not-an-id"} {
		_, err := svc.GetByID(context.Background(), id)
		appErr := apperrors.AsAppError(err)
		assert.Equal(t, 404, appErr.StatusCode(), id)
		assert.Contains(t, appErr.Message, "not found")
	}
}

func TestCreate_SanitizesAndKeepsAmenityOrder(t *testing.T) {
	var stored *model.Listing
	svc := newTestService(&mockListingRepository{
		createFunc: func(ctx context.Context, listing *model.Listing) error {
			stored = listing
			listing.ID = "64b7f0c2a1b2c3d4e5f60720"
			return nil
		},
	}, nil)

	listing, err := svc.Create(context.Background(), hostID, validRequest())
	require.NoError(t, err)
	require.Same(t, stored, listing)

	assert.Equal(t, "Beachside Bungalow", listing.Title)
	assert.Equal(t, []string{"Wi-Fi", "Pool"}, listing.Amenities)
	assert.Equal(t, hostID, listing.HostID)
	assert.Equal(t, model.DefaultListingImage, listing.Image)
	assert.True(t, listing.AvailableFrom.Equal(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)))
}

func TestCreate_Validation(t *testing.T) {
	svc := newTestService(&mockListingRepository{
		createFunc: func(ctx context.Context, listing *model.Listing) error {
			t.Fatal("create must not be called")
			return nil
		},
	}, nil)

	tests := []struct {
		name   string
		mutate func(r *model.CreateListingRequest)
	}{
		{name: "window reversed", mutate: func(r *model.CreateListingRequest) { r.AvailableFrom, r.AvailableTo = r.AvailableTo, r.AvailableFrom }},
		{name: "bad date", mutate: func(r *model.CreateListingRequest) { r.AvailableFrom = "soon" }},
		{name: "zero price", mutate: func(r *model.CreateListingRequest) { r.PricePerNight = 0 }},
		{name: "no guests", mutate: func(r *model.CreateListingRequest) { r.MaxGuests = 0 }},
		{name: "missing title", mutate: func(r *model.CreateListingRequest) { r.Title = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), hostID, req)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}
}

func TestSearch_RejectsBadNumbers(t *testing.T) {
	svc := newTestService(&mockListingRepository{}, nil)
	zero := 0
	neg := -1.0

	_, err := svc.Search(context.Background(), model.NewListingFilter("", nil, nil, &zero, nil))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = svc.Search(context.Background(), model.NewListingFilter("", nil, nil, nil, &neg))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestListAll_CachedUntilCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var calls atomic.Int32
	repo := &mockListingRepository{
		findAllFunc: func(ctx context.Context) ([]*model.Listing, error) {
			calls.Add(1)
			return []*model.Listing{{ID: "l1", Title: "Loft", Amenities: []string{"Wi-Fi", "Pool"}}}, nil
		},
	}
	svc := newTestService(repo, cache.NewRedisCache(client, "test"))
	ctx := context.Background()

	first, err := svc.ListAll(ctx)
	require.NoError(t, err)
	second, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Wi-Fi", "Pool"}, second[0].Amenities)

	_, err = svc.Create(ctx, hostID, validRequest())
	require.NoError(t, err)

	_, err = svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearch_CacheOutageFallsBackToRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	var calls atomic.Int32
	svc := newTestService(&mockListingRepository{
		searchFunc: func(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
			calls.Add(1)
			return []*model.Listing{{ID: "l1"}}, nil
		},
	}, cache.NewRedisCache(client, "test"))

	listings, err := svc.Search(context.Background(), model.NewListingFilter("goa", nil, nil, nil, nil))
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, int32(1), calls.Load())
}
