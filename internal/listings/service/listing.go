package service

import (
	"context"
	"errors"
	"strconv"

	listingserrors "staybook/internal/listings/errors"
	"staybook/internal/listings/repository"
	"staybook/internal/listings/validator"
	"staybook/pkg/cache"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
	"staybook/pkg/validation"
)

const (
	// CacheVersionKey holds the generation counter embedded in every listing
	// cache key; bumping it invalidates all cached listing reads.
	CacheVersionKey = "listings:version"
	cachePrefix     = "listings"
)

type ListingService interface {
	ListAll(ctx context.Context) ([]*model.Listing, error)
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error)
	Create(ctx context.Context, hostID string, req *model.CreateListingRequest) (*model.Listing, error)
}

type listingService struct {
	repo      repository.ListingRepository
	validator *validator.ListingValidator
	cache     cache.Cache
	cfg       *config.Config
}

// NewListingService builds the service. A nil cache disables caching.
func NewListingService(
	repo repository.ListingRepository,
	validator *validator.ListingValidator,
	c cache.Cache,
	cfg *config.Config,
) ListingService {
	if c == nil {
		c = cache.Noop{}
	}
	return &listingService{
		repo:      repo,
		validator: validator,
		cache:     c,
		cfg:       cfg,
	}
}

func (s *listingService) ListAll(ctx context.Context) ([]*model.Listing, error) {
	key := s.cacheKey(ctx, "all", nil)
	var cached []*model.Listing
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	listings, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list listings", "error", err)
		return nil, apperrors.Internal("Failed to fetch listings", err)
	}

	s.toCache(ctx, key, listings)
	return listings, nil
}

func (s *listingService) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	if id == "" {
		return nil, apperrors.NotFound("Listing")
	}

	key := s.cacheKey(ctx, "id", map[string]string{"id": id})
	var cached model.Listing
	if s.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) || errors.Is(err, listingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Listing", id)
		}
		s.cfg.Log.Error("Failed to retrieve listing", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to fetch listing", err)
	}

	s.toCache(ctx, key, listing)
	return listing, nil
}

func (s *listingService) Search(ctx context.Context, filter model.ListingFilter) ([]*model.Listing, error) {
	if filter.Guests != nil && *filter.Guests < 1 {
		return nil, apperrors.InvalidInput("guests must be at least 1")
	}
	if filter.MaxPrice != nil && *filter.MaxPrice < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	key := s.cacheKey(ctx, "search", filter.CacheParams())
	var cached []*model.Listing
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	listings, err := s.repo.Search(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to search listings", "error", err)
		return nil, apperrors.Internal("Search failed", err)
	}

	s.toCache(ctx, key, listings)
	return listings, nil
}

func (s *listingService) Create(ctx context.Context, hostID string, req *model.CreateListingRequest) (*model.Listing, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Listing validation failed", "error", err)
		return nil, validation.ToAppError("Invalid listing input", err)
	}

	listing, err := s.buildListing(hostID, req)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(listing); err != nil {
		s.cfg.Log.Warn("Listing validation failed", "error", err)
		return nil, validation.ToAppError("Invalid listing input", err)
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		s.cfg.Log.Error("Failed to create listing", "error", err)
		return nil, apperrors.Internal("Failed to create listing", err)
	}

	if err := InvalidateCache(ctx, s.cache); err != nil {
		s.cfg.Log.Warn("Failed to invalidate listing cache", "error", err)
	}

	s.cfg.Log.Info("Listing created successfully", "id", listing.ID, "host_id", hostID)
	return listing, nil
}

func (s *listingService) buildListing(hostID string, req *model.CreateListingRequest) (*model.Listing, error) {
	from, err := model.ParseDate(req.AvailableFrom)
	if err != nil {
		return nil, apperrors.Validation("Invalid listing input", map[string]any{"availableFrom": err.Error()})
	}
	to, err := model.ParseDate(req.AvailableTo)
	if err != nil {
		return nil, apperrors.Validation("Invalid listing input", map[string]any{"availableTo": err.Error()})
	}

	image := sanitizer.NormalizeImageURL(req.Image)
	if image == "" {
		image = model.DefaultListingImage
	}

	return &model.Listing{
		Title:         sanitizer.NormalizeTitle(req.Title),
		Location:      sanitizer.NormalizeLocation(req.Location),
		PricePerNight: req.PricePerNight,
		MaxGuests:     req.MaxGuests,
		Amenities:     sanitizer.NormalizeAmenities(req.Amenities),
		AvailableFrom: from,
		AvailableTo:   to,
		Description:   sanitizer.NormalizeDescription(req.Description),
		Image:         image,
		HostID:        hostID,
	}, nil
}

// InvalidateCache bumps the listing generation so every cached listing read
// misses. Callers that write listings outside this service use it too.
func InvalidateCache(ctx context.Context, c cache.Cache) error {
	_, err := c.Bump(ctx, CacheVersionKey)
	return err
}

// cacheKey embeds the current listing generation. When the version cannot be
// read the key still works; it just misses until the next bump.
func (s *listingService) cacheKey(ctx context.Context, kind string, params map[string]string) string {
	version, err := s.cache.Version(ctx, CacheVersionKey)
	if err != nil {
		s.cfg.Log.Warn("Failed to read listing cache version", "error", err)
	}
	return cache.QueryKey(cachePrefix+":v"+strconv.FormatInt(version, 10)+":"+kind, params)
}

func (s *listingService) fromCache(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.cfg.Log.Warn("Listing cache read failed", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *listingService) toCache(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.cfg.Log.Warn("Listing cache write failed", "key", key, "error", err)
	}
}
