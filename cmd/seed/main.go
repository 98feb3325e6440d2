package main

import (
	"context"
	"errors"
	"time"

	listingsrepo "staybook/internal/listings/repository"
	listingsservice "staybook/internal/listings/service"
	listingsvalidator "staybook/internal/listings/validator"
	userserrors "staybook/internal/users/errors"
	usersrepo "staybook/internal/users/repository"
	"staybook/pkg/cache"
	"staybook/pkg/config"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

const JobName = "listing-seeder"

type seedListing struct {
	title         string
	location      string
	pricePerNight float64
	maxGuests     int
	amenities     []string
	availableFrom string
	availableTo   string
	description   string
	image         string
}

var seedListings = []seedListing{
	{
		title:         "Modern Apartment in New York",
		location:      "New York, NY",
		pricePerNight: 150,
		maxGuests:     4,
		amenities:     []string{"Wi-Fi", "Air Conditioning", "Kitchen"},
		availableFrom: "2025-06-20",
		availableTo:   "2025-12-31",
		description:   "A beautiful and modern apartment in the heart of NYC.",
		image:         "https://source.unsplash.com/featured/?apartment,newyork",
	},
	{
		title:         "Cozy Cottage in the Mountains",
		location:      "Asheville, NC",
		pricePerNight: 110,
		maxGuests:     3,
		amenities:     []string{"Fireplace", "Mountain View", "Pet Friendly"},
		availableFrom: "2025-07-01",
		availableTo:   "2025-11-30",
		description:   "Escape the city and enjoy a peaceful stay in the mountains.",
		image:         "https://source.unsplash.com/featured/?cabin,mountain",
	},
	{
		title:         "Beachside Bungalow in Goa",
		location:      "Goa, India",
		pricePerNight: 95,
		maxGuests:     2,
		amenities:     []string{"Beach Access", "Wi-Fi", "Private Patio"},
		availableFrom: "2025-06-15",
		availableTo:   "2025-10-31",
		description:   "Relax in a beachside bungalow with ocean views.",
		image:         "https://source.unsplash.com/featured/?beach,bungalow,goa",
	},
	{
		title:         "Luxury Villa in Bali",
		location:      "Bali, Indonesia",
		pricePerNight: 220,
		maxGuests:     6,
		amenities:     []string{"Pool", "Chef Service", "Ocean View"},
		availableFrom: "2025-06-25",
		availableTo:   "2025-12-15",
		description:   "Private luxury villa with full amenities and staff.",
		image:         "https://source.unsplash.com/featured/?villa,bali",
	},
	{
		title:         "Historic Loft in Paris",
		location:      "Paris, France",
		pricePerNight: 180,
		maxGuests:     3,
		amenities:     []string{"Wi-Fi", "Balcony", "City View"},
		availableFrom: "2025-07-10",
		availableTo:   "2025-12-31",
		description:   "Charming loft with Eiffel Tower view and Parisian charm.",
		image:         "https://source.unsplash.com/featured/?paris,loft",
	},
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	host, err := usersrepo.NewMongoUserRepository(cfg).FindFirst(ctx)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			cfg.Log.Fatal("No users found, register a user before seeding listings")
		}
		cfg.Log.Fatal("Failed to load host user", "error", err)
	}

	listings, err := buildListings(host.ID, listingsvalidator.NewListingValidator(cfg.Log))
	if err != nil {
		cfg.Log.Fatal("Invalid seed data", "error", err)
	}

	if err := listingsrepo.NewMongoListingRepository(cfg).ReplaceAll(ctx, listings); err != nil {
		cfg.Log.Fatal("Seeding failed", "error", err)
	}
	cfg.Log.Info("Listings seeded successfully", "count", len(listings), "host_id", host.ID)

	if cfg.Client.Redis != nil {
		invalidateListingCache(ctx, cache.NewRedisCache(cfg.Client.Redis, cache.Namespace), cfg.Log)
	}
}

// invalidateListingCache drops cached listing reads that still name the
// replaced listings. A failure leaves them until CacheTTL runs out.
func invalidateListingCache(ctx context.Context, c cache.Cache, log *logger.Logger) {
	if err := listingsservice.InvalidateCache(ctx, c); err != nil {
		log.Warn("Failed to invalidate listing cache, stale reads expire with the cache TTL", "error", err)
		return
	}
	log.Info("Listing cache invalidated")
}

func buildListings(hostID string, v *listingsvalidator.ListingValidator) ([]*model.Listing, error) {
	listings := make([]*model.Listing, 0, len(seedListings))
	for _, s := range seedListings {
		from, err := model.ParseDate(s.availableFrom)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseDate(s.availableTo)
		if err != nil {
			return nil, err
		}

		listing := &model.Listing{
			Title:         s.title,
			Location:      s.location,
			PricePerNight: s.pricePerNight,
			MaxGuests:     s.maxGuests,
			Amenities:     s.amenities,
			AvailableFrom: from,
			AvailableTo:   to,
			Description:   s.description,
			Image:         s.image,
			HostID:        hostID,
		}
		if err := v.Validate(listing); err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}
