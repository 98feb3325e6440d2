package model

import (
	"strconv"
	"strings"
	"time"
)

const DefaultListingImage = "https://source.unsplash.com/featured/?home"

type Listing struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	Title         string    `json:"title" bson:"title" validate:"required,min=3,max=120"`
	Location      string    `json:"location" bson:"location" validate:"required,min=2,max=120"`
	PricePerNight float64   `json:"pricePerNight" bson:"price_per_night" validate:"required,gt=0"`
	MaxGuests     int       `json:"maxGuests" bson:"max_guests" validate:"required,min=1,max=100"`
	Amenities     []string  `json:"amenities" bson:"amenities" validate:"max=50,dive,required,max=60"`
	AvailableFrom time.Time `json:"availableFrom" bson:"available_from" validate:"required"`
	AvailableTo   time.Time `json:"availableTo" bson:"available_to" validate:"required"`
	Description   string    `json:"description" bson:"description" validate:"required,max=5000"`
	Image         string    `json:"image" bson:"image" validate:"omitempty,url,max=2048"`
	HostID        string    `json:"host" bson:"host_id" validate:"required,mongodb"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updated_at"`
}

// Covers reports whether the stay [checkIn, checkOut] lies inside the
// listing's availability window.
func (l *Listing) Covers(checkIn, checkOut time.Time) bool {
	return !l.AvailableFrom.After(checkIn) && !l.AvailableTo.Before(checkOut)
}

// ListingSummary is the subset of listing fields attached to a user's bookings.
type ListingSummary struct {
	ID       string `json:"id" bson:"_id"`
	Title    string `json:"title" bson:"title"`
	Location string `json:"location" bson:"location"`
}

type CreateListingRequest struct {
	Title         string   `json:"title" validate:"required,min=3,max=120"`
	Location      string   `json:"location" validate:"required,min=2,max=120"`
	PricePerNight float64  `json:"pricePerNight" validate:"required,gt=0"`
	MaxGuests     int      `json:"maxGuests" validate:"required,min=1,max=100"`
	Amenities     []string `json:"amenities" validate:"max=50"`
	AvailableFrom string   `json:"availableFrom" validate:"required"`
	AvailableTo   string   `json:"availableTo" validate:"required"`
	Description   string   `json:"description" validate:"required,max=5000"`
	Image         string   `json:"image,omitempty" validate:"omitempty,url,max=2048"`
}

// ListingFilter holds the optional search predicates. Every predicate that is
// set must hold; an empty filter matches all listings.
type ListingFilter struct {
	Location string
	CheckIn  *time.Time
	CheckOut *time.Time
	Guests   *int
	MaxPrice *float64
}

// NewListingFilter builds a filter from raw search options. The date range is
// only applied when both ends are supplied; a lone checkIn or checkOut is
// dropped entirely.
func NewListingFilter(location string, checkIn, checkOut *time.Time, guests *int, maxPrice *float64) ListingFilter {
	f := ListingFilter{
		Location: strings.TrimSpace(location),
		Guests:   guests,
		MaxPrice: maxPrice,
	}
	if checkIn != nil && checkOut != nil {
		f.CheckIn = checkIn
		f.CheckOut = checkOut
	}
	return f
}

func (f ListingFilter) HasDateRange() bool {
	return f.CheckIn != nil && f.CheckOut != nil
}

func (f ListingFilter) IsEmpty() bool {
	return f.Location == "" && !f.HasDateRange() && f.Guests == nil && f.MaxPrice == nil
}

func (f ListingFilter) Matches(l *Listing) bool {
	if f.Location != "" && !strings.Contains(strings.ToLower(l.Location), strings.ToLower(f.Location)) {
		return false
	}
	if f.HasDateRange() {
		if l.AvailableFrom.After(*f.CheckIn) || l.AvailableTo.Before(*f.CheckOut) {
			return false
		}
	}
	if f.Guests != nil && l.MaxGuests < *f.Guests {
		return false
	}
	if f.MaxPrice != nil && l.PricePerNight > *f.MaxPrice {
		return false
	}
	return true
}

// CacheParams returns the normalized predicates as flat key/value pairs,
// suitable for building a stable query cache key.
func (f ListingFilter) CacheParams() map[string]string {
	params := make(map[string]string, 5)
	if f.Location != "" {
		params["location"] = strings.ToLower(f.Location)
	}
	if f.HasDateRange() {
		params["checkIn"] = f.CheckIn.UTC().Format(time.RFC3339)
		params["checkOut"] = f.CheckOut.UTC().Format(time.RFC3339)
	}
	if f.Guests != nil {
		params["guests"] = strconv.Itoa(*f.Guests)
	}
	if f.MaxPrice != nil {
		params["price"] = strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64)
	}
	return params
}
