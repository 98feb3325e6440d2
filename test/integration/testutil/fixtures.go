package testutil

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"staybook/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ListingRequestBuilder struct {
	req model.CreateListingRequest
}

// NewListingRequestBuilder starts from a listing bookable for the next 90 days.
func NewListingRequestBuilder() *ListingRequestBuilder {
	today := time.Now().UTC()
	return &ListingRequestBuilder{
		req: model.CreateListingRequest{
			Title:         "Beachside Bungalow",
			Location:      "Goa, India",
			PricePerNight: 100,
			MaxGuests:     2,
			Amenities:     []string{"Wi-Fi", "Beach Access"},
			AvailableFrom: today.Format(model.DateLayout),
			AvailableTo:   today.AddDate(0, 0, 90).Format(model.DateLayout),
			Description:   "Relax in a beachside bungalow with ocean views.",
		},
	}
}

func (b *ListingRequestBuilder) WithTitle(title string) *ListingRequestBuilder {
	b.req.Title = title
	return b
}

func (b *ListingRequestBuilder) WithLocation(location string) *ListingRequestBuilder {
	b.req.Location = location
	return b
}

func (b *ListingRequestBuilder) WithPrice(price float64) *ListingRequestBuilder {
	b.req.PricePerNight = price
	return b
}

func (b *ListingRequestBuilder) WithMaxGuests(n int) *ListingRequestBuilder {
	b.req.MaxGuests = n
	return b
}

func (b *ListingRequestBuilder) Build() model.CreateListingRequest {
	return b.req
}

// Day returns the calendar date offset days from today.
func Day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(model.DateLayout)
}

// RegisterUser creates a fresh account and returns a client authenticated as
// it together with the user's id.
func RegisterUser(t *testing.T, client *Client, name string) (*Client, string) {
	t.Helper()

	email := fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
	resp := client.POST(t, "/api/auth/register", model.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "correct-horse-battery",
	})
	AssertStatusCode(t, resp, http.StatusCreated)

	var auth model.AuthResponse
	if err := resp.UnmarshalJSON(&auth); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}
	return client.WithToken(auth.Token), auth.User.ID
}

// CreateListing posts the listing as the client's user and returns it.
func CreateListing(t *testing.T, client *Client, req model.CreateListingRequest) *model.Listing {
	t.Helper()

	resp := client.POST(t, "/api/listings", req)
	AssertStatusCode(t, resp, http.StatusCreated)

	var listing model.Listing
	if err := resp.UnmarshalJSON(&listing); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	return &listing
}

// SeedBooking writes a booking straight to the database, bypassing checkout.
func SeedBooking(t *testing.T, m *MongoHelper, b model.Booking) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := primitive.NewObjectID()
	b.ID = id.Hex()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.UpdatedAt = b.CreatedAt

	doc := map[string]any{
		"_id":            id,
		"user_id":        b.UserID,
		"listing_id":     b.ListingID,
		"check_in_date":  b.CheckInDate,
		"check_out_date": b.CheckOutDate,
		"guests":         b.Guests,
		"nights":         b.Nights,
		"total_price":    b.TotalPrice,
		"currency":       b.Currency,
		"status":         string(b.Status),
		"created_at":     b.CreatedAt,
		"updated_at":     b.UpdatedAt,
	}
	if _, err := m.Database.Collection("Bookings").InsertOne(ctx, doc); err != nil {
		t.Fatalf("failed to seed booking: %v", err)
	}
	return b.ID
}
