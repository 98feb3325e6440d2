package model

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusFailed    BookingStatus = "failed"
	BookingStatusExpired   BookingStatus = "expired"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var AllBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusPaid,
	BookingStatusFailed,
	BookingStatusExpired,
	BookingStatusCancelled,
}

// Only pending bookings move; every other status is terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {
		BookingStatusPaid,
		BookingStatusFailed,
		BookingStatusExpired,
		BookingStatusCancelled,
	},
}

func (s BookingStatus) Valid() bool {
	for _, st := range AllBookingStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID               string        `json:"id,omitempty" bson:"_id,omitempty"`
	UserID           string        `json:"userId" bson:"user_id" validate:"required,mongodb"`
	ListingID        string        `json:"listingId" bson:"listing_id" validate:"required,mongodb"`
	CheckInDate      time.Time     `json:"checkInDate" bson:"check_in_date" validate:"required"`
	CheckOutDate     time.Time     `json:"checkOutDate" bson:"check_out_date" validate:"required,gtfield=CheckInDate"`
	Guests           int           `json:"guests" bson:"guests" validate:"required,min=1"`
	Nights           int           `json:"nights" bson:"nights" validate:"required,min=1"`
	TotalPrice       float64       `json:"totalPrice" bson:"total_price" validate:"required,gt=0"`
	Currency         string        `json:"currency" bson:"currency" validate:"required,len=3"`
	Status           BookingStatus `json:"status" bson:"status" validate:"required,oneof=pending paid failed expired cancelled"`
	PaymentSessionID string        `json:"paymentSessionId,omitempty" bson:"payment_session_id,omitempty"`
	CreatedAt        time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time     `json:"updatedAt" bson:"updated_at"`
}

func (b *Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return overlaps(b.CheckInDate, b.CheckOutDate, checkIn, checkOut)
}

func overlaps(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && end1.After(start2)
}

// BookingWithListing is a booking joined with the minimal listing fields
// shown in a user's booking history.
type BookingWithListing struct {
	Booking
	Listing *ListingSummary `json:"listing"`
}

// BookingDetails is a booking joined with its full listing.
type BookingDetails struct {
	Booking
	Listing *Listing `json:"listing"`
}

type CheckoutRequest struct {
	ListingID    string `json:"listingId" validate:"required,mongodb"`
	UserID       string `json:"userId,omitempty" validate:"omitempty,mongodb"`
	CheckInDate  string `json:"checkInDate" validate:"required"`
	CheckOutDate string `json:"checkOutDate" validate:"required"`
	Guests       int    `json:"guests" validate:"required,min=1,max=100"`
}

type CheckoutResponse struct {
	RedirectURL string `json:"redirectUrl"`
	URL         string `json:"url"`
	BookingID   string `json:"bookingId"`
}
