package model

import "time"

const (
	BookingEventReserved  = "booking.reserved"
	BookingEventPaid      = "booking.paid"
	BookingEventFailed    = "booking.failed"
	BookingEventExpired   = "booking.expired"
	BookingEventCancelled = "booking.cancelled"
)

// BookingEventType maps a booking status to the lifecycle event it emits.
func BookingEventType(status BookingStatus) string {
	switch status {
	case BookingStatusPending:
		return BookingEventReserved
	case BookingStatusPaid:
		return BookingEventPaid
	case BookingStatusFailed:
		return BookingEventFailed
	case BookingStatusExpired:
		return BookingEventExpired
	case BookingStatusCancelled:
		return BookingEventCancelled
	default:
		return "booking." + string(status)
	}
}

type BookingEvent struct {
	EventID    string        `json:"eventId" bson:"_id"`
	Type       string        `json:"type" bson:"type"`
	BookingID  string        `json:"bookingId" bson:"booking_id"`
	ListingID  string        `json:"listingId" bson:"listing_id"`
	UserID     string        `json:"userId" bson:"user_id"`
	Status     BookingStatus `json:"status" bson:"status"`
	TotalPrice float64       `json:"totalPrice" bson:"total_price"`
	Currency   string        `json:"currency" bson:"currency"`
	OccurredAt time.Time     `json:"occurredAt" bson:"occurred_at"`
	ReceivedAt time.Time     `json:"-" bson:"received_at,omitempty"`
}

func NewBookingEvent(eventID string, b *Booking, at time.Time) BookingEvent {
	return BookingEvent{
		EventID:    eventID,
		Type:       BookingEventType(b.Status),
		BookingID:  b.ID,
		ListingID:  b.ListingID,
		UserID:     b.UserID,
		Status:     b.Status,
		TotalPrice: b.TotalPrice,
		Currency:   b.Currency,
		OccurredAt: at.UTC(),
	}
}
