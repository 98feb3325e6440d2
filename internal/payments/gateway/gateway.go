package gateway

import (
	"context"
	"errors"
	"time"

	"staybook/pkg/model"
)

var (
	ErrInvalidPayload = errors.New("invalid webhook payload")

	ErrMissingBookingID = errors.New("webhook payload has no booking reference")
)

type CheckoutSessionParams struct {
	BookingID   string
	ListingID   string
	UserID      string
	Title       string
	Description string
	Image       string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
	ExpiresAt   time.Time
}

type CheckoutSession struct {
	ID  string
	URL string
}

// Notification is a verified webhook event reduced to the booking transition
// it implies. Status is empty for events that do not move a booking.
type Notification struct {
	EventID   string
	EventType string
	SessionID string
	BookingID string
	Status    model.BookingStatus
}

func (n *Notification) Actionable() bool {
	return n.Status.Valid()
}

// Gateway is the payment provider capability used by checkout and the
// webhook endpoint.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error)
	VerifySignature(payload []byte, signatureHeader string) error
	ParseNotification(payload []byte) (*Notification, error)
}
