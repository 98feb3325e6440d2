package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"staybook/pkg/model"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	SignatureHeader = "Stripe-Signature"

	MetadataBookingID = "booking_id"
	MetadataListingID = "listing_id"
	MetadataUserID    = "user_id"

	eventSessionCompleted      = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	eventAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	eventSessionExpired        = "checkout.session.expired"
)

type StripeGateway struct {
	sessions      *session.Client
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: secretKey,
		},
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(p.Title),
	}
	if p.Description != "" {
		product.Description = stripe.String(p.Description)
	}
	if p.Image != "" {
		product.Images = stripe.StringSlice([]string{p.Image})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(p.Currency),
					ProductData: product,
					UnitAmount:  stripe.Int64(p.AmountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.BookingID),
		ExpiresAt:         stripe.Int64(p.ExpiresAt.Unix()),
		Metadata: map[string]string{
			MetadataBookingID: p.BookingID,
			MetadataListingID: p.ListingID,
			MetadataUserID:    p.UserID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + p.BookingID)

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) VerifySignature(payload []byte, signatureHeader string) error {
	return webhook.ValidatePayload(payload, signatureHeader, g.webhookSecret)
}

// ParseNotification decodes an already verified event. Events other than the
// checkout session lifecycle come back with an empty Status.
func (g *StripeGateway) ParseNotification(payload []byte) (*Notification, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	n := &Notification{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	switch event.Type {
	case eventSessionCompleted, eventAsyncPaymentSucceeded, eventAsyncPaymentFailed, eventSessionExpired:
	default:
		return n, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	n.SessionID = s.ID
	n.BookingID = s.Metadata[MetadataBookingID]
	if n.BookingID == "" {
		n.BookingID = s.ClientReferenceID
	}
	if n.BookingID == "" {
		return nil, ErrMissingBookingID
	}

	switch event.Type {
	case eventSessionCompleted:
		// Delayed methods complete unpaid and settle through the async events.
		if s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
			n.Status = model.BookingStatusPaid
		}
	case eventAsyncPaymentSucceeded:
		n.Status = model.BookingStatusPaid
	case eventAsyncPaymentFailed:
		n.Status = model.BookingStatusFailed
	case eventSessionExpired:
		n.Status = model.BookingStatusExpired
	}

	return n, nil
}
