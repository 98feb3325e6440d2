package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	listingserrors "staybook/internal/listings/errors"
	maestro "staybook/internal/maestro/core"
	"staybook/internal/payments/gateway"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"staybook/pkg/validation"
)

const (
	CheckoutFlowName = "create_checkout_session"

	StepValidate = "validate"
	StepPrice    = "price"
	StepReserve  = "reserve"
	StepCheckout = "checkout_session"

	paymentProvider = "Payment provider"
)

type checkoutState struct {
	userID   string
	req      *model.CheckoutRequest
	listing  *model.Listing
	checkIn  time.Time
	checkOut time.Time
	quote    model.Quote
	booking  *model.Booking
	session  *gateway.CheckoutSession
}

func (s *bookingService) newCheckoutFlow() *maestro.Flow[checkoutState] {
	return maestro.NewFlow(CheckoutFlowName,
		maestro.NewStep(StepValidate, s.validateCheckout),
		maestro.NewStep(StepPrice, s.priceStay),
		maestro.NewStep(StepReserve, s.reserve),
		maestro.NewStep(StepCheckout, s.openCheckoutSession),
	)
}

func (s *bookingService) CreateCheckoutSession(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	state := &checkoutState{userID: userID, req: req}

	if err := s.checkout.Run(ctx, state); err != nil {
		var stepErr *maestro.StepError
		step := ""
		if errors.As(err, &stepErr) {
			step = stepErr.Step
			err = stepErr.Err
		}
		if !apperrors.IsAppError(err) {
			if errors.Is(err, context.DeadlineExceeded) {
				err = apperrors.Timeout("Checkout timed out")
			} else {
				err = apperrors.Internal("Failed to create checkout session", err)
			}
		}
		s.cfg.Log.FromContext(ctx).Warn("Checkout failed",
			"step", step,
			"user_id", userID,
			"listing_id", req.ListingID,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.FromContext(ctx).Info("Checkout session created",
		"booking_id", state.booking.ID,
		"listing_id", state.booking.ListingID,
		"user_id", userID,
		"nights", state.quote.Nights,
		"total", state.quote.Total,
	)
	return &model.CheckoutResponse{
		RedirectURL: state.session.URL,
		URL:         state.session.URL,
		BookingID:   state.booking.ID,
	}, nil
}

func (s *bookingService) validateCheckout(ctx context.Context, st *checkoutState) error {
	req := st.req
	req.ListingID = strings.TrimSpace(req.ListingID)
	req.UserID = strings.TrimSpace(req.UserID)

	if err := s.validator.ValidateCheckout(req); err != nil {
		return validation.ToAppError("Invalid booking request", err)
	}
	if req.UserID != "" && req.UserID != st.userID {
		return apperrors.Forbidden("Cannot create a booking for another user")
	}

	var err error
	if st.checkIn, err = model.ParseDate(req.CheckInDate); err != nil {
		return apperrors.Validation("Invalid booking request", map[string]any{"checkInDate": err.Error()})
	}
	if st.checkOut, err = model.ParseDate(req.CheckOutDate); err != nil {
		return apperrors.Validation("Invalid booking request", map[string]any{"checkOutDate": err.Error()})
	}

	st.listing, err = s.listings.FindByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) || errors.Is(err, listingserrors.ErrInvalidID) {
			return apperrors.NotFoundWithID("Listing", req.ListingID)
		}
		return apperrors.Internal("Failed to load listing", err)
	}

	today := model.StartOfDay(s.now())
	if err := s.validator.ValidateStay(st.listing, st.checkIn, st.checkOut, req.Guests, today); err != nil {
		return validation.ToAppError("Invalid booking request", err)
	}
	return nil
}

func (s *bookingService) priceStay(_ context.Context, st *checkoutState) error {
	quote, err := model.QuoteStay(st.listing.PricePerNight, st.checkIn, st.checkOut, s.cfg.PaymentCurrency)
	if err != nil {
		return apperrors.Validation("Invalid booking request", map[string]any{"checkOutDate": err.Error()})
	}
	st.quote = quote
	return nil
}

// reserve runs the overlap check and the insert under the listing lock so two
// requests for the same dates cannot both pass the check.
func (s *bookingService) reserve(ctx context.Context, st *checkoutState) error {
	lock, err := s.lockRepo.Acquire(ctx, st.listing.ID, s.newID(), s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return apperrors.Conflict("Listing is currently being booked, please retry")
		}
		return apperrors.Internal("Failed to reserve listing", err)
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(context.WithoutCancel(ctx), lock); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release listing lock", "lock_id", lock.ID, "error", releaseErr)
		}
	}()

	booking := &model.Booking{
		UserID:       st.userID,
		ListingID:    st.listing.ID,
		CheckInDate:  st.checkIn,
		CheckOutDate: st.checkOut,
		Guests:       st.req.Guests,
		Nights:       st.quote.Nights,
		TotalPrice:   st.quote.Total,
		Currency:     st.quote.Currency,
		Status:       model.BookingStatusPending,
	}
	staleBefore := s.now().Add(-s.pendingHold())

	// The overlap check and insert must finish while the lock is still ours,
	// otherwise an expired lock could be taken over between the two.
	lockedCtx, cancel := context.WithTimeout(ctx, s.lockBudget())
	defer cancel()

	err = s.repo.ExecuteTransaction(lockedCtx, func(txCtx context.Context) error {
		// A retried transaction must insert a fresh document.
		booking.ID = ""
		overlapping, err := s.repo.CountActiveOverlaps(txCtx, booking.ListingID, booking.CheckInDate, booking.CheckOutDate, staleBefore)
		if err != nil {
			return reserveError(txCtx, "Failed to check availability", err)
		}
		if overlapping > 0 {
			return apperrors.Conflict("Listing is already booked for the selected dates")
		}
		if err := txCtx.Err(); err != nil {
			return reserveError(txCtx, "Failed to create booking", err)
		}
		if err := s.repo.Create(txCtx, booking); err != nil {
			return reserveError(txCtx, "Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	st.booking = booking
	s.publish(ctx, booking)
	return nil
}

// lockBudget leaves a fifth of the lock TTL unused so the reserve work is
// abandoned before the lock can expire under it.
func (s *bookingService) lockBudget() time.Duration {
	return s.cfg.LockTTL - s.cfg.LockTTL/5
}

func reserveError(ctx context.Context, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.Conflict("Listing is currently being booked, please retry")
	}
	return apperrors.Internal(message, err)
}

func (s *bookingService) openCheckoutSession(ctx context.Context, st *checkoutState) error {
	b := st.booking
	clientURL := strings.TrimRight(s.cfg.ClientURL, "/")
	params := gateway.CheckoutSessionParams{
		BookingID:   b.ID,
		ListingID:   b.ListingID,
		UserID:      b.UserID,
		Title:       st.listing.Title,
		Description: st.listing.Description,
		Image:       st.listing.Image,
		AmountMinor: st.quote.AmountMinor,
		Currency:    st.quote.Currency,
		SuccessURL:  fmt.Sprintf("%s/booking-success?bookingId=%s", clientURL, b.ID),
		CancelURL:   fmt.Sprintf("%s/listings/%s?bookingId=%s", clientURL, b.ListingID, b.ID),
		ExpiresAt:   s.now().Add(s.cfg.PendingBookingTTL),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.PaymentTimeout)
	defer cancel()

	var session *gateway.CheckoutSession
	err := s.limiter.Run(callCtx, func(ctx context.Context) error {
		var err error
		session, err = s.gateway.CreateCheckoutSession(ctx, params)
		return err
	})
	if err == nil && (session == nil || session.URL == "") {
		err = errors.New("checkout session has no redirect URL")
	}
	if err != nil {
		s.cfg.Log.Error("Payment provider call failed", "booking_id", b.ID, "error", err)
		if _, failErr := s.transition(context.WithoutCancel(ctx), b.ID, model.BookingStatusFailed); failErr != nil {
			s.cfg.Log.Error("Failed to mark booking as failed", "booking_id", b.ID, "error", failErr)
		}
		return apperrors.ExternalService(paymentProvider, err)
	}

	if err := s.repo.SetPaymentSession(ctx, b.ID, session.ID); err != nil {
		// The webhook resolves the booking from session metadata, so this is
		// not fatal for the checkout.
		s.cfg.Log.Error("Failed to store payment session", "booking_id", b.ID, "session_id", session.ID, "error", err)
	} else {
		b.PaymentSessionID = session.ID
	}

	st.session = session
	return nil
}
