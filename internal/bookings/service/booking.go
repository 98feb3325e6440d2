package service

import (
	"context"
	"errors"
	"time"

	"staybook/internal/bookings/events"
	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/repository"
	"staybook/internal/bookings/validator"
	listingserrors "staybook/internal/listings/errors"
	maestro "staybook/internal/maestro/core"
	"staybook/internal/payments/gateway"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"

	"github.com/google/uuid"
)

const (
	// pendingGrace keeps a pending booking holding its dates a little past
	// the checkout session expiry, covering late webhook deliveries.
	pendingGrace = 5 * time.Minute

	sweepBatchSize = 100
	publishTimeout = 5 * time.Second
)

type BookingService interface {
	CreateCheckoutSession(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
	ListForUser(ctx context.Context, userID string) ([]*model.BookingWithListing, error)
	GetForUser(ctx context.Context, userID, id string) (*model.BookingDetails, error)
	Cancel(ctx context.Context, userID, id string) (*model.Booking, error)
	// ApplyPaymentNotification moves the booking named by a verified webhook.
	// Notifications that cannot apply are acknowledged and logged.
	ApplyPaymentNotification(ctx context.Context, n *gateway.Notification) (*model.Booking, error)
	// ExpireStale marks pending bookings whose hold has lapsed as expired and
	// returns how many were moved.
	ExpireStale(ctx context.Context) (int, error)
}

// ListingStore is the listing data the booking flow reads. Listings are never
// written here.
type ListingStore interface {
	FindByID(ctx context.Context, id string) (*model.Listing, error)
	FindSummaries(ctx context.Context, ids []string) (map[string]*model.ListingSummary, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.ListingLockRepository
	listings  ListingStore
	gateway   gateway.Gateway
	publisher events.Publisher
	validator *validator.BookingValidator
	limiter   *maestro.Limiter
	checkout  *maestro.Flow[checkoutState]
	cfg       *config.Config
	now       func() time.Time
	newID     func() string
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.ListingLockRepository,
	listings ListingStore,
	paymentGateway gateway.Gateway,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	s := &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		listings:  listings,
		gateway:   paymentGateway,
		publisher: publisher,
		validator: validator,
		limiter:   maestro.NewLimiter(cfg.PaymentMaxConcurrency),
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	s.checkout = s.newCheckoutFlow()
	return s
}

func (s *bookingService) ListForUser(ctx context.Context, userID string) ([]*model.BookingWithListing, error) {
	bookings, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		s.cfg.Log.Error("Failed to list user bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to fetch bookings", err)
	}

	ids := make([]string, 0, len(bookings))
	seen := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		if !seen[b.ListingID] {
			seen[b.ListingID] = true
			ids = append(ids, b.ListingID)
		}
	}

	summaries, err := s.listings.FindSummaries(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to load listings for bookings", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to fetch bookings", err)
	}

	result := make([]*model.BookingWithListing, 0, len(bookings))
	for _, b := range bookings {
		result = append(result, &model.BookingWithListing{
			Booking: *b,
			Listing: summaries[b.ListingID],
		})
	}
	return result, nil
}

func (s *bookingService) GetForUser(ctx context.Context, userID, id string) (*model.BookingDetails, error) {
	booking, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.FindByID(ctx, booking.ListingID)
	if err != nil && !errors.Is(err, listingserrors.ErrNotFound) && !errors.Is(err, listingserrors.ErrInvalidID) {
		s.cfg.Log.Error("Failed to load booking listing", "id", id, "error", err)
		return nil, apperrors.Internal("Error fetching booking", err)
	}

	return &model.BookingDetails{Booking: *booking, Listing: listing}, nil
}

func (s *bookingService) Cancel(ctx context.Context, userID, id string) (*model.Booking, error) {
	booking, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.transition(ctx, booking.ID, model.BookingStatusCancelled)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusConflict) {
			return nil, apperrors.Conflict("Only pending bookings can be cancelled")
		}
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled", "id", id, "user_id", userID)
	return updated, nil
}

func (s *bookingService) ApplyPaymentNotification(ctx context.Context, n *gateway.Notification) (*model.Booking, error) {
	log := s.cfg.Log.FromContext(ctx).With("event_id", n.EventID, "event_type", n.EventType, "booking_id", n.BookingID)
	if !n.Actionable() {
		log.Debug("Ignoring payment notification")
		return nil, nil
	}

	booking, err := s.transition(ctx, n.BookingID, n.Status)
	switch {
	case err == nil:
		log.Info("Booking status updated from payment notification", "status", booking.Status)
		return booking, nil
	case errors.Is(err, bookingserrors.ErrNotFound), errors.Is(err, bookingserrors.ErrInvalidID):
		log.Warn("Payment notification for unknown booking")
		return nil, nil
	case errors.Is(err, bookingserrors.ErrStatusConflict):
		current, findErr := s.repo.FindByID(ctx, n.BookingID)
		if findErr != nil {
			return nil, apperrors.Internal("Failed to apply payment notification", findErr)
		}
		if n.Status == model.BookingStatusPaid {
			log.Error("Payment captured for a booking that is no longer pending", "status", current.Status)
		} else {
			log.Warn("Payment notification does not apply to booking", "status", current.Status, "requested", n.Status)
		}
		return current, nil
	default:
		log.Error("Failed to apply payment notification", "error", err)
		return nil, apperrors.Internal("Failed to apply payment notification", err)
	}
}

func (s *bookingService) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.pendingHold())
	expired := 0

	for {
		stale, err := s.repo.FindStalePending(ctx, cutoff, sweepBatchSize)
		if err != nil {
			return expired, err
		}

		for _, b := range stale {
			if _, err := s.transition(ctx, b.ID, model.BookingStatusExpired); err != nil {
				if errors.Is(err, bookingserrors.ErrStatusConflict) {
					continue
				}
				return expired, err
			}
			expired++
		}

		if len(stale) < sweepBatchSize {
			return expired, nil
		}
	}
}

// transition moves a booking to the target status when the status table
// allows it. Re-applying the status a booking already has is a no-op that
// returns the booking. The update is conditional on the status read, so a
// concurrent change surfaces as ErrStatusConflict.
func (s *bookingService) transition(ctx context.Context, id string, to model.BookingStatus) (*model.Booking, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == to {
		return current, nil
	}
	if !current.Status.CanTransitionTo(to) {
		return nil, bookingserrors.ErrStatusConflict
	}

	updated, err := s.repo.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, updated)
	return updated, nil
}

func (s *bookingService) findOwned(ctx context.Context, userID, id string) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
		return nil, apperrors.Internal("Error fetching booking", err)
	}
	if booking.UserID != userID {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return booking, nil
}

func (s *bookingService) publish(ctx context.Context, b *model.Booking) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := model.NewBookingEvent(s.newID(), b, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"booking_id", b.ID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

func (s *bookingService) pendingHold() time.Duration {
	return s.cfg.PendingBookingTTL + pendingGrace
}
