package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "staybook/internal/bookings/errors"
	"staybook/internal/bookings/validator"
	listingserrors "staybook/internal/listings/errors"
	"staybook/internal/payments/gateway"
	"staybook/pkg/config"
	mongotx "staybook/pkg/db/mongo"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listingID = "64b7f0c2a1b2c3d4e5f60720"
	guestID   = "64b7f0c2a1b2c3d4e5f60718"
	otherID   = "64b7f0c2a1b2c3d4e5f60719"
)

var fixedNow = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

// memStore is an in-memory booking repository and lock repository with the
// same conditional semantics as the Mongo implementations.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	locks    map[string]*model.ListingLock
	seq      int
	creates  atomic.Int32
	released atomic.Int32
	now      func() time.Time
	// beforeCount runs ahead of every overlap count when set.
	beforeCount func(ctx context.Context) error
}

func newMemStore() *memStore {
	return &memStore{
		bookings: map[string]*model.Booking{},
		locks:    map[string]*model.ListingLock{},
		now:      func() time.Time { return fixedNow },
	}
}

func (m *memStore) seed(b model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	b.ID = fmt.Sprintf("%024x", m.seq)
	m.bookings[b.ID] = &b
	cp := b
	return &cp
}

func (m *memStore) get(id string) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.bookings[id]
	return &cp
}

func (m *memStore) Create(ctx context.Context, booking *model.Booking) error {
	m.creates.Add(1)
	booking.CreatedAt = m.now()
	booking.UpdatedAt = booking.CreatedAt
	stored := m.seed(*booking)
	booking.ID = stored.ID
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) FindByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*model.Booking{}
	for _, b := range m.bookings {
		if b.UserID == userID {
			cp := *b
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *memStore) CountActiveOverlaps(ctx context.Context, listingID string, checkIn, checkOut, staleBefore time.Time) (int64, error) {
	if m.beforeCount != nil {
		if err := m.beforeCount(ctx); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, b := range m.bookings {
		if b.ListingID != listingID || !b.Overlaps(checkIn, checkOut) {
			continue
		}
		if b.Status == model.BookingStatusPaid || (b.Status == model.BookingStatusPending && b.CreatedAt.After(staleBefore)) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id string, from, to model.BookingStatus) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return nil, bookingserrors.ErrStatusConflict
	}
	b.Status = to
	b.UpdatedAt = m.now()
	cp := *b
	return &cp, nil
}

func (m *memStore) SetPaymentSession(ctx context.Context, id, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return bookingserrors.ErrNotFound
	}
	b.PaymentSessionID = sessionID
	return nil
}

func (m *memStore) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := []*model.Booking{}
	for _, b := range m.bookings {
		if b.Status == model.BookingStatusPending && !b.CreatedAt.After(createdBefore) && len(result) < limit {
			cp := *b
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func (m *memStore) Acquire(ctx context.Context, listingID, owner string, ttl time.Duration) (*model.ListingLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := "listing_lock_" + listingID
	if held, ok := m.locks[key]; ok && held.ExpiresAt.After(m.now()) {
		return nil, bookingserrors.ErrLockHeld
	}
	lock := &model.ListingLock{ID: key, Owner: owner, ExpiresAt: m.now().Add(ttl)}
	m.locks[key] = lock
	return lock, nil
}

func (m *memStore) Release(ctx context.Context, lock *model.ListingLock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[lock.ID]; ok && held.Owner == lock.Owner {
		delete(m.locks, lock.ID)
		m.released.Add(1)
	}
	return nil
}

type fakeListings struct {
	listings map[string]*model.Listing
}

func (f *fakeListings) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if l, ok := f.listings[id]; ok {
		cp := *l
		return &cp, nil
	}
	if len(id) != 24 {
		return nil, listingserrors.ErrInvalidID
	}
	return nil, listingserrors.ErrNotFound
}

func (f *fakeListings) FindSummaries(ctx context.Context, ids []string) (map[string]*model.ListingSummary, error) {
	out := map[string]*model.ListingSummary{}
	for _, id := range ids {
		if l, ok := f.listings[id]; ok {
			out[id] = &model.ListingSummary{ID: l.ID, Title: l.Title, Location: l.Location}
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu         sync.Mutex
	calls      []gateway.CheckoutSessionParams
	createFunc func(ctx context.Context, p gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error)
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, p gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
	g.mu.Lock()
	g.calls = append(g.calls, p)
	g.mu.Unlock()
	if g.createFunc != nil {
		return g.createFunc(ctx, p)
	}
	return &gateway.CheckoutSession{ID: "cs_" + p.BookingID, URL: "https://checkout.example/" + p.BookingID}, nil
}

func (g *fakeGateway) VerifySignature([]byte, string) error { return nil }

func (g *fakeGateway) ParseNotification([]byte) (*gateway.Notification, error) {
	return nil, errors.New("not used")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.BookingEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e model.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       *bookingService
	store     *memStore
	gateway   *fakeGateway
	publisher *recordingPublisher
	listing   *model.Listing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	cfg := &config.Config{
		Log:                   log,
		PaymentCurrency:       "inr",
		PaymentTimeout:        time.Second,
		PaymentMaxConcurrency: 4,
		PendingBookingTTL:     45 * time.Minute,
		LockTTL:               5 * time.Second,
		ClientURL:             "http://localhost:5173/",
	}

	listing := &model.Listing{
		ID:            listingID,
		Title:         "Modern Apartment in New York",
		Location:      "New York, NY",
		Description:   "A beautiful and modern apartment in the heart of NYC.",
		PricePerNight: 100,
		MaxGuests:     4,
		AvailableFrom: time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC),
		AvailableTo:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	}

	store := newMemStore()
	gw := &fakeGateway{}
	pub := &recordingPublisher{}
	svc := NewBookingService(
		store,
		store,
		&fakeListings{listings: map[string]*model.Listing{listingID: listing}},
		gw,
		pub,
		validator.NewBookingValidator(log),
		cfg,
	).(*bookingService)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, store: store, gateway: gw, publisher: pub, listing: listing}
}

func checkoutRequest(in, out string, guests int) *model.CheckoutRequest {
	return &model.CheckoutRequest{ListingID: listingID, CheckInDate: in, CheckOutDate: out, Guests: guests}
}

func TestCheckout_PartialDayRoundsUp(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.CreateCheckoutSession(context.Background(), guestID,
		checkoutRequest("2025-07-10T00:00:00Z", "2025-07-11T12:00:00Z", 2))
	require.NoError(t, err)

	booking := f.store.get(resp.BookingID)
	assert.Equal(t, 2, booking.Nights)
	assert.InDelta(t, 200.0, booking.TotalPrice, 0.001)
	assert.Equal(t, model.BookingStatusPending, booking.Status)
	assert.Equal(t, guestID, booking.UserID)
	assert.Equal(t, "cs_"+booking.ID, booking.PaymentSessionID)

	require.Len(t, f.gateway.calls, 1)
	call := f.gateway.calls[0]
	assert.Equal(t, int64(20000), call.AmountMinor)
	assert.Equal(t, "inr", call.Currency)
	assert.Equal(t, "http://localhost:5173/booking-success?bookingId="+booking.ID, call.SuccessURL)
	assert.Equal(t, "http://localhost:5173/listings/"+listingID+"?bookingId="+booking.ID, call.CancelURL)
	assert.Equal(t, fixedNow.Add(45*time.Minute), call.ExpiresAt)
	assert.Equal(t, f.listing.Title, call.Title)

	assert.Equal(t, "https://checkout.example/"+booking.ID, resp.RedirectURL)
	assert.Equal(t, resp.RedirectURL, resp.URL)
	assert.Equal(t, []string{model.BookingEventReserved}, f.publisher.types())
	assert.Equal(t, int32(1), f.store.released.Load())
}

func TestCheckout_ListingNotFoundWritesNothing(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{"64b7f0c2a1b2c3d4e5f60799", "not-an-object-id"} {
		req := checkoutRequest("2025-07-10", "2025-07-12", 1)
		req.ListingID = id
		_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, req)

		require.Error(t, err)
		if id == "not-an-object-id" {
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		} else {
			assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "got %v", err)
		}
	}
	assert.Equal(t, int32(0), f.store.creates.Load())
	assert.Empty(t, f.gateway.calls)
	assert.Empty(t, f.publisher.types())
}

func TestCheckout_RejectsInvalidStays(t *testing.T) {
	tests := []struct {
		name     string
		req      *model.CheckoutRequest
		wantCode string
	}{
		{name: "check-out before check-in", req: checkoutRequest("2025-07-12", "2025-07-10", 1), wantCode: apperrors.CodeValidation},
		{name: "too many guests", req: checkoutRequest("2025-07-10", "2025-07-12", 5), wantCode: apperrors.CodeValidation},
		{name: "check-in in the past", req: checkoutRequest("2025-06-30", "2025-07-02", 1), wantCode: apperrors.CodeValidation},
		{name: "outside availability", req: checkoutRequest("2025-12-30", "2026-01-02", 1), wantCode: apperrors.CodeValidation},
		{name: "unparsable date", req: checkoutRequest("tomorrow", "2025-07-12", 1), wantCode: apperrors.CodeValidation},
		{name: "zero guests", req: checkoutRequest("2025-07-10", "2025-07-12", 0), wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, tt.req)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
			assert.Equal(t, int32(0), f.store.creates.Load())
		})
	}
}

func TestCheckout_TodayIsAllowed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest("2025-07-01", "2025-07-02", 1))
	require.NoError(t, err)
}

func TestCheckout_UserIDMustMatchCaller(t *testing.T) {
	f := newFixture(t)

	req := checkoutRequest("2025-07-10", "2025-07-12", 1)
	req.UserID = otherID
	_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, req)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "got %v", err)

	req = checkoutRequest("2025-07-10", "2025-07-12", 1)
	req.UserID = guestID
	_, err = f.svc.CreateCheckoutSession(context.Background(), guestID, req)
	assert.NoError(t, err)
}

func TestCheckout_PaymentFailureMarksBookingFailed(t *testing.T) {
	f := newFixture(t)
	f.gateway.createFunc = func(ctx context.Context, p gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
		return nil, errors.New("card network down")
	}

	_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest("2025-07-10", "2025-07-12", 2))

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeExternalService, appErr.Code)
	assert.Equal(t, 502, appErr.StatusCode())

	bookings, _ := f.store.FindByUser(context.Background(), guestID)
	require.Len(t, bookings, 1)
	assert.Equal(t, model.BookingStatusFailed, bookings[0].Status)
	assert.Equal(t, []string{model.BookingEventReserved, model.BookingEventFailed}, f.publisher.types())

	// the failed booking no longer blocks the dates
	f.gateway.createFunc = nil
	_, err = f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest("2025-07-10", "2025-07-12", 2))
	assert.NoError(t, err)
}

func TestCheckout_PaymentTimeout(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.PaymentTimeout = 20 * time.Millisecond
	f.gateway.createFunc = func(ctx context.Context, p gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest("2025-07-10", "2025-07-12", 2))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeExternalService), "got %v", err)

	bookings, _ := f.store.FindByUser(context.Background(), guestID)
	require.Len(t, bookings, 1)
	assert.Equal(t, model.BookingStatusFailed, bookings[0].Status)
}

func TestCheckout_ConcurrentOverlappingRequestsOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	f.gateway.createFunc = func(ctx context.Context, p gateway.CheckoutSessionParams) (*gateway.CheckoutSession, error) {
		time.Sleep(5 * time.Millisecond)
		return &gateway.CheckoutSession{ID: "cs_" + p.BookingID, URL: "https://checkout.example/" + p.BookingID}, nil
	}

	const workers = 8
	var wg sync.WaitGroup
	var succeeded, conflicted atomic.Int32
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			in := fmt.Sprintf("2025-08-%02d", 10+i%2)
			_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest(in, "2025-08-15", 2))
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperrors.HasCode(err, apperrors.CodeConflict):
				conflicted.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(workers-1), conflicted.Load())
	assert.Equal(t, int32(1), f.store.creates.Load())
}

func TestCheckout_OverlapRules(t *testing.T) {
	hold := 45*time.Minute + pendingGrace
	existing := func(status model.BookingStatus, createdAt time.Time) model.Booking {
		return model.Booking{
			UserID:       otherID,
			ListingID:    listingID,
			CheckInDate:  time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC),
			CheckOutDate: time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
			Status:       status,
			CreatedAt:    createdAt,
		}
	}

	tests := []struct {
		name     string
		existing model.Booking
		in, out  string
		wantErr  bool
	}{
		{name: "paid overlap blocks", existing: existing(model.BookingStatusPaid, fixedNow.Add(-48*time.Hour)), in: "2025-07-14", out: "2025-07-16", wantErr: true},
		{name: "fresh pending overlap blocks", existing: existing(model.BookingStatusPending, fixedNow.Add(-time.Minute)), in: "2025-07-09", out: "2025-07-11", wantErr: true},
		{name: "stale pending does not block", existing: existing(model.BookingStatusPending, fixedNow.Add(-hold-time.Second)), in: "2025-07-10", out: "2025-07-15"},
		{name: "cancelled does not block", existing: existing(model.BookingStatusCancelled, fixedNow), in: "2025-07-10", out: "2025-07-15"},
		{name: "back-to-back stays allowed", existing: existing(model.BookingStatusPaid, fixedNow), in: "2025-07-15", out: "2025-07-18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.seed(tt.existing)

			_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest(tt.in, tt.out, 1))
			if tt.wantErr {
				appErr := apperrors.AsAppError(err)
				assert.Equal(t, apperrors.CodeConflict, appErr.Code)
				assert.Equal(t, 409, appErr.StatusCode())
				assert.Empty(t, f.gateway.calls)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheckout_LockHeld(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Acquire(context.Background(), listingID, "someone-else", time.Minute)
	require.NoError(t, err)

	_, err = f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest("2025-07-10", "2025-07-12", 1))
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, 409, appErr.StatusCode())
	assert.Contains(t, appErr.Message, "currently being booked")
	assert.Equal(t, int32(0), f.store.creates.Load())
}

func TestCheckout_ReserveGivesUpBeforeLockExpires(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.LockTTL = 100 * time.Millisecond

	var remaining time.Duration
	f.store.beforeCount = func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok, "overlap check must run under a deadline")
		remaining = time.Until(deadline)
		<-ctx.Done()
		return ctx.Err()
	}

	_, err := f.svc.CreateCheckoutSession(context.Background(), guestID, checkoutRequest("2025-07-10", "2025-07-12", 1))

	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 409, appErr.StatusCode())
	assert.Contains(t, appErr.Message, "currently being booked")
	assert.Less(t, remaining, 100*time.Millisecond)
	assert.Equal(t, int32(0), f.store.creates.Load())
	assert.Equal(t, int32(1), f.store.released.Load())
	assert.Empty(t, f.gateway.calls)
}

func TestTransition_FollowsStatusTable(t *testing.T) {
	for _, from := range model.AllBookingStatuses {
		for _, to := range model.AllBookingStatuses {
			f := newFixture(t)
			b := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, Status: from})

			got, err := f.svc.transition(context.Background(), b.ID, to)

			switch {
			case from == to:
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, got.Status)
				assert.Empty(t, f.publisher.types(), "%s -> %s", from, to)
			case from.CanTransitionTo(to):
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, f.store.get(b.ID).Status)
				assert.Len(t, f.publisher.types(), 1)
			default:
				assert.ErrorIs(t, err, bookingserrors.ErrStatusConflict, "%s -> %s", from, to)
				assert.Equal(t, from, f.store.get(b.ID).Status)
			}
		}
	}
}

func TestGetForUser(t *testing.T) {
	f := newFixture(t)
	mine := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, Status: model.BookingStatusPaid})

	details, err := f.svc.GetForUser(context.Background(), guestID, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, details.ID)
	require.NotNil(t, details.Listing)
	assert.Equal(t, f.listing.Title, details.Listing.Title)

	_, err = f.svc.GetForUser(context.Background(), otherID, mine.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden), "got %v", err)

	_, err = f.svc.GetForUser(context.Background(), guestID, "64b7f0c2a1b2c3d4e5f60799")
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, 404, appErr.StatusCode())
	assert.Equal(t, "Booking not found", appErr.Message)
}

func TestListForUser_JoinsListingSummaries(t *testing.T) {
	f := newFixture(t)
	older := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, CreatedAt: fixedNow.Add(-time.Hour)})
	newer := f.store.seed(model.Booking{UserID: guestID, ListingID: "64b7f0c2a1b2c3d4e5f60777", CreatedAt: fixedNow})
	f.store.seed(model.Booking{UserID: otherID, ListingID: listingID, CreatedAt: fixedNow})

	got, err := f.svc.ListForUser(context.Background(), guestID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, newer.ID, got[0].ID)
	assert.Nil(t, got[0].Listing)
	assert.Equal(t, older.ID, got[1].ID)
	require.NotNil(t, got[1].Listing)
	assert.Equal(t, "Modern Apartment in New York", got[1].Listing.Title)
	assert.Equal(t, "New York, NY", got[1].Listing.Location)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	pending := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, Status: model.BookingStatusPending})
	paid := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, Status: model.BookingStatusPaid})

	_, err := f.svc.Cancel(context.Background(), otherID, pending.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	cancelled, err := f.svc.Cancel(context.Background(), guestID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)

	again, err := f.svc.Cancel(context.Background(), guestID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, again.Status)
	assert.Equal(t, []string{model.BookingEventCancelled}, f.publisher.types())

	_, err = f.svc.Cancel(context.Background(), guestID, paid.ID)
	appErr := apperrors.AsAppError(err)
	assert.Equal(t, 409, appErr.StatusCode())
	assert.Equal(t, model.BookingStatusPaid, f.store.get(paid.ID).Status)
}

func TestApplyPaymentNotification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, Status: model.BookingStatusPending})
	expired := f.store.seed(model.Booking{UserID: guestID, ListingID: listingID, Status: model.BookingStatusExpired})

	paid, err := f.svc.ApplyPaymentNotification(ctx, &gateway.Notification{BookingID: pending.ID, Status: model.BookingStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, paid.Status)

	// redelivery is a no-op
	again, err := f.svc.ApplyPaymentNotification(ctx, &gateway.Notification{BookingID: pending.ID, Status: model.BookingStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, again.Status)
	assert.Equal(t, []string{model.BookingEventPaid}, f.publisher.types())

	// a late expiry never downgrades a paid booking
	current, err := f.svc.ApplyPaymentNotification(ctx, &gateway.Notification{BookingID: pending.ID, Status: model.BookingStatusExpired})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPaid, current.Status)

	// terminal states stay terminal
	current, err = f.svc.ApplyPaymentNotification(ctx, &gateway.Notification{BookingID: expired.ID, Status: model.BookingStatusPaid})
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusExpired, current.Status)

	unknown, err := f.svc.ApplyPaymentNotification(ctx, &gateway.Notification{BookingID: "64b7f0c2a1b2c3d4e5f60799", Status: model.BookingStatusPaid})
	require.NoError(t, err)
	assert.Nil(t, unknown)

	ignored, err := f.svc.ApplyPaymentNotification(ctx, &gateway.Notification{EventType: "customer.created"})
	require.NoError(t, err)
	assert.Nil(t, ignored)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	hold := 45*time.Minute + pendingGrace
	stale1 := f.store.seed(model.Booking{ListingID: listingID, Status: model.BookingStatusPending, CreatedAt: fixedNow.Add(-hold)})
	stale2 := f.store.seed(model.Booking{ListingID: listingID, Status: model.BookingStatusPending, CreatedAt: fixedNow.Add(-3 * time.Hour)})
	fresh := f.store.seed(model.Booking{ListingID: listingID, Status: model.BookingStatusPending, CreatedAt: fixedNow.Add(-time.Minute)})
	paid := f.store.seed(model.Booking{ListingID: listingID, Status: model.BookingStatusPaid, CreatedAt: fixedNow.Add(-3 * time.Hour)})

	n, err := f.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, model.BookingStatusExpired, f.store.get(stale1.ID).Status)
	assert.Equal(t, model.BookingStatusExpired, f.store.get(stale2.ID).Status)
	assert.Equal(t, model.BookingStatusPending, f.store.get(fresh.ID).Status)
	assert.Equal(t, model.BookingStatusPaid, f.store.get(paid.ID).Status)
}

type countingService struct {
	BookingService
	sweeps atomic.Int32
}

func (c *countingService) ExpireStale(ctx context.Context) (int, error) {
	c.sweeps.Add(1)
	return 0, nil
}

func TestSweeper_RunsUntilCancelled(t *testing.T) {
	svc := &countingService{}
	sweeper := NewSweeper(svc, 5*time.Millisecond, logger.NewNop())
	assert.Equal(t, "booking-sweeper", sweeper.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	require.Eventually(t, func() bool { return svc.sweeps.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
