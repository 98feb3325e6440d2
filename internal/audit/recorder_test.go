package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"staybook/pkg/kafka"
	"staybook/pkg/logger"
	"staybook/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memEventStore struct {
	mu     sync.Mutex
	events map[string]model.BookingEvent
	err    error
}

func (s *memEventStore) Insert(_ context.Context, event *model.BookingEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.events[event.EventID]; ok {
		return ErrDuplicateEvent
	}
	s.events[event.EventID] = *event
	return nil
}

func newRecorder(store EventStore) *Recorder {
	r := NewRecorder(store, logger.NewNop())
	r.now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func bookingMessage(t *testing.T, event model.BookingEvent) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(event.Type).
		Build()
	require.NoError(t, err)
	return msg
}

func TestRecorder_RecordsOncePerEventID(t *testing.T) {
	store := &memEventStore{events: map[string]model.BookingEvent{}}
	r := newRecorder(store)

	event := model.BookingEvent{
		EventID:    "evt-1",
		Type:       model.BookingEventPaid,
		BookingID:  "b1",
		ListingID:  "l1",
		UserID:     "u1",
		Status:     model.BookingStatusPaid,
		TotalPrice: 200,
		Currency:   "inr",
		OccurredAt: time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC),
	}
	msg := bookingMessage(t, event)

	require.NoError(t, r.Handle(context.Background(), msg))
	require.NoError(t, r.Handle(context.Background(), msg))

	require.Len(t, store.events, 1)
	got := store.events["evt-1"]
	assert.Equal(t, model.BookingStatusPaid, got.Status)
	assert.Equal(t, "b1", got.BookingID)
	assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), got.ReceivedAt)
}

func TestRecorder_FallsBackToHeaders(t *testing.T) {
	store := &memEventStore{events: map[string]model.BookingEvent{}}
	r := newRecorder(store)

	msg := kafka.Message{
		Key:   "b2",
		Value: []byte(`{"status":"expired"}`),
		Headers: map[string]string{
			kafka.HeaderEventID:   "evt-2",
			kafka.HeaderEventType: model.BookingEventExpired,
		},
	}

	require.NoError(t, r.Handle(context.Background(), msg))
	got := store.events["evt-2"]
	assert.Equal(t, "b2", got.BookingID)
	assert.Equal(t, model.BookingEventExpired, got.Type)
}

func TestRecorder_PoisonMessagesArePermanent(t *testing.T) {
	r := newRecorder(&memEventStore{events: map[string]model.BookingEvent{}})

	err := r.Handle(context.Background(), kafka.Message{Value: []byte(`not json`), Headers: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))

	err = r.Handle(context.Background(), kafka.Message{Value: []byte(`{}`), Headers: map[string]string{}})
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypePermanent, kafka.ClassifyError(err))
}

func TestRecorder_StoreFailureIsRetried(t *testing.T) {
	store := &memEventStore{events: map[string]model.BookingEvent{}, err: errors.New("server selection error")}
	r := newRecorder(store)

	err := r.Handle(context.Background(), bookingMessage(t, model.BookingEvent{EventID: "evt-3", BookingID: "b3"}))
	require.Error(t, err)
	assert.True(t, kafka.ShouldRetry(err, 0, 3))
}
