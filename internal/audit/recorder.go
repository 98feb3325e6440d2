package audit

import (
	"context"
	"errors"
	"time"

	"staybook/pkg/kafka"
	"staybook/pkg/logger"
	"staybook/pkg/model"
)

// Recorder persists booking lifecycle events consumed from Kafka into an
// append-only trail. Redelivered events are recorded once.
type Recorder struct {
	store EventStore
	log   *logger.Logger
	now   func() time.Time
}

func NewRecorder(store EventStore, log *logger.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Handle is a kafka.MessageHandler.
func (r *Recorder) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return err
	}

	if event.EventID == "" {
		event.EventID = msg.GetEventID()
	}
	if event.EventID == "" {
		return kafka.NewPermanentError("booking event has no id", kafka.ErrInvalidMessage)
	}
	if event.BookingID == "" {
		event.BookingID = msg.Key
	}
	if event.Type == "" {
		event.Type = msg.GetEventType()
	}
	event.ReceivedAt = r.now().UTC()

	err := r.store.Insert(ctx, &event)
	switch {
	case err == nil:
		r.log.Info("Booking event recorded",
			"event_id", event.EventID,
			"event_type", event.Type,
			"booking_id", event.BookingID,
			"correlation_id", msg.GetCorrelationID(),
		)
		return nil
	case errors.Is(err, ErrDuplicateEvent):
		r.log.Debug("Booking event already recorded", "event_id", event.EventID)
		return nil
	default:
		return kafka.NewTransientError("failed to record booking event", err)
	}
}
