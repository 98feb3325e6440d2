package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	err    error
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

type fakeReader struct {
	queue     chan kafka.Message
	mu        sync.Mutex
	committed []kafka.Message
	closed    chan struct{}
	once      sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	r := &fakeReader{queue: make(chan kafka.Message, len(msgs)), closed: make(chan struct{})}
	for _, m := range msgs {
		r.queue <- m
	}
	return r
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.queue:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-r.closed:
		return kafka.Message{}, errors.New("reader closed")
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.once.Do(func() { close(r.closed) })
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T, key string) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey(key).
		WithValue(map[string]string{"status": "paid"}).
		WithEventType("booking.paid").
		Build()
	require.NoError(t, err)
	return msg
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("b1").
		WithValue(map[string]int{"n": 1}).
		WithCorrelationID("req-1").
		WithSource("api").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "b1", msg.Key)
	assert.JSONEq(t, `{"n":1}`, string(msg.Value))
	assert.NotEmpty(t, msg.GetEventID())
	assert.Equal(t, "req-1", msg.GetCorrelationID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	_, err = NewMessage().WithKey("b1").WithValue(make(chan int)).Build()
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.GetRetryCount())
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.GetRetryCount())
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "booking-events", "", nil)

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner")
		assert.Equal(t, "booking-events", msg.Topic)
		return next(ctx, msg)
	})

	require.NoError(t, p.Publish(context.Background(), buildMessage(t, "b1")))
	assert.Equal(t, []string{"outer", "inner"}, order)

	written := w.written()
	require.Len(t, written, 1)
	assert.Equal(t, "b1", string(written[0].Key))
	assert.Equal(t, "booking.paid", header(written[0], HeaderEventType))
}

func TestProducer_RejectsInvalid(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", "", nil)

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("{}")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t, "k")), ErrProducerClosed)
}

func TestProducer_FailureGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	w := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "booking-events", "booking-events-dlq", nil)

	msg := buildMessage(t, "b1")
	err := p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, writeErr)

	parked := dlq.written()
	require.Len(t, parked, 1)
	assert.Equal(t, "booking-events", header(parked[0], HeaderOriginalTopic))
	assert.Equal(t, writeErr.Error(), header(parked[0], HeaderDLQError))
	_, leaked := msg.Headers[HeaderDLQError]
	assert.False(t, leaked)
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader, wantCommits int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool { return r.commits() >= wantCommits }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_RetriesTransientThenCommits(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("b1"), Value: []byte(`{}`)})
	attempts := 0
	handler := func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("db unavailable", errors.New("connection refused"))
		}
		return nil
	}

	c := newConsumer(r, nil, "booking-events", "audit", handler, nil)
	c.maxRetries = 3

	runConsumer(t, c, r, 1)
	assert.Equal(t, 3, attempts)
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Key: []byte("bad"), Value: []byte(`not json`)},
		kafka.Message{Key: []byte("good"), Value: []byte(`{}`)},
	)
	dlq := &fakeWriter{}
	var handled []string
	handler := func(ctx context.Context, msg Message) error {
		var v map[string]any
		if err := msg.DecodeValue(&v); err != nil {
			return err
		}
		handled = append(handled, msg.Key)
		return nil
	}

	c := newConsumer(r, dlq, "booking-events", "audit", handler, nil)
	c.maxRetries = 5

	runConsumer(t, c, r, 2)
	assert.Equal(t, []string{"good"}, handled)

	parked := dlq.written()
	require.Len(t, parked, 1)
	assert.Equal(t, "bad", string(parked[0].Key))
	assert.Equal(t, "audit", header(parked[0], HeaderDLQGroup))
}

func TestConsumer_CloseUnblocksStart(t *testing.T) {
	r := newFakeReader()
	c := newConsumer(r, nil, "t", "g", func(context.Context, Message) error { return nil }, nil)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, c.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrConsumerClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Close")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypeUnknown},
		{name: "explicit transient", err: NewTransientError("x", nil), want: ErrorTypeTransient},
		{name: "explicit permanent", err: NewPermanentError("x", nil), want: ErrorTypePermanent},
		{name: "deadline", err: context.DeadlineExceeded, want: ErrorTypeTransient},
		{name: "connection refused text", err: errors.New("dial tcp: Connection Refused"), want: ErrorTypeTransient},
		{name: "unknown", err: errors.New("schema mismatch"), want: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}

	assert.False(t, ShouldRetry(NewTransientError("x", nil), 3, 3))
	assert.True(t, ShouldRetry(NewTransientError("x", nil), 2, 3))
}
