package core

import "context"

const (
	DefaultMaxConcurrentCalls = 40
)

// Limiter bounds the number of concurrent outbound calls.
type Limiter struct {
	slots chan struct{}
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentCalls
	}
	return &Limiter{slots: make(chan struct{}, maxConcurrent)}
}

// Run waits for a free slot, then executes fn. The slot is released even if
// fn panics; the panic is propagated to the caller.
func (l *Limiter) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-l.slots }()

	return fn(ctx)
}

// InFlight reports how many slots are currently taken.
func (l *Limiter) InFlight() int {
	return len(l.slots)
}
