package service

import (
	"context"
	"time"

	"staybook/pkg/logger"
)

// Sweeper periodically expires pending bookings whose checkout was abandoned.
type Sweeper struct {
	service  BookingService
	interval time.Duration
	log      *logger.Logger
}

func NewSweeper(service BookingService, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		log:      log,
	}
}

func (s *Sweeper) Name() string {
	return "booking-sweeper"
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.service.ExpireStale(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("Failed to expire stale bookings", "expired", expired, "error", err)
		return
	}
	if expired > 0 {
		s.log.Info("Expired stale bookings", "count", expired)
	}
}
