// Package scheduler provides in-process timed delivery of announcement
// broadcasts. Delivery is at-least-once: a callback that was still waiting
// at shutdown stays pending in the event store and is re-registered on the
// next start.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Scheduler struct {
	logger       *slog.Logger
	shutdownChan chan struct{}
	wg           sync.WaitGroup

	mu      sync.Mutex
	pending int
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}
}

// Schedule invokes deliver at or after fireAt. A fire time in the past
// fires immediately.
func (s *Scheduler) Schedule(fireAt time.Time, deliver func(ctx context.Context)) {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.pending--
			s.mu.Unlock()
		}()

		delay := time.Until(fireAt)
		if delay < 0 {
			delay = 0
		}

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			s.logger.Info("Firing scheduled delivery",
				slog.Time("fire_at", fireAt))
			deliver(context.Background())
		case <-s.shutdownChan:
			s.logger.Info("Scheduler stopping with delivery still pending",
				slog.Time("fire_at", fireAt))
		}
	}()
}

// Pending reports how many deliveries are still waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	close(s.shutdownChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
