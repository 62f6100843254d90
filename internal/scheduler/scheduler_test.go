package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_FiresPastDueImmediately(t *testing.T) {
	s := New(nil)
	defer s.Shutdown(context.Background())

	fired := make(chan struct{})
	s.Schedule(time.Now().Add(-time.Minute), func(ctx context.Context) {
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("past-due delivery never fired")
	}
}

func TestScheduler_FiresAtFireTime(t *testing.T) {
	s := New(nil)
	defer s.Shutdown(context.Background())

	start := time.Now()
	fired := make(chan time.Time, 1)
	s.Schedule(start.Add(50*time.Millisecond), func(ctx context.Context) {
		fired <- time.Now()
	})

	select {
	case at := <-fired:
		if at.Before(start.Add(50 * time.Millisecond)) {
			t.Errorf("fired %s early", start.Add(50*time.Millisecond).Sub(at))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delivery never fired")
	}
}

func TestScheduler_ShutdownCancelsPending(t *testing.T) {
	s := New(nil)

	var fired atomic.Bool
	s.Schedule(time.Now().Add(time.Hour), func(ctx context.Context) {
		fired.Store(true)
	})

	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending delivery, got %d", s.Pending())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fired.Load() {
		t.Error("delivery must not fire after shutdown")
	}
	if s.Pending() != 0 {
		t.Errorf("expected no pending deliveries, got %d", s.Pending())
	}
}
