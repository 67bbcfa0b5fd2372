package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/observability/metrics"
)

type sweepFake struct {
	calls   atomic.Int32
	removed int
	err     error
}

func (f *sweepFake) ClearExpired(context.Context) (int, error) {
	f.calls.Add(1)
	return f.removed, f.err
}

func TestSweepOnceReportsRemoved(t *testing.T) {
	fake := &sweepFake{removed: 4}
	s := newSweeper(fake, metrics.NewWorkerMetrics("test"), nil)

	removed, err := s.sweepOnce(context.Background())
	if err != nil || removed != 4 {
		t.Fatalf("sweepOnce() = %d, %v", removed, err)
	}
}

func TestSweepOnceReturnsStorageError(t *testing.T) {
	fake := &sweepFake{err: errors.New("disk gone")}
	s := newSweeper(fake, nil, nil)

	if _, err := s.sweepOnce(context.Background()); err == nil {
		t.Fatalf("expected sweep error")
	}
}

func TestRunSweepsImmediatelyAndOnTick(t *testing.T) {
	fake := &sweepFake{}
	s := newSweeper(fake, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for fake.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least two sweeps, got %d", fake.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
