package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleTickerLoopRunOnStart(t *testing.T) {
	var ticks atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- SingleTickerLoop(ctx, SingleTickerConfig{
			Name:       "test",
			Interval:   time.Hour,
			RunOnStart: true,
			OnTick: func(_ context.Context) {
				ticks.Add(1)
			},
		})
	}()

	deadline := time.Now().Add(time.Second)
	for ticks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if ticks.Load() != 1 {
		t.Fatalf("ticks = %d, want 1", ticks.Load())
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestSingleTickerLoopTicks(t *testing.T) {
	var ticks atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- SingleTickerLoop(ctx, SingleTickerConfig{
			Name:     "test",
			Interval: time.Millisecond,
			OnTick: func(_ context.Context) {
				ticks.Add(1)
			},
		})
	}()

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if ticks.Load() < 3 {
		t.Fatalf("ticks = %d, want at least 3", ticks.Load())
	}
}

func TestSingleTickerLoopHooks(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		_ = SingleTickerLoop(ctx, SingleTickerConfig{
			Name:     "test",
			Interval: time.Hour,
			OnStart:  func(_ context.Context) { close(started) },
			OnStop:   func() { close(stopped) },
		})
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("OnStart not called")
	}

	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("OnStop not called")
	}
}
