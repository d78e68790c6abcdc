package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSweeper struct {
	ttl   time.Duration
	calls atomic.Int32
}

func (f *fakeSweeper) PruneExpired() int {
	f.calls.Add(1)
	return 1
}

func (f *fakeSweeper) MinTTL() time.Duration { return f.ttl }

func TestNewPruner_Interval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{30 * time.Second, 15 * time.Second},
		{10 * time.Minute, time.Minute},
		{time.Second, time.Second},
	}
	for _, tt := range tests {
		p := NewPruner(&fakeSweeper{ttl: tt.ttl}, 0)
		if p.Interval() != tt.want {
			t.Errorf("ttl %v: expected interval %v, got %v", tt.ttl, tt.want, p.Interval())
		}
	}
	if p := NewPruner(&fakeSweeper{ttl: time.Minute}, 5*time.Millisecond); p.Interval() != 5*time.Millisecond {
		t.Errorf("explicit interval ignored: %v", p.Interval())
	}
}

func TestPruner_StartStops(t *testing.T) {
	s := &fakeSweeper{ttl: time.Minute}
	p := NewPruner(s, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for s.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("pruner did not sweep")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruner did not stop")
	}
}
