// expiry_test.go — the subscription expiry sweep loop.
package billing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingExpirer struct {
	calls atomic.Int64
}

func (c *countingExpirer) ExpireStale(_ context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestExpirySweepRunsAndStops(t *testing.T) {
	store := &countingExpirer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		RunExpirySweep(ctx, store, 5*time.Millisecond, nil)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for store.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweep never ran twice")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop on cancel")
	}
}
