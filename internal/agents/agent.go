// Package agents implements the three periodic order-flow drivers
// (§4.5): the Supplier, the PurchasingAgent, and the CustomerSimulator.
// All three share the ticker+context.Context start/stop shape
// generalized from the teacher's internal/engine/expiry.go
// ExpiryManager.Start(ctx).
package agents

import (
	"context"
	"sync"
	"time"
)

// ticker is the shared start/stop skeleton every agent embeds. It is
// individually start/stop-able and idempotent to a double Start
// (§4.5): a second Start call while already running is a no-op.
type ticker struct {
	interval time.Duration
	tick     func(ctx context.Context)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newTicker(interval time.Duration, tick func(ctx context.Context)) *ticker {
	return &ticker{interval: interval, tick: tick}
}

// Start launches the periodic loop. Calling Start while already
// running is a no-op.
func (t *ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go func() {
		defer close(t.done)
		tk := time.NewTicker(t.interval)
		defer tk.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-tk.C:
				t.tick(runCtx)
			}
		}
	}()
}

// Stop cancels the periodic loop and blocks until the in-flight tick,
// if any, completes (§5 cancellation guarantee). Calling Stop when not
// running is a no-op.
func (t *ticker) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	done := t.done
	t.running = false
	t.mu.Unlock()

	cancel()
	<-done
}
