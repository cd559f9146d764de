package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/donutexchange/internal/domain"
)

type collectingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *collectingSink) OnEvent(evt domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *collectingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// blockingSink never drains, forcing its queue to fill and overflow.
type blockingSink struct{}

func (blockingSink) OnEvent(domain.Event) { select {} }

func TestBroadcaster_DeliversToAllSinks(t *testing.T) {
	b := New(nil)
	a := &collectingSink{}
	c := &collectingSink{}
	b.Register("a", a)
	b.Register("c", c)

	b.Publish(domain.NewBookUpdatedEvent("glazed"))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a.count() == 1 && c.count() == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("sinks did not both receive the event: a=%d c=%d", a.count(), c.count())
}

func TestBroadcaster_SlowSinkDoesNotBlockPublish(t *testing.T) {
	b := New(nil)
	b.Register("slow", blockingSink{})
	fast := &collectingSink{}
	b.Register("fast", fast)

	done := make(chan struct{})
	go func() {
		for i := 0; i < DefaultQueueSize*2; i++ {
			b.Publish(domain.NewBookUpdatedEvent("glazed"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow sink")
	}
}

func TestSinkWorker_DropsOldestOnOverflow(t *testing.T) {
	w := newSinkWorker("test", blockingSink{}, 2)
	// Fill the queue without a worker draining it.
	w.offer(domain.NewBookUpdatedEvent("a"))
	w.offer(domain.NewBookUpdatedEvent("b"))
	dropped := w.offer(domain.NewBookUpdatedEvent("c"))
	if !dropped {
		t.Error("offer() on a full queue should report a drop")
	}
	if w.dropped.Load() != 1 {
		t.Errorf("dropped counter = %d, want 1", w.dropped.Load())
	}
}
