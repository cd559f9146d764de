// Package broadcast is the buffered fan-out of domain events to
// registered sinks (§4.4), grounded on AMOORCHING-ATMX's
// internal/trade/ws_hub.go register/unregister/broadcast channel loop.
// Unlike that hub's single shared queue, every sink here gets its own
// bounded, drop-oldest queue so a slow sink can never stall another.
package broadcast

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/metrics"
)

// DefaultQueueSize is the per-sink bounded queue depth.
const DefaultQueueSize = 256

// EventSink receives domain events fanned out by the Broadcaster.
// Registration accepts one implementation per observer: a websocket
// bridge, a log sink, a metrics sink, and so on (§6).
type EventSink interface {
	OnEvent(evt domain.Event)
}

// sinkWorker owns one bounded queue and the goroutine draining it into
// the wrapped sink.
type sinkWorker struct {
	name    string
	sink    EventSink
	queue   chan domain.Event
	dropped atomic.Uint64
	sendMu  sync.Mutex // serialises the drop-oldest sequence
}

func newSinkWorker(name string, sink EventSink, queueSize int) *sinkWorker {
	return &sinkWorker{
		name:  name,
		sink:  sink,
		queue: make(chan domain.Event, queueSize),
	}
}

func (w *sinkWorker) run() {
	for evt := range w.queue {
		w.sink.OnEvent(evt)
	}
}

// offer enqueues evt, dropping the oldest queued event on overflow.
// Reports whether a drop occurred.
func (w *sinkWorker) offer(evt domain.Event) bool {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	select {
	case w.queue <- evt:
		return false
	default:
	}

	select {
	case <-w.queue:
		w.dropped.Add(1)
	default:
	}
	select {
	case w.queue <- evt:
	default:
		// The worker refilled the slot before we could; give up on
		// this event rather than block the publisher.
	}
	return true
}

// Broadcaster fans out domain events to every registered sink. Publish
// never blocks on a slow sink: delivery to a full queue drops the
// oldest queued event and reports the drop via an Error event, except
// when the incoming event is itself an Error event, which would
// otherwise recurse.
type Broadcaster struct {
	mu     sync.RWMutex
	sinks  map[string]*sinkWorker
	logger *slog.Logger
}

// New creates an empty Broadcaster.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{sinks: make(map[string]*sinkWorker), logger: logger}
}

// Register adds a sink under name and starts its delivery goroutine.
// Registering the same name twice replaces the prior sink.
func (b *Broadcaster) Register(name string, sink EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.sinks[name]; ok {
		close(existing.queue)
	}
	w := newSinkWorker(name, sink, DefaultQueueSize)
	b.sinks[name] = w
	go w.run()
}

// Unregister stops and removes a sink.
func (b *Broadcaster) Unregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.sinks[name]; ok {
		close(w.queue)
		delete(b.sinks, name)
	}
}

// Publish fans evt out to every registered sink.
func (b *Broadcaster) Publish(evt domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, w := range b.sinks {
		if w.offer(evt) && evt.Kind != domain.EventError {
			metrics.EventsDropped.WithLabelValues(w.name).Inc()
			b.logger.Warn("event sink queue full, dropped oldest event", slog.String("sink", w.name))
			dropEvt := domain.NewErrorEvent(
				fmt.Sprintf("sink %q dropped an event: queue depth exceeded", w.name), "broadcaster",
			)
			for _, other := range b.sinks {
				other.offer(dropEvt)
			}
		}
	}
}
