package engine

import (
	"sync"

	"github.com/hammamikhairi/ottoread/internal/domain"
)

// DefaultQueueSize is the event buffer used when none is given.
const DefaultQueueSize = 64

// Compile-time interface check.
var _ domain.Emitter = (*Queue)(nil)

// Queue is the engine's inbound event channel. Capability adapters hold
// it as their domain.Emitter; the engine drains it on its dispatch
// goroutine. Emit blocks while the buffer is full and becomes a no-op
// once the queue is closed.
type Queue struct {
	ch   chan domain.Event
	done chan struct{}
	once sync.Once
}

// NewQueue creates a queue buffering up to size events.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		ch:   make(chan domain.Event, size),
		done: make(chan struct{}),
	}
}

// Emit posts an event.
func (q *Queue) Emit(ev domain.Event) {
	q.post(ev)
}

// post reports whether the event was accepted.
func (q *Queue) post(ev domain.Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- ev:
		return true
	case <-q.done:
		return false
	}
}

// Close stops accepting events. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Len returns the number of buffered events.
func (q *Queue) Len() int { return len(q.ch) }
