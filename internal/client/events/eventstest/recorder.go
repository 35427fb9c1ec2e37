// Package eventstest records published events for assertions.
package eventstest

import (
	"sync"

	"github.com/iudanet/matsync/internal/client/events"
)

// Recorder collects every event published on a bus.
type Recorder struct {
	events []events.Event
	mu     sync.Mutex
}

// NewRecorder subscribes a recorder to bus.
func NewRecorder(bus *events.Bus) *Recorder {
	r := &Recorder{}
	bus.Subscribe(func(e events.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the kinds of recorded events in publish order.
func (r *Recorder) Kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind())
	}
	return out
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
