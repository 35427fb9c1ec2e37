package events

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives published events
type Handler func(Event)

type subscription struct {
	fn Handler
	id uint64
}

// Bus is an in-process publish/subscribe channel.
// Publish delivers synchronously to every subscriber in subscription order.
type Bus struct {
	logger *slog.Logger
	subs   []subscription
	nextID uint64
	mu     sync.RWMutex
}

// NewBus creates an empty bus. A nil logger falls back to slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

// On subscribes a handler for a single event type.
func On[T Event](b *Bus, fn func(T)) (unsubscribe func()) {
	return b.Subscribe(func(e Event) {
		if ev, ok := e.(T); ok {
			fn(ev)
		}
	})
}

// Publish delivers e to all current subscribers.
// Handlers may subscribe or unsubscribe from inside a callback.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, e)
	}
}

func (b *Bus) deliver(s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event", string(e.Kind()),
				"error", fmt.Sprint(r),
			)
		}
	}()
	s.fn(e)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
