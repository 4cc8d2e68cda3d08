// Package eventbus fans game events out to presentation adapters.
// Delivery is synchronous and in publish order.
package eventbus

import (
	"sync"

	"github.com/imkarma/studier/internal/game"
)

// Handler receives a published event.
type Handler func(game.Event)

// Bus is a synchronous publish/subscribe hub keyed by event kind.
type Bus struct {
	mu      sync.RWMutex
	byKind  map[game.EventKind][]Handler
	all     []Handler
	hooks   []func(game.Event)
	onPanic []func(game.Event, any)
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{byKind: make(map[game.EventKind][]Handler)}
}

// Subscribe registers fn for one event kind.
func (b *Bus) Subscribe(kind game.EventKind, fn Handler) {
	b.mu.Lock()
	b.byKind[kind] = append(b.byKind[kind], fn)
	b.mu.Unlock()
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn Handler) {
	b.mu.Lock()
	b.all = append(b.all, fn)
	b.mu.Unlock()
}

// OnPublish registers a hook that fires after an event has been delivered.
func (b *Bus) OnPublish(fn func(game.Event)) {
	b.mu.Lock()
	b.hooks = append(b.hooks, fn)
	b.mu.Unlock()
}

// OnPanic registers a hook that fires when a subscriber panics.
func (b *Bus) OnPanic(fn func(game.Event, any)) {
	b.mu.Lock()
	b.onPanic = append(b.onPanic, fn)
	b.mu.Unlock()
}

// Publish delivers events in order. A panicking subscriber does not stop
// delivery to the others.
func (b *Bus) Publish(events ...game.Event) {
	if b == nil {
		return
	}
	for _, ev := range events {
		b.mu.RLock()
		handlers := make([]Handler, 0, len(b.byKind[ev.Kind])+len(b.all))
		handlers = append(handlers, b.byKind[ev.Kind]...)
		handlers = append(handlers, b.all...)
		hooks := append([]func(game.Event){}, b.hooks...)
		b.mu.RUnlock()

		for _, fn := range handlers {
			b.deliver(fn, ev)
		}
		for _, fn := range hooks {
			fn(ev)
		}
	}
}

func (b *Bus) deliver(fn Handler, ev game.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.runOnPanic(ev, r)
		}
	}()
	fn(ev)
}

func (b *Bus) runOnPanic(ev game.Event, recovered any) {
	b.mu.RLock()
	hooks := append([]func(game.Event, any){}, b.onPanic...)
	b.mu.RUnlock()
	for _, fn := range hooks {
		func() {
			defer func() { recover() }() //nolint:errcheck
			fn(ev, recovered)
		}()
	}
}
