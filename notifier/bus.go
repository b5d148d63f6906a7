package notifier

import (
	"context"
	"sync"
)

// Bus is an in-process change notifier: an explicit registry mapping
// subscription IDs to handlers. Every open live stream holds exactly one
// subscription, and teardown must cancel it, otherwise the handler leaks.
//
// Bus is safe for concurrent use by multiple goroutines. Handlers added or
// removed while a publish is in flight never corrupt the broadcast: Publish
// iterates over a snapshot of the registry.
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler
}

// NewBus creates an empty notifier bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[uint64]Handler)}
}

// Subscribe registers a handler and returns its subscription.
func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h

	return &Subscription{bus: b, id: id}
}

// Publish invokes every registered handler once with the given event.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	snapshot := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	// Invoke outside the lock so a handler may subscribe or cancel.
	for _, h := range snapshot {
		h(ev)
	}
	return nil
}

// HandlerCount returns the number of registered handlers.
func (b *Bus) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

// Subscription is one registered handler on a Bus.
type Subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

// Cancel deregisters the handler. It is idempotent and safe to call from
// every disconnect path.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}
