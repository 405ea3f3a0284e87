package recovery

import (
	"context"
	"sync"

	"github.com/zentikhq/zentik-sync/pkg/logger"
)

// Event names a recovery condition broadcast through the bus.
type Event string

const (
	// EventStorageCorrupted fires when the local database is detected
	// as unreadable; listeners reset storage and trigger a resync.
	EventStorageCorrupted Event = "storage.corrupted"
	// EventDeviceInvalidated fires when the backend rejects this
	// device's registration; listeners drop cached credentials.
	EventDeviceInvalidated Event = "device.invalidated"
)

// Handler reacts to one recovery event.
type Handler func(ctx context.Context, event Event)

// Subscription identifies one registered handler so it can be removed.
type Subscription struct {
	event Event
	id    int
}

// Bus is an in-process recovery event dispatcher. Emit calls handlers
// synchronously in registration order; a panicking handler is contained
// and does not stop delivery to the rest.
type Bus struct {
	logg *logger.Logger

	mu       sync.RWMutex
	nextID   int
	handlers map[Event][]registration
}

type registration struct {
	id      int
	handler Handler
}

// NewBus builds an empty recovery bus.
func NewBus(logg *logger.Logger) *Bus {
	return &Bus{
		logg:     logg,
		handlers: map[Event][]registration{},
	}
}

// On registers handler for event and returns the subscription handle.
func (b *Bus) On(event Event, handler Handler) *Subscription {
	if handler == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers[event] = append(b.handlers[event], registration{id: b.nextID, handler: handler})
	return &Subscription{event: event, id: b.nextID}
}

// Off removes a single subscription. Unknown handles are ignored.
func (b *Bus) Off(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.handlers[sub.event]
	for i, reg := range regs {
		if reg.id == sub.id {
			b.handlers[sub.event] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// RemoveAllListeners drops every handler for event, or every handler on
// the bus when event is empty.
func (b *Bus) RemoveAllListeners(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if event == "" {
		b.handlers = map[Event][]registration{}
		return
	}
	delete(b.handlers, event)
}

// Emit delivers event to every registered handler in order.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	regs := make([]registration, len(b.handlers[event]))
	copy(regs, b.handlers[event])
	b.mu.RUnlock()

	for _, reg := range regs {
		b.dispatch(ctx, event, reg.handler)
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil && b.logg != nil {
			eventCtx := b.logg.WithFields(ctx, map[string]any{
				"event": string(event),
				"panic": r,
			})
			b.logg.Warn(eventCtx, "recovery handler panicked, continuing delivery")
		}
	}()
	handler(ctx, event)
}
