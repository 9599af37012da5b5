package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher publishes domain events to in-process subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryDispatcher delivers synchronously on the publishing goroutine.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish invokes every handler subscribed to the event type in subscription
// order. A failing or panicking handler does not stop the others; their errors
// are joined. Delivery stops early once ctx is done.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := d.listeners[event.Type]
	d.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := invoke(ctx, handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler panicked: %v", event.Type, r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the given event type. The slice is copied
// on write so Publish can iterate without holding the lock.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	current := d.listeners[eventType]
	next := make([]EventHandler, len(current), len(current)+1)
	copy(next, current)
	d.listeners[eventType] = append(next, handler)
}
