// Package httpserver owns the HTTP/HTTPS listener of a webhost instance.
package httpserver

import (
	"fmt"
	"sync"
)

// EventKind identifies a listener notification.
type EventKind int

const (
	// EventStarted is published once the listener accepts connections.
	EventStarted EventKind = iota + 1
	// EventStopped is published after a running listener shut down.
	EventStopped
	// EventError is published when binding or serving failed.
	EventError
	// EventPortChanged is published at the end of every reconciliation pass.
	EventPortChanged
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	case EventPortChanged:
		return "port_changed"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a listener notification.
type Event struct {
	Kind     EventKind
	Instance string
	Secure   bool
	Port     uint16
	Err      error
}

// Handler receives events.
type Handler func(Event)

// Bus delivers events to subscribers synchronously, in subscription order.
//
// Subscribers are registered while the instance is being composed. Publish
// is only called from the instance's control goroutine, so subscribers see
// events in the order the state changed.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h for all future events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish delivers e to every subscriber. A nil bus drops the event.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
