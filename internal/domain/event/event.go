// Package event defines input events and the queues that carry them from
// hardware drivers to the window manager.
package event

import (
	"context"
	"time"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
)

// Kind discriminates the payload of an Event
type Kind uint8

const (
	KindKey Kind = iota + 1
	KindMouse
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindKey:
		return "key"
	case KindMouse:
		return "mouse"
	default:
		return "unknown"
	}
}

// KeyAction is a key transition
type KeyAction uint8

const (
	Pressed KeyAction = iota + 1
	Released
)

// Modifiers is a bit set of held modifier keys
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// MouseButtons is a bit set of held mouse buttons
type MouseButtons uint8

const (
	ButtonLeft MouseButtons = 1 << iota
	ButtonRight
	ButtonMiddle
)

// KeyEvent is a keyboard transition
type KeyEvent struct {
	Keycode   uint16
	Action    KeyAction
	Modifiers Modifiers
}

// MouseEvent is a relative pointer movement with button state
type MouseEvent struct {
	DX, DY  int32
	Scroll  int8
	Buttons MouseButtons
}

// Event is a discrete input event. Only the payload matching Kind is set.
type Event struct {
	Kind  Kind
	Key   KeyEvent
	Mouse MouseEvent
	Time  time.Time
}

// Keyboard builds a key event stamped with the current time
func Keyboard(k KeyEvent) Event {
	return Event{Kind: KindKey, Key: k, Time: time.Now()}
}

// Mouse builds a mouse event stamped with the current time
func Mouse(m MouseEvent) Event {
	return Event{Kind: KindMouse, Mouse: m, Time: time.Now()}
}

// Queue is a bounded multi-producer multi-consumer FIFO of events. Events
// from a single producer are delivered in the order pushed; there is no
// ordering across producers or across queues.
type Queue struct {
	name    string
	ch      chan Event
	metrics *monitoring.Metrics
}

// NewQueue creates a queue holding at most capacity pending events
func NewQueue(name string, capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		name: name,
		ch:   make(chan Event, capacity),
	}
}

// WithMetrics adds metrics tracking to the queue
func (q *Queue) WithMetrics(metrics *monitoring.Metrics) *Queue {
	q.metrics = metrics
	return q
}

// Name returns the queue name
func (q *Queue) Name() string { return q.name }

// Len returns the number of pending events
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity
func (q *Queue) Cap() int { return cap(q.ch) }

// Push offers ev without blocking. It returns false and drops the event
// when the queue is full; input producers must never stall.
func (q *Queue) Push(ev Event) bool {
	select {
	case q.ch <- ev:
		q.metrics.RecordInputEvent(q.name, true)
		return true
	default:
		q.metrics.RecordInputEvent(q.name, false)
		return false
	}
}

// Pop removes the oldest pending event without blocking
func (q *Queue) Pop() (Event, bool) {
	select {
	case ev := <-q.ch:
		return ev, true
	default:
		return Event{}, false
	}
}

// Recv blocks until an event is available or ctx is done
func (q *Queue) Recv(ctx context.Context) (Event, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// C exposes the receive side for use in select statements
func (q *Queue) C() <-chan Event {
	return q.ch
}
