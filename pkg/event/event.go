// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Simulation event types
const (
	SimulationStarted Type = "simulation_started"
	SimulationStopped Type = "simulation_stopped"
	TickCompleted     Type = "tick_completed"
	BodiesCollided    Type = "bodies_collided"
)

// Event is the base interface for all events
type Event interface {
	GetType() Type
	GetSource() interface{}
}

// BaseEvent provides common functionality for all events
type BaseEvent struct {
	EventType Type
	Source    interface{}
}

// GetType returns the event type
func (e *BaseEvent) GetType() Type {
	return e.EventType
}

// GetSource returns the event source
func (e *BaseEvent) GetSource() interface{} {
	return e.Source
}

// Handler is a function that handles events
type Handler func(Event)

// Subscription is returned by Subscribe. Cancel removes the handler and is
// safe to call more than once.
type Subscription struct {
	ID     uint64
	Cancel func()
}

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	handlers map[Type][]subscriber
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]subscriber),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscriber{id: id, handler: handler})

	return &Subscription{
		ID:     id,
		Cancel: func() { b.unsubscribe(eventType, id) },
	}
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			// Copy so a Publish holding the old slice is unaffected.
			remaining := make([]subscriber, 0, len(subs)-1)
			remaining = append(remaining, subs[:i]...)
			remaining = append(remaining, subs[i+1:]...)
			if len(remaining) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = remaining
			}
			return
		}
	}
}

// HasSubscribers reports whether any handler listens for eventType.
func (b *Bus) HasSubscribers(eventType Type) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) > 0
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.handlers[event.GetType()]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(event)
	}
}

// SimulationEvent marks the start or end of a run.
type SimulationEvent struct {
	BaseEvent
	Tick     uint64
	Bodies   int
	Strategy string
	// Reason is set on SimulationStopped.
	Reason string
}

// NewSimulationEvent creates a start or stop event
func NewSimulationEvent(eventType Type, source interface{}, tick uint64, bodies int, strategy, reason string) *SimulationEvent {
	return &SimulationEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		Tick:     tick,
		Bodies:   bodies,
		Strategy: strategy,
		Reason:   reason,
	}
}

// TickEvent reports the pair counts of one completed tick.
type TickEvent struct {
	BaseEvent
	Tick       uint64
	Candidates int
	Distinct   int
	Resolved   int
}

// NewTickEvent creates a TickCompleted event
func NewTickEvent(source interface{}, tick uint64, candidates, distinct, resolved int) *TickEvent {
	return &TickEvent{
		BaseEvent: BaseEvent{
			EventType: TickCompleted,
			Source:    source,
		},
		Tick:       tick,
		Candidates: candidates,
		Distinct:   distinct,
		Resolved:   resolved,
	}
}

// CollisionEvent reports one resolved collision between two bodies.
type CollisionEvent struct {
	BaseEvent
	Tick  uint64
	BodyA int
	BodyB int
}

// NewCollisionEvent creates a BodiesCollided event
func NewCollisionEvent(source interface{}, tick uint64, bodyA, bodyB int) *CollisionEvent {
	return &CollisionEvent{
		BaseEvent: BaseEvent{
			EventType: BodiesCollided,
			Source:    source,
		},
		Tick:  tick,
		BodyA: bodyA,
		BodyB: bodyB,
	}
}
