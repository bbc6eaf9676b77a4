// pkg/event/event.go
package event

import (
	"sync"
)

// Type represents the type of event
type Type string

// Collision event types
const (
	// BoundsChanged fires after a collider's footprint moved. The event
	// carries no payload: subscribers re-read the source's bounds.
	BoundsChanged      Type = "bounds_changed"
	TriggerEntered     Type = "trigger_entered"
	MoveBlocked        Type = "move_blocked"
	ColliderRegistered Type = "collider_registered"
	ColliderRemoved    Type = "collider_removed"
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

// Subscription identifies one registered handler. Cancel removes it.
type Subscription struct {
	ID     uint64
	Type   Type
	Cancel func()
}

type registeredHandler struct {
	id      uint64
	handler Handler
}

// Bus manages event subscriptions and dispatching.
// Handlers run synchronously on the publishing goroutine.
type Bus struct {
	handlers map[Type][]registeredHandler
	nextID   uint64
	mu       sync.RWMutex
}

// NewEventBus creates a new event bus
func NewEventBus() *Bus {
	return &Bus{
		handlers: make(map[Type][]registeredHandler),
		nextID:   1,
	}
}

// Subscribe registers a handler for a specific event type
func (b *Bus) Subscribe(eventType Type, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], registeredHandler{id: id, handler: handler})

	return &Subscription{
		ID:   id,
		Type: eventType,
		Cancel: func() {
			b.unsubscribe(eventType, id)
		},
	}
}

// Unsubscribe removes the handler behind sub. Unknown subscriptions are ignored.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.unsubscribe(sub.Type, sub.ID)
}

func (b *Bus) unsubscribe(eventType Type, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.handlers[eventType]
	for i, h := range handlers {
		if h.id == id {
			// copy so a Publish iterating the old slice is unaffected
			updated := make([]registeredHandler, 0, len(handlers)-1)
			updated = append(updated, handlers[:i]...)
			updated = append(updated, handlers[i+1:]...)
			if len(updated) == 0 {
				delete(b.handlers, eventType)
			} else {
				b.handlers[eventType] = updated
			}
			return
		}
	}
}

// HandlerCount returns the number of handlers subscribed to eventType.
func (b *Bus) HandlerCount(eventType Type) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Publish sends an event to all subscribed handlers
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers, ok := b.handlers[event.GetType()]
	b.mu.RUnlock()

	if !ok {
		return
	}

	for _, h := range handlers {
		h.handler(event)
	}
}

// Specific event implementations

// NewBoundsChangedEvent creates the notification raised after a collider moved.
func NewBoundsChangedEvent(source interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: BoundsChanged,
		Source:    source,
	}
}

// ColliderEvent reports registration changes in a collision detector.
type ColliderEvent struct {
	BaseEvent
	ColliderID uint64
}

// NewColliderEvent creates a registration or removal event
func NewColliderEvent(eventType Type, source interface{}, colliderID uint64) *ColliderEvent {
	return &ColliderEvent{
		BaseEvent: BaseEvent{
			EventType: eventType,
			Source:    source,
		},
		ColliderID: colliderID,
	}
}

// TriggerEvent is raised when a mover's applied move reached a trigger volume.
type TriggerEvent struct {
	BaseEvent
	MoverID   uint64
	TriggerID uint64
}

// NewTriggerEvent creates a trigger event. The source is the trigger's collider.
func NewTriggerEvent(source interface{}, moverID, triggerID uint64) *TriggerEvent {
	return &TriggerEvent{
		BaseEvent: BaseEvent{
			EventType: TriggerEntered,
			Source:    source,
		},
		MoverID:   moverID,
		TriggerID: triggerID,
	}
}

// MoveBlockedEvent is raised when a whole move was cancelled or clamped to zero.
type MoveBlockedEvent struct {
	BaseEvent
	MoverID   uint64
	BlockerID uint64
}

// NewMoveBlockedEvent creates a blocked-move event. The source is the mover's collider.
func NewMoveBlockedEvent(source interface{}, moverID, blockerID uint64) *MoveBlockedEvent {
	return &MoveBlockedEvent{
		BaseEvent: BaseEvent{
			EventType: MoveBlocked,
			Source:    source,
		},
		MoverID:   moverID,
		BlockerID: blockerID,
	}
}
