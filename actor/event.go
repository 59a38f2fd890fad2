package actor

import "slices"

const (
	OBJECT_MOVED EventType = iota
	OBJECT_PUSHED
	OBJECT_KEYFRAMED
	SUBOBJECT_ADDED
	SUBOBJECT_REMOVED
)

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// MovedEvent is sent after a node's pose changed.
type MovedEvent struct {
	Node *Node
}

func (e MovedEvent) Type() EventType { return OBJECT_MOVED }

// PushedEvent is sent after a force was applied to a node.
type PushedEvent struct {
	Node *Node
}

func (e PushedEvent) Type() EventType { return OBJECT_PUSHED }

// KeyframedEvent is sent after a node captured its pose at Time.
type KeyframedEvent struct {
	Node *Node
	Time float64
}

func (e KeyframedEvent) Type() EventType { return OBJECT_KEYFRAMED }

type SubobjectAddedEvent struct {
	Group *Node
	Child *Node
}

func (e SubobjectAddedEvent) Type() EventType { return SUBOBJECT_ADDED }

type SubobjectRemovedEvent struct {
	Group *Node
	Child *Node
}

func (e SubobjectRemovedEvent) Type() EventType { return SUBOBJECT_REMOVED }

// EventListener - callback for events
type EventListener func(event Event)

// Subscription identifies a listener so it can be removed later.
type Subscription struct {
	eventType EventType
	id        int
}

type listenerEntry struct {
	id       int
	listener EventListener
}

// events dispatches synchronously: listeners run inside the call that
// produced the event and their completion is not awaited by the simulation.
type events struct {
	listeners map[EventType][]listenerEntry
	nextID    int
}

func (e *events) subscribe(eventType EventType, listener EventListener) Subscription {
	if e.listeners == nil {
		e.listeners = make(map[EventType][]listenerEntry)
	}
	e.nextID++
	e.listeners[eventType] = append(e.listeners[eventType], listenerEntry{id: e.nextID, listener: listener})
	return Subscription{eventType: eventType, id: e.nextID}
}

func (e *events) unsubscribe(sub Subscription) {
	entries := e.listeners[sub.eventType]
	for i, entry := range entries {
		if entry.id == sub.id {
			e.listeners[sub.eventType] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// emit walks a copy of the listeners so that a listener may unsubscribe
// itself, or another, while the event is dispatched.
func (e *events) emit(event Event) {
	for _, entry := range slices.Clone(e.listeners[event.Type()]) {
		entry.listener(event)
	}
}
