package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of an engine event. Events double as the
// move/effect log and as the post-transition animation requests consumed by
// a presentation scheduler.
type EventType string

const (
	EventGameCreated  EventType = "GAME_CREATED"
	EventPhaseChanged EventType = "PHASE_CHANGED"
	EventTurnChanged  EventType = "TURN_CHANGED"
	EventGameOver     EventType = "GAME_OVER"

	EventCardPlayed    EventType = "CARD_PLAYED"
	EventCardDrawn     EventType = "CARD_DRAWN"
	EventCardDiscarded EventType = "CARD_DISCARDED"
	EventCardDeleted   EventType = "CARD_DELETED"
	EventCardFlipped   EventType = "CARD_FLIPPED"
	EventCardShifted   EventType = "CARD_SHIFTED"
	EventCardReturned  EventType = "CARD_RETURNED"
	EventCardRevealed  EventType = "CARD_REVEALED"
	EventCardCovered   EventType = "CARD_COVERED"
	EventCardUncovered EventType = "CARD_UNCOVERED"

	EventDeckReshuffled EventType = "DECK_RESHUFFLED"
	EventHandRefreshed  EventType = "HAND_REFRESHED"

	EventLaneCompiled        EventType = "LANE_COMPILED"
	EventControlGained       EventType = "CONTROL_GAINED"
	EventProtocolsRearranged EventType = "PROTOCOLS_REARRANGED"

	EventActionRequired EventType = "ACTION_REQUIRED"
	EventActionResolved EventType = "ACTION_RESOLVED"
	EventActionSkipped  EventType = "ACTION_SKIPPED"
	EventEffectResolved EventType = "EFFECT_RESOLVED"
)

// Event records one observable engine transition.
type Event struct {
	Type      EventType
	Seat      Seat
	CardID    string
	SourceID  string
	Lane      int
	Amount    int
	Data      string
	Timestamp time.Time
}

// NewEvent creates an event with the timestamp populated.
func NewEvent(eventType EventType, seat Seat, cardID, sourceID string) Event {
	return Event{
		Type:      eventType,
		Seat:      seat,
		CardID:    cardID,
		SourceID:  sourceID,
		Lane:      -1,
		Timestamp: time.Now(),
	}
}

// Listener is a callback reacting to published events.
type Listener func(Event)

// TypedListener reacts to a single event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus is a synchronous publish/subscribe hub with optional type
// filtering. The engine publishes after each completed transition; the
// serving layer subscribes to stream events to clients.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners[handle] = listener
	return handle
}

// SubscribeTyped registers a listener for a single event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the handle, typed or not.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to every registered listener synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}
	if typed, ok := bus.typedListeners[event.Type]; ok {
		for _, listener := range typed {
			listener.Callback(event)
		}
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}
