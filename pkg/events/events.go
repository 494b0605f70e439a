package events

import (
	"sync"
	"time"

	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

// Type names an item manager notification.
type Type string

const (
	// ItemSwitched is emitted when a switch has been scheduled (intent).
	ItemSwitched Type = "item.switched"
	// SwitchFailed carries the failure code in Code.
	SwitchFailed Type = "item.switch_failed"
	// ItemSpawned is emitted when the current item is attached and usable.
	ItemSpawned Type = "item.spawned"
	// ItemDespawned is emitted when a representation is destroyed on switch.
	ItemDespawned Type = "item.despawned"
	ItemCollected Type = "item.collected"
	CollectFailed Type = "item.collect_failed"
	ItemDropped   Type = "item.dropped"
	BeginOverlap  Type = "pickup.begin_overlap"
	EndOverlap    Type = "pickup.end_overlap"
	// AddItemResult carries the inventory.AddResult name in Code.
	AddItemResult Type = "item.add_result"
	Used          Type = "item.used"
	CannotUse     Type = "item.cannot_use"
)

// Event is one notification. Only the fields relevant to its Type are set.
type Event struct {
	Type      Type                     `json:"type"`
	Owner     string                   `json:"owner,omitempty"`
	Index     int                      `json:"index"`
	Slot      *inventory.Slot          `json:"slot,omitempty"`
	Code      string                   `json:"code,omitempty"`
	Pickup    inventory.PickupID       `json:"pickup,omitempty"`
	Placement *inventory.PlacementData `json:"placement,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// SubscriptionID identifies a registered handler.
type SubscriptionID uint64

// Bus manages subscriptions and delivery.
type Bus interface {
	// Subscribe registers a handler and returns its id.
	Subscribe(handler func(Event)) SubscriptionID

	// Unsubscribe removes a handler.
	Unsubscribe(id SubscriptionID)

	// Publish delivers the event to every handler.
	Publish(event Event)
}

type subscription struct {
	id      SubscriptionID
	handler func(Event)
}

// SimpleBus is an in-memory bus that fans events out synchronously, on the
// publishing goroutine, in subscription order.
type SimpleBus struct {
	mu       sync.RWMutex
	handlers []subscription
	nextID   SubscriptionID
}

// NewSimpleBus creates an empty bus.
func NewSimpleBus() *SimpleBus {
	return &SimpleBus{}
}

// Subscribe registers a handler. Nil handlers are ignored and get id 0.
func (bus *SimpleBus) Subscribe(handler func(Event)) SubscriptionID {
	if handler == nil {
		return 0
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.nextID++
	bus.handlers = append(bus.handlers, subscription{id: bus.nextID, handler: handler})
	return bus.nextID
}

// Unsubscribe removes the handler with the given id.
func (bus *SimpleBus) Unsubscribe(id SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, s := range bus.handlers {
		if s.id == id {
			bus.handlers = append(bus.handlers[:i:i], bus.handlers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to every handler registered at the time of the
// call. Handlers may subscribe or unsubscribe while being called.
func (bus *SimpleBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	bus.mu.RLock()
	handlers := make([]subscription, len(bus.handlers))
	copy(handlers, bus.handlers)
	bus.mu.RUnlock()

	for _, s := range handlers {
		s.handler(event)
	}
}

// Len returns the number of handlers.
func (bus *SimpleBus) Len() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.handlers)
}

// NullBus is a bus that does nothing (for testing or when events not needed).
type NullBus struct{}

// NewNullBus creates a new null bus.
func NewNullBus() *NullBus {
	return &NullBus{}
}

// Subscribe does nothing.
func (bus *NullBus) Subscribe(handler func(Event)) SubscriptionID { return 0 }

// Unsubscribe does nothing.
func (bus *NullBus) Unsubscribe(id SubscriptionID) {}

// Publish does nothing.
func (bus *NullBus) Publish(event Event) {}
