package itemmanager

import (
	"fmt"

	"github.com/gravitas-games/itemmanager/pkg/events"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

// UseItem triggers the current item. It emits Used or CannotUse depending on
// the item's capability.
func (m *Manager) UseItem() error {
	if m.closed {
		return ErrClosed
	}
	index := m.items.Current()
	slot, ok := m.items.Get(index)
	if !ok || !slot.HasRepresentation() {
		m.logger.Warn("Current item is invalid", "index", index)
		return ErrNoCurrentItem
	}
	if m.state != StateIdle {
		m.logger.Warn("Cannot use item while switching", "item", slot.Item, "state", m.state)
		return ErrNotIdle
	}
	if !slot.Definition.CanBeUsed {
		m.publishSlot(events.CannotUse, index, slot)
		return ErrNotUsable
	}
	m.publishSlot(events.Used, index, slot)
	return nil
}

// DropItem removes the current item from the inventory and places it back in
// the world as a pickup next to its attach socket. The first remaining slot
// becomes current. It returns the id of the new pickup, empty when the world
// refused to place it.
func (m *Manager) DropItem() (inventory.PickupID, error) {
	if m.closed {
		return "", ErrClosed
	}
	if m.switching {
		return "", ErrBusy
	}
	index := m.items.Current()
	slot, ok := m.items.Get(index)
	if !ok {
		return "", ErrNoCurrentItem
	}
	if !slot.HasRepresentation() {
		return "", ErrNoRepresentation
	}
	def := slot.Definition
	if !def.Dropable {
		m.logger.Info("Item is not dropable", "item", slot.Item)
		return "", fmt.Errorf("drop %s: %w", slot.Item, ErrNotDropable)
	}

	if err := m.presenter.DestroyRepresentation(slot.Representation); err != nil {
		m.logger.Warn("Failed to destroy item", "item", slot.Item, "error", err)
	}

	location, ok := m.presenter.SocketLocation(def.AttachSocket.Name)
	if !ok {
		location = m.presenter.OwnerLocation()
	}

	removed, err := m.items.RemoveAt(index)
	if err != nil {
		return "", err
	}
	removed.Representation = ""

	placement := removed.Placement
	pickup, err := m.presenter.PlacePickup(placement, inventory.At(location))
	if err != nil {
		m.logger.Warn("Failed to place pickup", "item", removed.Item, "error", err)
		pickup = ""
	} else if err := m.pickups.add(pickup, placement); err != nil {
		m.logger.Warn("Failed to register dropped pickup", "pickup", pickup, "error", err)
	}

	m.logger.Info("Item dropped", "item", removed.Item, "pickup", pickup)
	m.publish(events.Event{
		Type:      events.ItemDropped,
		Index:     index,
		Slot:      &removed,
		Pickup:    pickup,
		Placement: &placement,
	})
	m.resolveCurrent()
	return pickup, nil
}
