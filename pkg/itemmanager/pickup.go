package itemmanager

import (
	"errors"
	"fmt"

	"github.com/gravitas-games/itemmanager/pkg/events"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

// PickupRegistry holds the world pickups a player can see and the one pickup
// the player currently overlaps.
type PickupRegistry struct {
	order   []inventory.PickupID
	pickups map[inventory.PickupID]inventory.PlacementData
	tracked inventory.PickupID
}

func newPickupRegistry() *PickupRegistry {
	return &PickupRegistry{
		pickups: make(map[inventory.PickupID]inventory.PlacementData),
	}
}

func (r *PickupRegistry) add(id inventory.PickupID, data inventory.PlacementData) error {
	if id == "" {
		return errors.New("empty pickup id")
	}
	if _, exists := r.pickups[id]; exists {
		return fmt.Errorf("pickup %s already registered", id)
	}
	r.pickups[id] = data
	r.order = append(r.order, id)
	return nil
}

func (r *PickupRegistry) remove(id inventory.PickupID) bool {
	if _, ok := r.pickups[id]; !ok {
		return false
	}
	delete(r.pickups, id)
	for i, p := range r.order {
		if p == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.tracked == id {
		r.tracked = ""
	}
	return true
}

// Get returns the placement of a registered pickup.
func (r *PickupRegistry) Get(id inventory.PickupID) (inventory.PlacementData, bool) {
	data, ok := r.pickups[id]
	return data, ok
}

// Tracked returns the overlapped pickup, if any.
func (r *PickupRegistry) Tracked() (inventory.PickupID, bool) {
	return r.tracked, r.tracked != ""
}

// Len returns the number of registered pickups.
func (r *PickupRegistry) Len() int {
	return len(r.order)
}

// All returns every registered pickup in registration order.
func (r *PickupRegistry) All() []PlacedPickup {
	out := make([]PlacedPickup, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, PlacedPickup{ID: id, Data: r.pickups[id]})
	}
	return out
}

// RegisterPickup makes a world pickup known to the manager. The placement is
// normalized before it is stored.
func (m *Manager) RegisterPickup(id inventory.PickupID, data inventory.PlacementData) error {
	if m.closed {
		return ErrClosed
	}
	if data.Item == "" {
		return fmt.Errorf("pickup %s: %w", id, inventory.ErrInvalidItem)
	}
	return m.pickups.add(id, data.Normalize())
}

// RemovePickup forgets a pickup that left the world without being collected.
// Removing the overlapped pickup ends the overlap.
func (m *Manager) RemovePickup(id inventory.PickupID) bool {
	tracked, _ := m.pickups.Tracked()
	if !m.pickups.remove(id) {
		return false
	}
	if tracked == id {
		m.publish(events.Event{Type: events.EndOverlap, Index: inventory.NoIndex, Pickup: id})
	}
	return true
}

// Pickups returns the registered pickups.
func (m *Manager) Pickups() []PlacedPickup {
	return m.pickups.All()
}

// Pickup returns the placement of one registered pickup.
func (m *Manager) Pickup(id inventory.PickupID) (inventory.PlacementData, bool) {
	return m.pickups.Get(id)
}

// TrackedPickup returns the pickup the owner currently overlaps.
func (m *Manager) TrackedPickup() (inventory.PickupID, bool) {
	return m.pickups.Tracked()
}

// OnOverlapBegin starts tracking a pickup unless another one is already
// tracked or the pickup's item cannot be collected. It reports whether the
// pickup is now tracked.
func (m *Manager) OnOverlapBegin(id inventory.PickupID) bool {
	if m.closed {
		return false
	}
	data, ok := m.pickups.Get(id)
	if !ok {
		m.logger.Debug("Overlap with unknown pickup", "pickup", id)
		return false
	}
	if _, busy := m.pickups.Tracked(); busy {
		return false
	}
	def, ok := m.registry.Lookup(data.Item)
	if !ok || !def.CanBeCollected {
		m.logger.Debug("Pickup is not collectable", "pickup", id, "item", data.Item)
		return false
	}
	m.pickups.tracked = id
	m.publish(events.Event{Type: events.BeginOverlap, Index: inventory.NoIndex, Pickup: id, Placement: &data})
	return true
}

// OnOverlapEnd stops tracking a pickup if it is the tracked one.
func (m *Manager) OnOverlapEnd(id inventory.PickupID) bool {
	if m.closed {
		return false
	}
	if tracked, ok := m.pickups.Tracked(); !ok || tracked != id {
		return false
	}
	m.pickups.tracked = ""
	m.publish(events.Event{Type: events.EndOverlap, Index: inventory.NoIndex, Pickup: id})
	return true
}

// Collect moves the tracked pickup into the inventory. The pickup stays in
// the world when the inventory rejects the item.
func (m *Manager) Collect() error {
	if m.closed {
		return ErrClosed
	}
	id, ok := m.pickups.Tracked()
	if !ok {
		m.logger.Warn("Nothing to collect")
		m.publish(events.Event{Type: events.CollectFailed, Index: inventory.NoIndex})
		return ErrNoPickup
	}
	data, _ := m.pickups.Get(id)

	res := m.AddItem(data.Item)
	if res != inventory.AddOK {
		m.publish(events.Event{Type: events.CollectFailed, Index: inventory.NoIndex, Pickup: id, Code: res.String()})
		return fmt.Errorf("collect %s: %w", id, res.Err())
	}

	index := m.items.Count() - 1
	_ = m.items.SetPlacement(index, data)
	m.pickups.remove(id)
	if err := m.presenter.DestroyPickup(id); err != nil {
		m.logger.Warn("Failed to destroy pickup", "pickup", id, "error", err)
	}

	slot, _ := m.items.Get(index)
	m.logger.Info("Item collected", "item", slot.Item, "pickup", id, "index", index)
	m.publish(events.Event{Type: events.ItemCollected, Index: index, Slot: &slot, Pickup: id, Placement: &data})

	if slot.Definition.EquipWhenPickedUp {
		if err := m.RequestSwitch(index); err != nil {
			m.logger.Debug("Equip on pickup skipped", "item", slot.Item, "error", err)
		}
	}
	return nil
}
