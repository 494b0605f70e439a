package itemmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/gravitas-games/itemmanager/pkg/events"
)

// FailureCode is the reason a switch request was rejected.
type FailureCode int

const (
	FailInvalidIndex FailureCode = iota + 1
	FailSameItem
	FailBusy
	FailNoSwitchableItem
)

var (
	ErrInvalidIndex     = errors.New("itemmanager: invalid item index")
	ErrSameItem         = errors.New("itemmanager: item already selected")
	ErrBusy             = errors.New("itemmanager: switch in progress")
	ErrNoSwitchableItem = errors.New("itemmanager: no switchable item")
)

func (c FailureCode) String() string {
	switch c {
	case FailInvalidIndex:
		return "invalid_index"
	case FailSameItem:
		return "same_item"
	case FailBusy:
		return "busy"
	case FailNoSwitchableItem:
		return "no_switchable_item"
	default:
		return "unknown"
	}
}

// Err returns the sentinel error matching the code.
func (c FailureCode) Err() error {
	switch c {
	case FailInvalidIndex:
		return ErrInvalidIndex
	case FailSameItem:
		return ErrSameItem
	case FailBusy:
		return ErrBusy
	case FailNoSwitchableItem:
		return ErrNoSwitchableItem
	default:
		return nil
	}
}

func (m *Manager) failSwitch(code FailureCode, index int) error {
	m.logger.Warn("Switch rejected", "code", code, "index", index, "current", m.items.Current())
	m.publish(events.Event{Type: events.SwitchFailed, Index: index, Code: code.String()})
	return fmt.Errorf("switch to %d: %w", index, code.Err())
}

// RequestSwitch starts the transition from the current item to the slot at
// target. The current index advances immediately; the old representation is
// despawned after its despawn delay and the new one spawned after its spawn
// delay plus that despawn delay. A rejected request leaves the manager
// untouched and emits SwitchFailed.
func (m *Manager) RequestSwitch(target int) error {
	if m.closed {
		return ErrClosed
	}
	if !m.items.IsValidIndex(target) {
		return m.failSwitch(FailInvalidIndex, target)
	}
	if target == m.items.Current() && m.state != StateNone {
		return m.failSwitch(FailSameItem, target)
	}
	if m.switching {
		return m.failSwitch(FailBusy, target)
	}

	oldIndex := m.items.Current()
	var despawnDelay time.Duration
	if old, ok := m.items.Get(oldIndex); ok && old.Definition != nil {
		despawnDelay = old.Definition.TimeBeforeDespawn
	}
	next, _ := m.items.Get(target)
	spawnDelay := next.Definition.TimeBeforeSpawn + despawnDelay

	m.switching = true
	m.after(max(despawnDelay, spawnDelay), m.unlock)

	if m.items.IsValidIndex(oldIndex) {
		m.after(despawnDelay, func() { m.despawnOld(oldIndex) })
	}

	_ = m.items.SetCurrent(target)
	m.state = StateSwitching
	m.logger.Debug("Switching item", "from", oldIndex, "to", target,
		"despawn_delay", despawnDelay, "spawn_delay", spawnDelay)

	m.after(spawnDelay, m.SpawnCurrent)

	if slot, ok := m.items.Get(target); ok {
		m.publishSlot(events.ItemSwitched, target, slot)
	}
	return nil
}

// SwitchIndex selects the slot at index.
func (m *Manager) SwitchIndex(index int) error {
	return m.RequestSwitch(index)
}

// SwitchNext selects the next switchable slot after the current one.
func (m *Manager) SwitchNext() error {
	return m.switchStep(1)
}

// SwitchPrevious selects the previous switchable slot before the current one.
func (m *Manager) SwitchPrevious() error {
	return m.switchStep(-1)
}

func (m *Manager) switchStep(dir int) error {
	if m.closed {
		return ErrClosed
	}
	count := m.items.Count()
	current := m.items.Current()
	idx := current
	if !m.items.IsValidIndex(idx) {
		if dir > 0 {
			idx = -1
		} else {
			idx = count
		}
	}

	for examined := 0; examined < count; examined++ {
		idx += dir
		if m.cfg.LoopSwitching {
			idx = (idx%count + count) % count
		} else if idx < 0 || idx >= count {
			break
		}
		if idx == current && m.state != StateNone {
			continue
		}
		slot, _ := m.items.Get(idx)
		if slot.Definition != nil && slot.Definition.CanBeSwitched {
			return m.RequestSwitch(idx)
		}
	}
	return m.failSwitch(FailNoSwitchableItem, current)
}

func (m *Manager) unlock() {
	m.switching = false
}

// SpawnCurrent makes sure the current slot has a representation attached to
// its attach socket and marks the manager idle. A holstered representation is
// re-attached instead of spawned again. Presentation failures are logged and
// leave the slot without a representation.
func (m *Manager) SpawnCurrent() {
	if m.closed {
		return
	}
	index := m.items.Current()
	slot, ok := m.items.Get(index)
	if !ok || slot.Definition == nil {
		m.logger.Warn("No current item to spawn", "index", index)
		return
	}
	def := slot.Definition

	if !slot.HasRepresentation() {
		id, err := m.presenter.SpawnRepresentation(def, def.SpawnTransform)
		if err != nil {
			m.logger.Warn("Failed to spawn item", "item", slot.Item, "error", err)
			return
		}
		if err := m.items.SetRepresentation(index, id); err != nil {
			m.logger.Warn("Failed to record representation", "item", slot.Item, "error", err)
			_ = m.presenter.DestroyRepresentation(id)
			return
		}
		slot.Representation = id
	}

	if err := m.presenter.AttachRepresentation(slot.Representation, def.AttachSocket); err != nil {
		m.logger.Warn("Failed to attach item", "item", slot.Item, "socket", def.AttachSocket.Name, "error", err)
	}

	m.state = StateIdle
	m.logger.Debug("Item spawned", "item", slot.Item, "index", index)
	m.publishSlot(events.ItemSpawned, index, slot)
}

// despawnOld puts away the representation of the slot that was current when
// the switch was requested.
func (m *Manager) despawnOld(index int) {
	slot, ok := m.items.Get(index)
	if !ok {
		m.logger.Warn("Despawn target vanished", "index", index)
		return
	}
	if !slot.HasRepresentation() {
		m.logger.Warn("Nothing to despawn", "item", slot.Item, "index", index)
		return
	}
	def := slot.Definition

	if def.DespawnWhenSwitched {
		if err := m.presenter.DestroyRepresentation(slot.Representation); err != nil {
			m.logger.Warn("Failed to destroy item", "item", slot.Item, "error", err)
		}
		_ = m.items.SetRepresentation(index, "")
		slot.Representation = ""
		m.publishSlot(events.ItemDespawned, index, slot)
		return
	}

	var err error
	if def.DetachSocket.Name == "" {
		err = m.presenter.DetachRepresentation(slot.Representation, def.DetachSocket.Rule)
	} else {
		err = m.presenter.AttachRepresentation(slot.Representation, def.DetachSocket)
	}
	if err != nil {
		m.logger.Warn("Failed to holster item", "item", slot.Item, "socket", def.DetachSocket.Name, "error", err)
	}
}

