// Package itemmanager implements the equipment controller of a player: which
// inventory slot is active, the timed despawn/spawn sequence that runs when
// the player switches, and the world pickups the player can collect and drop.
//
// A Manager is single-threaded. Every method, and every callback it schedules
// on its timer.Scheduler, must run on the goroutine that owns the game loop.
package itemmanager

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gravitas-games/itemmanager/pkg/events"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
	"github.com/gravitas-games/itemmanager/pkg/timer"
)

var (
	ErrClosed           = errors.New("itemmanager: manager closed")
	ErrNoCurrentItem    = errors.New("itemmanager: no current item")
	ErrNotIdle          = errors.New("itemmanager: current item is not idle")
	ErrNotUsable        = errors.New("itemmanager: item cannot be used")
	ErrNotDropable      = errors.New("itemmanager: item cannot be dropped")
	ErrNoRepresentation = errors.New("itemmanager: item has no representation")
	ErrNoPickup         = errors.New("itemmanager: no pickup in range")
	ErrUnknownPickup    = errors.New("itemmanager: unknown pickup")
)

// State is the switch state of a manager.
type State int

const (
	// StateNone means no item has been activated yet.
	StateNone State = iota
	// StateSwitching means a transition is in flight.
	StateSwitching
	// StateIdle means the current item is spawned and usable.
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateSwitching:
		return "switching"
	case StateIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config holds the per-player policy of a manager.
type Config struct {
	Owner                 string
	LoopSwitching         bool
	AddEmptyItemByDefault bool
	AllowDuplicates       bool
	ItemLimit             int
}

// DefaultConfig returns the stock policy: looping switch, an empty item,
// duplicates allowed and no item limit.
func DefaultConfig(owner string) Config {
	return Config{
		Owner:                 owner,
		LoopSwitching:         true,
		AddEmptyItemByDefault: true,
		AllowDuplicates:       true,
	}
}

// PlacedPickup is a pickup known to the manager together with its
// placement configuration.
type PlacedPickup struct {
	ID   inventory.PickupID      `json:"id"`
	Data inventory.PlacementData `json:"data"`
}

// Manager is the switch controller and pickup registry of one player.
type Manager struct {
	cfg       Config
	registry  *inventory.Registry
	items     *inventory.List
	pickups   *PickupRegistry
	presenter Presenter
	scheduler timer.Scheduler
	bus       events.Bus
	logger    *slog.Logger

	state     State
	switching bool
	timers    map[timer.Handle]struct{}
	started   bool
	closed    bool
}

// New creates a manager. A nil bus or logger is replaced by a no-op one.
func New(
	cfg Config,
	registry *inventory.Registry,
	presenter Presenter,
	scheduler timer.Scheduler,
	bus events.Bus,
	logger *slog.Logger,
) *Manager {
	if bus == nil {
		bus = events.NewNullBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		registry: registry,
		items: inventory.NewList(registry,
			inventory.WithItemLimit(cfg.ItemLimit),
			inventory.WithDuplicates(cfg.AllowDuplicates),
		),
		pickups:   newPickupRegistry(),
		presenter: presenter,
		scheduler: scheduler,
		bus:       bus,
		logger:    logger.With("owner", cfg.Owner),
		timers:    make(map[timer.Handle]struct{}),
	}
}

// Start performs the begin-play work: it equips the empty item when the
// configuration asks for one and registers the pickups already placed in the
// world. Start may only be called once.
func (m *Manager) Start(pickups ...PlacedPickup) error {
	if m.closed {
		return ErrClosed
	}
	if m.started {
		return errors.New("itemmanager: already started")
	}
	m.started = true

	if m.cfg.AddEmptyItemByDefault {
		if err := m.ensureEmptyItem(); err != nil {
			return err
		}
		if res := m.AddItem(inventory.EmptyItemID); res == inventory.AddOK {
			_ = m.items.SetCurrent(m.items.Count() - 1)
			m.SpawnCurrent()
		} else {
			m.logger.Warn("Failed to add empty item", "result", res)
		}
	}

	for _, p := range pickups {
		if err := m.RegisterPickup(p.ID, p.Data); err != nil {
			m.logger.Warn("Skipping world pickup", "pickup", p.ID, "error", err)
		}
	}

	m.logger.Info("Item manager started", "items", m.items.Count(), "pickups", m.pickups.Len())
	return nil
}

func (m *Manager) ensureEmptyItem() error {
	if _, ok := m.registry.Lookup(inventory.EmptyItemID); ok {
		return nil
	}
	if err := m.registry.Register(inventory.EmptyItem()); err != nil {
		// Another manager may have registered it concurrently.
		if _, ok := m.registry.Lookup(inventory.EmptyItemID); !ok {
			return fmt.Errorf("register empty item: %w", err)
		}
	}
	return nil
}

// Close tears the manager down, cancelling every pending spawn, despawn and
// unlock callback. Further calls are rejected with ErrClosed.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for h := range m.timers {
		m.scheduler.Cancel(h)
		delete(m.timers, h)
	}
	m.logger.Info("Item manager closed")
}

// after runs fn once delay has elapsed, or right away when delay <= 0.
func (m *Manager) after(delay time.Duration, fn func()) {
	if delay <= 0 {
		fn()
		return
	}
	var h timer.Handle
	h = m.scheduler.Schedule(delay, func() {
		delete(m.timers, h)
		if m.closed {
			return
		}
		fn()
	})
	m.timers[h] = struct{}{}
}

func (m *Manager) publish(e events.Event) {
	e.Owner = m.cfg.Owner
	m.bus.Publish(e)
}

func (m *Manager) publishSlot(t events.Type, index int, slot inventory.Slot) {
	m.publish(events.Event{Type: t, Index: index, Slot: &slot})
}

// AddItem appends an item to the inventory and reports the result through
// the AddItemResult event.
func (m *Manager) AddItem(id inventory.ItemID) inventory.AddResult {
	if m.closed {
		return inventory.AddInvalidItem
	}
	res := m.items.AddItem(id)
	index := inventory.NoIndex
	if res == inventory.AddOK {
		index = m.items.Count() - 1
		m.logger.Debug("Item added", "item", id, "index", index)
	} else {
		m.logger.Warn("Failed to add item", "item", id, "result", res)
	}
	m.publish(events.Event{Type: events.AddItemResult, Index: index, Code: res.String()})
	return res
}

// RemoveItem deletes the slot at index, destroying its representation. When
// the current slot is removed the first slot becomes current and is spawned,
// or the manager returns to StateNone when the inventory is empty.
func (m *Manager) RemoveItem(index int) error {
	if m.closed {
		return ErrClosed
	}
	if m.switching {
		return ErrBusy
	}
	slot, ok := m.items.Get(index)
	if !ok {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	wasCurrent := index == m.items.Current()
	if slot.HasRepresentation() {
		if err := m.presenter.DestroyRepresentation(slot.Representation); err != nil {
			m.logger.Warn("Failed to destroy item", "item", slot.Item, "error", err)
		}
	}
	if _, err := m.items.RemoveAt(index); err != nil {
		return err
	}
	m.logger.Info("Item removed", "item", slot.Item, "index", index)
	if wasCurrent || m.items.Count() == 0 {
		m.resolveCurrent()
	}
	return nil
}

// resolveCurrent re-establishes a current item after the current slot left
// the inventory. The manager stays in StateNone when the spawn fails, so the
// slot can be selected again.
func (m *Manager) resolveCurrent() {
	if m.items.Count() == 0 {
		_ = m.items.SetCurrent(inventory.NoIndex)
		m.state = StateNone
		return
	}
	_ = m.items.SetCurrent(0)
	// Idle only once the new current item is spawned.
	m.state = StateNone
	m.SpawnCurrent()
}

// State returns the switch state.
func (m *Manager) State() State {
	return m.state
}

// IsSwitching reports whether a switch request would currently be rejected
// as busy.
func (m *Manager) IsSwitching() bool {
	return m.switching
}

// CurrentIndex returns the current slot index or inventory.NoIndex. During a
// switch it already names the target slot.
func (m *Manager) CurrentIndex() int {
	return m.items.Current()
}

// CurrentItem returns a copy of the current slot.
func (m *Manager) CurrentItem() (inventory.Slot, bool) {
	return m.items.CurrentSlot()
}

// Items returns a copy of every slot in order.
func (m *Manager) Items() []inventory.Slot {
	return m.items.Slots()
}

// Count returns the number of slots.
func (m *Manager) Count() int {
	return m.items.Count()
}

// Config returns the manager's policy.
func (m *Manager) Config() Config {
	return m.cfg
}

// Owner returns the owner id events are tagged with.
func (m *Manager) Owner() string {
	return m.cfg.Owner
}

// Bus returns the event bus observers subscribe to.
func (m *Manager) Bus() events.Bus {
	return m.bus
}

// PendingTimers returns the number of scheduled callbacks not yet fired.
func (m *Manager) PendingTimers() int {
	return len(m.timers)
}
