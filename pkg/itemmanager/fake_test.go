package itemmanager

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gravitas-games/itemmanager/pkg/events"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
	"github.com/gravitas-games/itemmanager/pkg/timer"
)

var errWorld = errors.New("world refused")

type placedPickup struct {
	id   inventory.PickupID
	data inventory.PlacementData
	at   inventory.Transform
}

// fakeWorld records every presenter call.
type fakeWorld struct {
	seq              int
	spawned          int
	live             map[inventory.RepresentationID]inventory.ItemID
	attached         map[inventory.RepresentationID]inventory.Socket
	detached         []inventory.RepresentationID
	destroyed        []inventory.RepresentationID
	placed           []placedPickup
	destroyedPickups []inventory.PickupID
	sockets          map[string]inventory.Vector
	owner            inventory.Vector
	failSpawn        bool
	failPlace        bool
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		live:     make(map[inventory.RepresentationID]inventory.ItemID),
		attached: make(map[inventory.RepresentationID]inventory.Socket),
		sockets:  make(map[string]inventory.Vector),
	}
}

func (w *fakeWorld) SpawnRepresentation(def *inventory.Definition, _ inventory.Transform) (inventory.RepresentationID, error) {
	if w.failSpawn {
		return "", errWorld
	}
	w.seq++
	w.spawned++
	id := inventory.RepresentationID(fmt.Sprintf("rep-%d", w.seq))
	w.live[id] = def.ID
	return id, nil
}

func (w *fakeWorld) AttachRepresentation(id inventory.RepresentationID, socket inventory.Socket) error {
	if _, ok := w.live[id]; !ok {
		return errWorld
	}
	w.attached[id] = socket
	return nil
}

func (w *fakeWorld) DetachRepresentation(id inventory.RepresentationID, _ inventory.AttachmentRule) error {
	if _, ok := w.live[id]; !ok {
		return errWorld
	}
	delete(w.attached, id)
	w.detached = append(w.detached, id)
	return nil
}

func (w *fakeWorld) DestroyRepresentation(id inventory.RepresentationID) error {
	if _, ok := w.live[id]; !ok {
		return errWorld
	}
	delete(w.live, id)
	delete(w.attached, id)
	w.destroyed = append(w.destroyed, id)
	return nil
}

func (w *fakeWorld) PlacePickup(data inventory.PlacementData, at inventory.Transform) (inventory.PickupID, error) {
	if w.failPlace {
		return "", errWorld
	}
	w.seq++
	id := inventory.PickupID(fmt.Sprintf("pickup-%d", w.seq))
	w.placed = append(w.placed, placedPickup{id: id, data: data, at: at})
	return id, nil
}

func (w *fakeWorld) DestroyPickup(id inventory.PickupID) error {
	w.destroyedPickups = append(w.destroyedPickups, id)
	return nil
}

func (w *fakeWorld) SocketLocation(socket string) (inventory.Vector, bool) {
	v, ok := w.sockets[socket]
	return v, ok
}

func (w *fakeWorld) OwnerLocation() inventory.Vector {
	return w.owner
}

type harness struct {
	t      *testing.T
	m      *Manager
	clock  *timer.Queue
	world  *fakeWorld
	reg    *inventory.Registry
	events []events.Event
}

func newHarness(t *testing.T, cfg Config, defs ...*inventory.Definition) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: timer.NewQueue(),
		world: newFakeWorld(),
		reg:   inventory.NewRegistry(defs...),
	}
	bus := events.NewSimpleBus()
	bus.Subscribe(func(e events.Event) { h.events = append(h.events, e) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.m = New(cfg, h.reg, h.world, h.clock, bus, logger)
	return h
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
}

func (h *harness) types() []events.Type {
	out := make([]events.Type, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *harness) last(t events.Type) (events.Event, bool) {
	for i := len(h.events) - 1; i >= 0; i-- {
		if h.events[i].Type == t {
			return h.events[i], true
		}
	}
	return events.Event{}, false
}

func (h *harness) reset() {
	h.events = nil
}

// add adds items and fails the test on any rejection.
func (h *harness) add(ids ...string) {
	h.t.Helper()
	for _, id := range ids {
		if res := h.m.AddItem(inventory.ItemID(id)); res != inventory.AddOK {
			h.t.Fatalf("add %s: %v", id, res)
		}
	}
}

// equip switches to index and runs the clock until the switch settled.
func (h *harness) equip(index int) {
	h.t.Helper()
	if err := h.m.RequestSwitch(index); err != nil {
		h.t.Fatalf("switch to %d: %v", index, err)
	}
	h.advance(time.Minute)
	if h.m.State() != StateIdle {
		h.t.Fatalf("state after switch to %d = %v, want idle", index, h.m.State())
	}
}

func item(id string, opts ...func(*inventory.Definition)) *inventory.Definition {
	def := &inventory.Definition{
		ID:             inventory.ItemID(id),
		FriendlyName:   id,
		AttachSocket:   inventory.Socket{Name: "hand_r", Rule: inventory.SnapToTargetNotIncludingScale},
		SpawnTransform: inventory.IdentityTransform(),
		Dropable:       true,
		Capabilities: inventory.Capabilities{
			CanBeCollected:      true,
			CanBeSwitched:       true,
			CanBeUsed:           true,
			DespawnWhenSwitched: true,
		},
	}
	for _, opt := range opts {
		opt(def)
	}
	return def
}

func spawnAfter(d time.Duration) func(*inventory.Definition) {
	return func(def *inventory.Definition) { def.TimeBeforeSpawn = d }
}

func despawnAfter(d time.Duration) func(*inventory.Definition) {
	return func(def *inventory.Definition) { def.TimeBeforeDespawn = d }
}

func notSwitchable(def *inventory.Definition) { def.CanBeSwitched = false }
func notDropable(def *inventory.Definition)   { def.Dropable = false }
func notUsable(def *inventory.Definition)     { def.CanBeUsed = false }
func notCollectable(def *inventory.Definition) {
	def.CanBeCollected = false
}
func equipOnPickup(def *inventory.Definition) { def.EquipWhenPickedUp = true }

func holsterOn(socket string) func(*inventory.Definition) {
	return func(def *inventory.Definition) {
		def.DespawnWhenSwitched = false
		def.DetachSocket = inventory.Socket{Name: socket, Rule: inventory.KeepRelativeTransform}
	}
}

func bareConfig() Config {
	return Config{Owner: "player-1", LoopSwitching: true, AllowDuplicates: true}
}
