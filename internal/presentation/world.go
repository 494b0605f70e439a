// Package presentation is the headless engine side of the item manager. It
// keeps the actors and pickups every player sees, the rig of each player and
// answers trigger-box overlap queries.
package presentation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

var (
	ErrUnknownActor  = errors.New("presentation: unknown actor")
	ErrUnknownPickup = errors.New("presentation: unknown pickup")
	ErrSpawnFailed   = errors.New("presentation: spawn failed")
	ErrPlaceFailed   = errors.New("presentation: pickup placement failed")
)

// Actor is the spawned representation of an equipped or holstered item.
type Actor struct {
	ID       inventory.RepresentationID `json:"id"`
	Item     inventory.ItemID           `json:"item"`
	Owner    string                     `json:"owner"`
	Socket   string                     `json:"socket,omitempty"`
	Rule     inventory.AttachmentRule   `json:"rule"`
	Attached bool                       `json:"attached"`
	Local    inventory.Transform        `json:"local"`
}

// Pickup is a collectable lying in the world.
type Pickup struct {
	ID        inventory.PickupID      `json:"id"`
	Data      inventory.PlacementData `json:"data"`
	Transform inventory.Transform     `json:"transform"`
}

// Failures lets tests make the world refuse requests.
type Failures struct {
	Spawn bool
	Place bool
}

// World is shared by every player of a session. It is safe for concurrent
// use.
type World struct {
	mu       sync.RWMutex
	actors   map[inventory.RepresentationID]*Actor
	pickups  map[inventory.PickupID]*Pickup
	rigs     map[string]*Rig
	sockets  map[string]inventory.Vector
	failures Failures
}

// NewWorld creates an empty world. Every rig created later gets the given
// socket offsets.
func NewWorld(sockets map[string]inventory.Vector) *World {
	defaults := make(map[string]inventory.Vector, len(sockets))
	for name, offset := range sockets {
		defaults[name] = offset
	}
	return &World{
		actors:  make(map[inventory.RepresentationID]*Actor),
		pickups: make(map[inventory.PickupID]*Pickup),
		rigs:    make(map[string]*Rig),
		sockets: defaults,
	}
}

// SetFailures replaces the injected failures.
func (w *World) SetFailures(f Failures) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failures = f
}

// AddPickup places a pickup. An empty id gets a generated one.
func (w *World) AddPickup(id inventory.PickupID, data inventory.PlacementData, at inventory.Transform) (inventory.PickupID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failures.Place {
		return "", ErrPlaceFailed
	}
	if id == "" {
		id = inventory.PickupID(uuid.NewString())
	}
	if _, exists := w.pickups[id]; exists {
		return "", fmt.Errorf("presentation: pickup %s already placed", id)
	}
	w.pickups[id] = &Pickup{ID: id, Data: data, Transform: at}
	return id, nil
}

// RemovePickup deletes a pickup from the world.
func (w *World) RemovePickup(id inventory.PickupID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.pickups[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPickup, id)
	}
	delete(w.pickups, id)
	return nil
}

// Pickup returns a copy of a placed pickup.
func (w *World) Pickup(id inventory.PickupID) (Pickup, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p, ok := w.pickups[id]
	if !ok {
		return Pickup{}, false
	}
	return *p, true
}

// Pickups returns every placed pickup ordered by id.
func (w *World) Pickups() []Pickup {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Pickup, 0, len(w.pickups))
	for _, p := range w.pickups {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Overlapping returns the pickups whose trigger box contains point, ordered
// by id.
func (w *World) Overlapping(point inventory.Vector) []inventory.PickupID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []inventory.PickupID
	for id, p := range w.pickups {
		if p.Data.Contains(p.Transform.Location, point) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Actor returns a copy of a spawned actor.
func (w *World) Actor(id inventory.RepresentationID) (Actor, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	a, ok := w.actors[id]
	if !ok {
		return Actor{}, false
	}
	return *a, true
}

// Actors returns the actors of one owner ordered by id.
func (w *World) Actors(owner string) []Actor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Actor
	for _, a := range w.actors {
		if a.Owner == owner {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rig returns the rig of owner, creating it at the origin with the default
// sockets on first use.
func (w *World) Rig(owner string) *Rig {
	w.mu.Lock()
	defer w.mu.Unlock()
	if r, ok := w.rigs[owner]; ok {
		return r
	}
	sockets := make(map[string]inventory.Vector, len(w.sockets))
	for name, offset := range w.sockets {
		sockets[name] = offset
	}
	r := &Rig{world: w, owner: owner, sockets: sockets}
	w.rigs[owner] = r
	return r
}

// RemoveRig destroys the actors of owner and forgets its rig.
func (w *World) RemoveRig(owner string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, a := range w.actors {
		if a.Owner == owner {
			delete(w.actors, id)
		}
	}
	delete(w.rigs, owner)
}
