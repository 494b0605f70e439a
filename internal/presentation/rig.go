package presentation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gravitas-games/itemmanager/pkg/inventory"
	"github.com/gravitas-games/itemmanager/pkg/itemmanager"
)

// Rig is the body of one player in the world. It is the presenter of that
// player's item manager.
type Rig struct {
	world    *World
	owner    string
	location inventory.Vector
	sockets  map[string]inventory.Vector
}

var _ itemmanager.Presenter = (*Rig)(nil)

// Owner returns the player the rig belongs to.
func (r *Rig) Owner() string {
	return r.owner
}

// MoveTo sets the owner location.
func (r *Rig) MoveTo(location inventory.Vector) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	r.location = location
}

// SetSocket adds or moves a socket.
func (r *Rig) SetSocket(name string, offset inventory.Vector) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	r.sockets[name] = offset
}

// SpawnRepresentation implements itemmanager.Presenter.
func (r *Rig) SpawnRepresentation(def *inventory.Definition, at inventory.Transform) (inventory.RepresentationID, error) {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	if r.world.failures.Spawn {
		return "", fmt.Errorf("%w: %s", ErrSpawnFailed, def.ID)
	}
	id := inventory.RepresentationID(uuid.NewString())
	r.world.actors[id] = &Actor{ID: id, Item: def.ID, Owner: r.owner, Local: at}
	return id, nil
}

// AttachRepresentation implements itemmanager.Presenter.
func (r *Rig) AttachRepresentation(id inventory.RepresentationID, socket inventory.Socket) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	a, err := r.actor(id)
	if err != nil {
		return err
	}
	a.Socket = socket.Name
	a.Rule = socket.Rule
	a.Attached = true
	return nil
}

// DetachRepresentation implements itemmanager.Presenter.
func (r *Rig) DetachRepresentation(id inventory.RepresentationID, rule inventory.AttachmentRule) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	a, err := r.actor(id)
	if err != nil {
		return err
	}
	a.Socket = ""
	a.Rule = rule
	a.Attached = false
	return nil
}

// DestroyRepresentation implements itemmanager.Presenter.
func (r *Rig) DestroyRepresentation(id inventory.RepresentationID) error {
	r.world.mu.Lock()
	defer r.world.mu.Unlock()
	if _, err := r.actor(id); err != nil {
		return err
	}
	delete(r.world.actors, id)
	return nil
}

// PlacePickup implements itemmanager.Presenter.
func (r *Rig) PlacePickup(data inventory.PlacementData, at inventory.Transform) (inventory.PickupID, error) {
	return r.world.AddPickup("", data, at)
}

// DestroyPickup implements itemmanager.Presenter.
func (r *Rig) DestroyPickup(id inventory.PickupID) error {
	return r.world.RemovePickup(id)
}

// SocketLocation implements itemmanager.Presenter.
func (r *Rig) SocketLocation(socket string) (inventory.Vector, bool) {
	r.world.mu.RLock()
	defer r.world.mu.RUnlock()
	offset, ok := r.sockets[socket]
	if !ok {
		return inventory.Vector{}, false
	}
	return r.location.Add(offset), true
}

// OwnerLocation implements itemmanager.Presenter.
func (r *Rig) OwnerLocation() inventory.Vector {
	r.world.mu.RLock()
	defer r.world.mu.RUnlock()
	return r.location
}

// actor must be called with the world lock held.
func (r *Rig) actor(id inventory.RepresentationID) (*Actor, error) {
	a, ok := r.world.actors[id]
	if !ok || a.Owner != r.owner {
		return nil, fmt.Errorf("%w: %s", ErrUnknownActor, id)
	}
	return a, nil
}
