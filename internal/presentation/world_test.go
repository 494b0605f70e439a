package presentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

func TestRigActorLifecycle(t *testing.T) {
	w := NewWorld(map[string]inventory.Vector{"hand_r": {X: 30, Z: 100}})
	rig := w.Rig("alice")
	assert.Same(t, rig, w.Rig("alice"))

	def := &inventory.Definition{ID: "rifle"}
	id, err := rig.SpawnRepresentation(def, inventory.IdentityTransform())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, rig.AttachRepresentation(id, inventory.Socket{Name: "hand_r", Rule: inventory.SnapToTargetIncludingScale}))
	a, ok := w.Actor(id)
	require.True(t, ok)
	assert.True(t, a.Attached)
	assert.Equal(t, "hand_r", a.Socket)
	assert.Equal(t, "alice", a.Owner)

	require.NoError(t, rig.DetachRepresentation(id, inventory.KeepWorldTransform))
	a, _ = w.Actor(id)
	assert.False(t, a.Attached)
	assert.Equal(t, inventory.KeepWorldTransform, a.Rule)

	other := w.Rig("bob")
	assert.ErrorIs(t, other.DestroyRepresentation(id), ErrUnknownActor, "actors belong to their owner")

	require.NoError(t, rig.DestroyRepresentation(id))
	assert.ErrorIs(t, rig.DestroyRepresentation(id), ErrUnknownActor)
	assert.Empty(t, w.Actors("alice"))
}

func TestRigSocketLocation(t *testing.T) {
	w := NewWorld(map[string]inventory.Vector{"hand_r": {X: 30, Z: 100}})
	rig := w.Rig("alice")
	rig.MoveTo(inventory.Vector{X: 10, Y: 5})

	loc, ok := rig.SocketLocation("hand_r")
	require.True(t, ok)
	assert.Equal(t, inventory.Vector{X: 40, Y: 5, Z: 100}, loc)

	_, ok = rig.SocketLocation("spine")
	assert.False(t, ok)
	rig.SetSocket("spine", inventory.Vector{Z: 140})
	loc, ok = rig.SocketLocation("spine")
	require.True(t, ok)
	assert.Equal(t, inventory.Vector{X: 10, Y: 5, Z: 140}, loc)

	assert.Equal(t, inventory.Vector{X: 10, Y: 5}, rig.OwnerLocation())
}

func TestPickupsAndOverlaps(t *testing.T) {
	w := NewWorld(nil)
	near := inventory.DefaultPlacement("rifle")
	id, err := w.AddPickup("armory", near, inventory.At(inventory.Vector{X: 100}))
	require.NoError(t, err)
	assert.Equal(t, inventory.PickupID("armory"), id)

	_, err = w.AddPickup("armory", near, inventory.IdentityTransform())
	assert.Error(t, err)

	rig := w.Rig("alice")
	dropped, err := rig.PlacePickup(near, inventory.At(inventory.Vector{X: -100}))
	require.NoError(t, err)
	assert.NotEmpty(t, dropped)

	assert.Equal(t, []inventory.PickupID{"armory"}, w.Overlapping(inventory.Vector{X: 140, Y: 20}))
	assert.Equal(t, []inventory.PickupID{dropped}, w.Overlapping(inventory.Vector{X: -60}))
	assert.Empty(t, w.Overlapping(inventory.Vector{}))
	assert.Len(t, w.Pickups(), 2)

	require.NoError(t, rig.DestroyPickup("armory"))
	assert.ErrorIs(t, rig.DestroyPickup("armory"), ErrUnknownPickup)
	_, ok := w.Pickup("armory")
	assert.False(t, ok)
}

func TestInjectedFailures(t *testing.T) {
	w := NewWorld(nil)
	rig := w.Rig("alice")
	w.SetFailures(Failures{Spawn: true, Place: true})

	_, err := rig.SpawnRepresentation(&inventory.Definition{ID: "rifle"}, inventory.IdentityTransform())
	assert.ErrorIs(t, err, ErrSpawnFailed)
	_, err = rig.PlacePickup(inventory.DefaultPlacement("rifle"), inventory.IdentityTransform())
	assert.ErrorIs(t, err, ErrPlaceFailed)
}

func TestRemoveRigDestroysActors(t *testing.T) {
	w := NewWorld(nil)
	rig := w.Rig("alice")
	_, err := rig.SpawnRepresentation(&inventory.Definition{ID: "rifle"}, inventory.IdentityTransform())
	require.NoError(t, err)
	require.Len(t, w.Actors("alice"), 1)

	w.RemoveRig("alice")
	assert.Empty(t, w.Actors("alice"))
	assert.NotSame(t, rig, w.Rig("alice"))
}
