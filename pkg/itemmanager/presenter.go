package itemmanager

import "github.com/gravitas-games/itemmanager/pkg/inventory"

// Presenter is the engine side of the item manager: it owns every actor the
// manager asks for and knows where the owner's sockets are. The manager
// treats all of it as opaque operations that may fail.
type Presenter interface {
	// SpawnRepresentation creates the in-world actor of an item.
	SpawnRepresentation(def *inventory.Definition, at inventory.Transform) (inventory.RepresentationID, error)

	// AttachRepresentation attaches an actor to one of the owner's sockets.
	AttachRepresentation(id inventory.RepresentationID, socket inventory.Socket) error

	// DetachRepresentation detaches an actor from the owner, leaving it in
	// the world according to rule.
	DetachRepresentation(id inventory.RepresentationID, rule inventory.AttachmentRule) error

	// DestroyRepresentation removes an actor from the world.
	DestroyRepresentation(id inventory.RepresentationID) error

	// PlacePickup materialises a collectable in the world.
	PlacePickup(data inventory.PlacementData, at inventory.Transform) (inventory.PickupID, error)

	// DestroyPickup removes a collectable from the world.
	DestroyPickup(id inventory.PickupID) error

	// SocketLocation returns the world location of a socket on the owner,
	// false when the owner has no such socket.
	SocketLocation(socket string) (inventory.Vector, bool)

	// OwnerLocation returns the world location of the owner.
	OwnerLocation() inventory.Vector
}
