// Package inventory holds the data model of the item manager: immutable
// item definitions, the registry they live in, the per-player slot list and
// the placement snapshot used to put an item back into the world.
package inventory

import (
	"fmt"
	"strings"
	"time"
)

// ItemID is the stable, application-defined key of an item type.
type ItemID string

// RegistryID is a numeric handle suitable for compact storage.
// IDs start at 1 and increment as new definitions are registered unless
// explicitly provided via Definition.NumericID.
type RegistryID int64

// RepresentationID identifies the spawned visual/physical actor of a slot.
// The empty value means the slot has no live representation.
type RepresentationID string

// PickupID identifies a world-placed collectable.
type PickupID string

// AttachmentRule tells the presenter how to treat the transform of a
// representation when it is attached to a socket.
type AttachmentRule int

const (
	KeepRelativeTransform AttachmentRule = iota
	KeepWorldTransform
	SnapToTargetIncludingScale
	SnapToTargetNotIncludingScale
)

var attachmentRuleNames = map[AttachmentRule]string{
	KeepRelativeTransform:         "keep_relative",
	KeepWorldTransform:            "keep_world",
	SnapToTargetIncludingScale:    "snap_to_target_including_scale",
	SnapToTargetNotIncludingScale: "snap_to_target_not_including_scale",
}

// String returns the configuration name of the rule.
func (r AttachmentRule) String() string {
	if name, ok := attachmentRuleNames[r]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (r AttachmentRule) MarshalText() ([]byte, error) {
	if _, ok := attachmentRuleNames[r]; !ok {
		return nil, fmt.Errorf("inventory: unknown attachment rule %d", int(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so rules can be written
// by name in YAML and JSON.
func (r *AttachmentRule) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for rule, n := range attachmentRuleNames {
		if n == name {
			*r = rule
			return nil
		}
	}
	return fmt.Errorf("inventory: unknown attachment rule %q", string(text))
}

// Vector is a point or extent in world units.
type Vector struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns the component-wise sum.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Rotator is an orientation in degrees.
type Rotator struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// Transform places something in the world or relative to a socket.
type Transform struct {
	Location Vector  `json:"location" yaml:"location"`
	Rotation Rotator `json:"rotation" yaml:"rotation"`
	Scale    Vector  `json:"scale" yaml:"scale"`
}

// IdentityTransform has no offset, no rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Vector{X: 1, Y: 1, Z: 1}}
}

// At returns an identity transform moved to location.
func At(location Vector) Transform {
	t := IdentityTransform()
	t.Location = location
	return t
}

// Socket names an attachment point on the owner's skeleton.
type Socket struct {
	Name string         `json:"name" yaml:"name"`
	Rule AttachmentRule `json:"rule" yaml:"rule"`
}

// Capabilities are the behaviour flags of an item type.
type Capabilities struct {
	CanBeCollected      bool `json:"canBeCollected" yaml:"collectable"`
	CanBeSwitched       bool `json:"canBeSwitched" yaml:"switchable"`
	CanBeUsed           bool `json:"canBeUsed" yaml:"usable"`
	EquipWhenPickedUp   bool `json:"equipWhenPickedUp" yaml:"equip_when_picked_up"`
	DespawnWhenSwitched bool `json:"despawnWhenSwitched" yaml:"despawn_when_switched"`
}

// Definition is the immutable template of one item type. Definitions are
// created at configuration time and shared by pointer between all slots of
// that type.
type Definition struct {
	ID                ItemID        `json:"id" yaml:"id"`
	NumericID         RegistryID    `json:"numericId,omitempty" yaml:"numeric_id,omitempty"`
	FriendlyName      string        `json:"name" yaml:"name"`
	AttachSocket      Socket        `json:"attachSocket" yaml:"attach_socket"`
	DetachSocket      Socket        `json:"detachSocket" yaml:"detach_socket"`
	SpawnTransform    Transform     `json:"spawnTransform" yaml:"spawn_transform"`
	TimeBeforeSpawn   time.Duration `json:"timeBeforeSpawn" yaml:"time_before_spawn"`
	TimeBeforeDespawn time.Duration `json:"timeBeforeDespawn" yaml:"time_before_despawn"`
	Dropable          bool          `json:"dropable" yaml:"dropable"`
	Capabilities      `json:"capabilities" yaml:"capabilities"`
}

// Validate checks the invariants a definition must satisfy before it can be
// registered.
func (d *Definition) Validate() error {
	if d == nil {
		return ErrInvalidItem
	}
	if d.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidItem)
	}
	if d.TimeBeforeSpawn < 0 {
		return fmt.Errorf("%w: %s: negative time before spawn", ErrInvalidItem, d.ID)
	}
	if d.TimeBeforeDespawn < 0 {
		return fmt.Errorf("%w: %s: negative time before despawn", ErrInvalidItem, d.ID)
	}
	return nil
}

// EmptyItemID is the key of the built-in empty item.
const EmptyItemID ItemID = "empty"

// EmptyItem returns the definition of the "hands empty" item that a manager
// can add by default. It has no delays, cannot be dropped, collected or
// used, and is destroyed whenever the player switches away from it.
func EmptyItem() *Definition {
	root := Socket{Name: "Root", Rule: KeepRelativeTransform}
	return &Definition{
		ID:             EmptyItemID,
		FriendlyName:   "Empty",
		AttachSocket:   root,
		DetachSocket:   root,
		SpawnTransform: IdentityTransform(),
		Dropable:       false,
		Capabilities: Capabilities{
			CanBeCollected:      false,
			CanBeSwitched:       true,
			CanBeUsed:           false,
			EquipWhenPickedUp:   false,
			DespawnWhenSwitched: true,
		},
	}
}

// Slot is one entry of a player's inventory.
type Slot struct {
	Item           ItemID           `json:"item"`
	Definition     *Definition      `json:"-"`
	Representation RepresentationID `json:"representation,omitempty"`
	Placement      PlacementData    `json:"placement"`
}

// HasRepresentation reports whether the slot currently has a spawned actor.
func (s Slot) HasRepresentation() bool {
	return s.Representation != ""
}

// Name returns the friendly name of the slot's item, or its id when the
// definition is missing.
func (s Slot) Name() string {
	if s.Definition != nil && s.Definition.FriendlyName != "" {
		return s.Definition.FriendlyName
	}
	return string(s.Item)
}
