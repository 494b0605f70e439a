package inventory

import (
	"fmt"
	"strings"
)

// DisplayMode selects how a pickup presents itself in the world.
type DisplayMode int

const (
	DisplayGrounded DisplayMode = iota
	DisplayAnimated
	DisplayPhysics
	DisplayNone
)

var displayModeNames = map[DisplayMode]string{
	DisplayGrounded: "grounded",
	DisplayAnimated: "animated",
	DisplayPhysics:  "physics",
	DisplayNone:     "none",
}

func (m DisplayMode) String() string {
	if name, ok := displayModeNames[m]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (m DisplayMode) MarshalText() ([]byte, error) {
	if _, ok := displayModeNames[m]; !ok {
		return nil, fmt.Errorf("inventory: unknown display mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *DisplayMode) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for mode, n := range displayModeNames {
		if n == name {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("inventory: unknown display mode %q", string(text))
}

// GroundRotation selects which rotation a grounded pickup keeps.
type GroundRotation int

const (
	KeepGroundRotation GroundRotation = iota
	KeepMeshRotation
)

func (g GroundRotation) String() string {
	switch g {
	case KeepGroundRotation:
		return "keep_ground_rotation"
	case KeepMeshRotation:
		return "keep_mesh_rotation"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g GroundRotation) MarshalText() ([]byte, error) {
	if g != KeepGroundRotation && g != KeepMeshRotation {
		return nil, fmt.Errorf("inventory: unknown ground rotation %d", int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *GroundRotation) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "keep_ground_rotation":
		*g = KeepGroundRotation
	case "keep_mesh_rotation":
		*g = KeepMeshRotation
	default:
		return fmt.Errorf("inventory: unknown ground rotation %q", string(text))
	}
	return nil
}

// GroundProperties configure a grounded pickup.
type GroundProperties struct {
	RotationType         GroundRotation `json:"rotationType" yaml:"rotation_type"`
	UseItemWidthInstead  bool           `json:"useItemWidthInstead" yaml:"use_item_width_instead"`
	MaxHeight            float64        `json:"maxHeight" yaml:"max_height"`
	AdjustedRotation     Rotator        `json:"adjustedRotation" yaml:"adjusted_rotation"`
	InvertGroundRotation bool           `json:"invertGroundRotation" yaml:"invert_ground_rotation"`
}

// AnimationProperties configure an animated (bobbing, spinning) pickup.
type AnimationProperties struct {
	Height        float64 `json:"height" yaml:"height"`
	HeightSpeed   float64 `json:"heightSpeed" yaml:"height_speed"`
	RotationSpeed float64 `json:"rotationSpeed" yaml:"rotation_speed"`
}

// DefaultOutlineMaterial is the material reference used when none is set.
const DefaultOutlineMaterial = "/ItemManager/Materials/M_Outline_Inst"

// PlacementData is the configuration snapshot needed to recreate a world
// pickup. It is captured from a pickup when it is collected and handed back
// to the presenter when the item is dropped.
type PlacementData struct {
	Item               ItemID              `json:"item" yaml:"item"`
	TriggerExtent      Vector              `json:"triggerExtent" yaml:"trigger_extent"`
	Display            DisplayMode         `json:"display" yaml:"display"`
	Ground             GroundProperties    `json:"ground" yaml:"ground"`
	Animation          AnimationProperties `json:"animation" yaml:"animation"`
	EnableCollisions   bool                `json:"enableCollisions" yaml:"enable_collisions"`
	EnableTransparency bool                `json:"enableTransparency" yaml:"enable_transparency"`
	EnableOutline      bool                `json:"enableOutline" yaml:"enable_outline"`
	OutlineMaterial    string              `json:"outlineMaterial,omitempty" yaml:"outline_material"`
}

// DefaultPlacement returns the placement a freshly added item carries until
// it is collected from (or dropped as) a configured pickup.
func DefaultPlacement(item ItemID) PlacementData {
	return PlacementData{
		Item:          item,
		TriggerExtent: Vector{X: 50, Y: 50, Z: 50},
		Display:       DisplayNone,
		Ground: GroundProperties{
			RotationType:         KeepGroundRotation,
			MaxHeight:            300,
			InvertGroundRotation: true,
		},
		Animation: AnimationProperties{
			Height:        50,
			HeightSpeed:   1,
			RotationSpeed: 100,
		},
		EnableOutline:   true,
		OutlineMaterial: DefaultOutlineMaterial,
	}
}

// Normalize applies the rules that tie fields together: physics pickups
// always collide.
func (p PlacementData) Normalize() PlacementData {
	if p.Display == DisplayPhysics {
		p.EnableCollisions = true
	}
	return p
}

// Contains reports whether point lies inside the trigger box of a pickup
// centred at center.
func (p PlacementData) Contains(center, point Vector) bool {
	return abs(point.X-center.X) <= p.TriggerExtent.X &&
		abs(point.Y-center.Y) <= p.TriggerExtent.Y &&
		abs(point.Z-center.Z) <= p.TriggerExtent.Z
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
