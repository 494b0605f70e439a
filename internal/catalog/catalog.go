// Package catalog loads the item definitions, the pre-placed world pickups
// and the default owner rig from a YAML file.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

var ErrInvalidCatalog = errors.New("catalog: invalid catalog")

// Pickup is a collectable placed in the world at startup.
type Pickup struct {
	ID       inventory.PickupID
	Location inventory.Vector
	Data     inventory.PlacementData
}

// Rig describes the sockets of a player body, as offsets from the owner's
// location.
type Rig struct {
	Sockets map[string]inventory.Vector `yaml:"sockets"`
}

// Catalog is the decoded catalog file.
type Catalog struct {
	Items   []*inventory.Definition
	Pickups []Pickup
	Rig     Rig
}

type pickupEntry struct {
	ID        inventory.PickupID `yaml:"id"`
	Item      inventory.ItemID   `yaml:"item"`
	Location  inventory.Vector   `yaml:"location"`
	Placement yaml.Node          `yaml:"placement"`
}

type file struct {
	Items   []*inventory.Definition `yaml:"items"`
	Pickups []pickupEntry           `yaml:"pickups"`
	Rig     Rig                     `yaml:"rig"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document. Pickup placements start
// from the default placement of their item, so a file only lists the fields
// it changes.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{Rig: f.Rig}
	if c.Rig.Sockets == nil {
		c.Rig.Sockets = make(map[string]inventory.Vector)
	}

	known := make(map[inventory.ItemID]bool, len(f.Items))
	for i, def := range f.Items {
		if def == nil {
			return nil, fmt.Errorf("%w: item %d is empty", ErrInvalidCatalog, i)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrInvalidCatalog, i, err)
		}
		if def.ID == inventory.EmptyItemID {
			return nil, fmt.Errorf("%w: item id %q is reserved", ErrInvalidCatalog, def.ID)
		}
		if known[def.ID] {
			return nil, fmt.Errorf("%w: duplicate item %q", ErrInvalidCatalog, def.ID)
		}
		known[def.ID] = true
		if def.FriendlyName == "" {
			def.FriendlyName = string(def.ID)
		}
		if def.SpawnTransform == (inventory.Transform{}) {
			def.SpawnTransform = inventory.IdentityTransform()
		}
		c.Items = append(c.Items, def)
	}

	seen := make(map[inventory.PickupID]bool, len(f.Pickups))
	for i, p := range f.Pickups {
		if !known[p.Item] {
			return nil, fmt.Errorf("%w: pickup %d references unknown item %q", ErrInvalidCatalog, i, p.Item)
		}
		if p.ID != "" {
			if seen[p.ID] {
				return nil, fmt.Errorf("%w: duplicate pickup %q", ErrInvalidCatalog, p.ID)
			}
			seen[p.ID] = true
		}
		placement := inventory.DefaultPlacement(p.Item)
		if !p.Placement.IsZero() {
			if err := p.Placement.Decode(&placement); err != nil {
				return nil, fmt.Errorf("%w: pickup %d placement: %v", ErrInvalidCatalog, i, err)
			}
		}
		placement.Item = p.Item
		c.Pickups = append(c.Pickups, Pickup{
			ID:       p.ID,
			Location: p.Location,
			Data:     placement.Normalize(),
		})
	}

	return c, nil
}

// Registry registers every catalog item in a fresh registry.
func (c *Catalog) Registry() (*inventory.Registry, error) {
	reg := inventory.NewRegistry()
	for _, def := range c.Items {
		if err := reg.Register(def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
