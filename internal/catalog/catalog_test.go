package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

const sample = `
items:
  - id: rifle
    name: Rifle
    attach_socket: {name: hand_r, rule: snap_to_target_not_including_scale}
    detach_socket: {name: spine, rule: keep_relative}
    time_before_spawn: 500ms
    time_before_despawn: 1s
    dropable: true
    capabilities:
      collectable: true
      switchable: true
      usable: true
  - id: medkit
    numeric_id: 10
    attach_socket: {name: hand_l, rule: keep_world}
    capabilities:
      collectable: true
      switchable: true
      equip_when_picked_up: true
      despawn_when_switched: true

pickups:
  - id: armory-rifle
    item: rifle
    location: {x: 100, y: 0, z: 0}
    placement:
      display: animated
      enable_transparency: true
      animation: {height: 20}
  - item: medkit
    location: {x: -50, y: 10, z: 0}
    placement:
      display: physics

rig:
  sockets:
    hand_r: {x: 30, y: 10, z: 120}
    spine: {x: -10, y: 0, z: 140}
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, c.Items, 2)

	rifle := c.Items[0]
	assert.Equal(t, inventory.ItemID("rifle"), rifle.ID)
	assert.Equal(t, inventory.SnapToTargetNotIncludingScale, rifle.AttachSocket.Rule)
	assert.Equal(t, "spine", rifle.DetachSocket.Name)
	assert.Equal(t, 500*time.Millisecond, rifle.TimeBeforeSpawn)
	assert.Equal(t, time.Second, rifle.TimeBeforeDespawn)
	assert.True(t, rifle.CanBeUsed)
	assert.False(t, rifle.DespawnWhenSwitched)
	assert.Equal(t, inventory.IdentityTransform(), rifle.SpawnTransform)

	medkit := c.Items[1]
	assert.Equal(t, "medkit", medkit.FriendlyName)
	assert.Equal(t, inventory.RegistryID(10), medkit.NumericID)
	assert.True(t, medkit.EquipWhenPickedUp)

	require.Len(t, c.Pickups, 2)
	armory := c.Pickups[0]
	assert.Equal(t, inventory.PickupID("armory-rifle"), armory.ID)
	assert.Equal(t, inventory.DisplayAnimated, armory.Data.Display)
	assert.True(t, armory.Data.EnableTransparency)
	assert.Equal(t, 20.0, armory.Data.Animation.Height)
	assert.Equal(t, 1.0, armory.Data.Animation.HeightSpeed, "unset fields keep defaults")
	assert.Equal(t, inventory.DefaultOutlineMaterial, armory.Data.OutlineMaterial)
	assert.Equal(t, inventory.ItemID("rifle"), armory.Data.Item)

	assert.Empty(t, c.Pickups[1].ID)
	assert.True(t, c.Pickups[1].Data.EnableCollisions, "physics pickups collide")

	assert.Equal(t, inventory.Vector{X: 30, Y: 10, Z: 120}, c.Rig.Sockets["hand_r"])

	reg, err := c.Registry()
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())
	def, ok := reg.LookupByRegistryID(10)
	require.True(t, ok)
	assert.Same(t, medkit, def)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := map[string]string{
		"missing id":       "items:\n  - name: x\n",
		"duplicate item":   "items:\n  - id: a\n  - id: a\n",
		"reserved id":      "items:\n  - id: empty\n",
		"negative delay":   "items:\n  - id: a\n    time_before_spawn: -1s\n",
		"unknown item":     "items:\n  - id: a\npickups:\n  - item: b\n",
		"duplicate pickup": "items:\n  - id: a\npickups:\n  - {id: p, item: a}\n  - {id: p, item: a}\n",
		"bad rule":         "items:\n  - id: a\n    attach_socket: {rule: glue}\n",
		"bad display":      "items:\n  - id: a\npickups:\n  - item: a\n    placement: {display: hologram}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)

	empty, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.NotNil(t, empty.Rig.Sockets)
}
