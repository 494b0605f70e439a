package network

import (
	"encoding/json"

	"github.com/gravitas-games/itemmanager/pkg/events"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
)

// Message types - Client → Server
const (
	MsgTypeJoin           = "join"
	MsgTypeLeave          = "leave"
	MsgTypePing           = "ping"
	MsgTypeSwitchNext     = "switch_next"
	MsgTypeSwitchPrevious = "switch_previous"
	MsgTypeSwitchIndex    = "switch_index"
	MsgTypeUse            = "use"
	MsgTypeDrop           = "drop"
	MsgTypeCollect        = "collect"
	MsgTypeMove           = "move"
	MsgTypeOverlapBegin   = "overlap_begin"
	MsgTypeOverlapEnd     = "overlap_end"
	MsgTypeAddItem        = "add_item"
)

// Message types - Server → Client
const (
	MsgTypeWelcome   = "welcome"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
	MsgTypeEvent     = "event"
	MsgTypeInventory = "inventory"
	MsgTypePickups   = "pickups"
)

// Error codes sent in ErrorPayload
const (
	ErrCodeBadMessage = "bad_message"
	ErrCodeUnknown    = "unknown_message"
	ErrCodeRejected   = "rejected"
	ErrCodeNotJoined  = "not_joined"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// SwitchIndexPayload selects a slot directly
type SwitchIndexPayload struct {
	Index int `json:"index"`
}

// MovePayload moves the player's rig
type MovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PickupPayload names a pickup for explicit overlap messages
type PickupPayload struct {
	Pickup inventory.PickupID `json:"pickup"`
}

// AddItemPayload grants an item (admin clients only)
type AddItemPayload struct {
	Item inventory.ItemID `json:"item"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	PlayerID      string           `json:"player_id"`
	Username      string           `json:"username"`
	SessionID     string           `json:"session_id"`
	SessionStatus SessionStatus    `json:"session_status"`
	Inventory     InventoryPayload `json:"inventory"`
	Pickups       []PickupSnapshot `json:"pickups"`
}

// InventoryPayload is a full snapshot of a player's item manager
type InventoryPayload struct {
	Items        []inventory.Slot   `json:"items"`
	CurrentIndex int                `json:"current_index"`
	State        string             `json:"state"`
	Switching    bool               `json:"switching"`
	Tracked      inventory.PickupID `json:"tracked_pickup,omitempty"`
}

// PickupSnapshot describes one pickup in the world
type PickupSnapshot struct {
	ID        inventory.PickupID      `json:"id"`
	Data      inventory.PlacementData `json:"data"`
	Transform inventory.Transform     `json:"transform"`
}

// PickupsPayload lists every pickup in the world after it changed
type PickupsPayload struct {
	Pickups []PickupSnapshot `json:"pickups"`
}

// EventPayload wraps an item manager event
type EventPayload struct {
	Event events.Event `json:"event"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
