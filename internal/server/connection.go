package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/itemmanager/internal/network"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
	"github.com/gravitas-games/itemmanager/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	// WebSocket connection
	ws *websocket.Conn

	// Server reference
	server *Server

	// Player information (set after authentication)
	player *models.Player

	// Buffered channel for outbound messages
	send chan []byte

	// Is connection authenticated
	authenticated bool
	joined        bool

	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	return &Connection{
		ws:            ws,
		server:        server,
		send:          make(chan []byte, 256),
		authenticated: false,
		logger:        server.logger,
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	// Set up connection parameters
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Start read and write pumps
	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer func() {
		c.Close()
	}()

	for {
		// Read message
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", "error", err)
			}
			break
		}

		// Parse message
		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Debug("Failed to parse client message", "error", err)
			c.SendError(network.ErrCodeBadMessage, "Failed to parse message")
			continue
		}

		// Handle message based on type
		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Write message
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("WebSocket write error", "error", err)
				return
			}

		case <-ticker.C:
			// Send ping
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			// Server shutting down
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.logger.Debug("Received message", "type", msg.Type)

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()
		return
	case network.MsgTypeLeave:
		c.handleLeave()
		return
	case network.MsgTypePing:
		c.handlePing()
		return
	}

	if !c.isJoined() {
		c.SendError(network.ErrCodeNotJoined, "Join the session first")
		return
	}

	var fn func(p *playerState) error
	switch msg.Type {
	case network.MsgTypeSwitchNext:
		fn = func(p *playerState) error { return p.manager.SwitchNext() }

	case network.MsgTypeSwitchPrevious:
		fn = func(p *playerState) error { return p.manager.SwitchPrevious() }

	case network.MsgTypeSwitchIndex:
		var payload network.SwitchIndexPayload
		if !c.decode(msg.Payload, &payload) {
			return
		}
		fn = func(p *playerState) error { return p.manager.SwitchIndex(payload.Index) }

	case network.MsgTypeUse:
		fn = func(p *playerState) error { return p.manager.UseItem() }

	case network.MsgTypeDrop:
		fn = func(p *playerState) error {
			_, err := p.manager.DropItem()
			return err
		}

	case network.MsgTypeCollect:
		fn = func(p *playerState) error { return p.manager.Collect() }

	case network.MsgTypeMove:
		var payload network.MovePayload
		if !c.decode(msg.Payload, &payload) {
			return
		}
		to := inventory.Vector{X: payload.X, Y: payload.Y, Z: payload.Z}
		fn = func(p *playerState) error {
			c.server.session.move(p, to)
			return nil
		}

	case network.MsgTypeOverlapBegin, network.MsgTypeOverlapEnd:
		var payload network.PickupPayload
		if !c.decode(msg.Payload, &payload) {
			return
		}
		begin := msg.Type == network.MsgTypeOverlapBegin
		fn = func(p *playerState) error {
			if begin {
				p.manager.OnOverlapBegin(payload.Pickup)
			} else {
				p.manager.OnOverlapEnd(payload.Pickup)
			}
			return nil
		}

	case network.MsgTypeAddItem:
		if !c.player.CanGrantItems() {
			c.SendError(network.ErrCodeRejected, ErrNotPermitted.Error())
			return
		}
		var payload network.AddItemPayload
		if !c.decode(msg.Payload, &payload) {
			return
		}
		fn = func(p *playerState) error { return p.manager.AddItem(payload.Item).Err() }

	default:
		c.logger.Debug("Unknown message type", "type", msg.Type)
		c.SendError(network.ErrCodeUnknown, "Unknown message type")
		return
	}

	if err := c.server.session.command(c.player.ID, fn); err != nil {
		c.SendError(network.ErrCodeRejected, err.Error())
	}
}

func (c *Connection) decode(payload json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		c.SendError(network.ErrCodeBadMessage, fmt.Sprintf("Invalid payload: %v", err))
		return false
	}
	return true
}

// handleJoin handles player join requests
func (c *Connection) handleJoin() {
	// Verify player is authenticated (should always be true now)
	if !c.authenticated || c.player == nil {
		c.SendError("not_authenticated", "Connection not authenticated")
		return
	}
	if c.isJoined() {
		c.SendError(network.ErrCodeRejected, ErrAlreadyJoined.Error())
		return
	}

	// Update player connection state
	c.player.Connected = true
	c.player.ConnectedAt = time.Now()
	c.player.SessionID = c.server.session.ID

	// Add player to session, the game loop sends the welcome message
	if err := c.server.session.AddPlayer(c.player, c); err != nil {
		c.logger.Warn("Failed to add player to session", "player_id", c.player.ID, "error", err)
		c.SendError("join_failed", err.Error())
		return
	}
	c.mu.Lock()
	c.joined = true
	c.mu.Unlock()
}

func (c *Connection) isJoined() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.joined
}

// handleLeave handles player leave requests
func (c *Connection) handleLeave() {
	c.mu.Lock()
	joined := c.joined
	c.joined = false
	c.mu.Unlock()

	if c.player != nil && joined {
		c.server.session.RemovePlayer(c.player.ID)
		c.player.Connected = false
	}
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// SendMessage sends a message to the client. It is safe to call from the
// game loop while the connection is closing.
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message", "error", err)
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Send buffer full, dropping message", "type", msg.Type)
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close closes the connection
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	// Remove player from session if authenticated
	if c.authenticated && c.player != nil {
		c.handleLeave()
	}

	// Close WebSocket connection
	c.ws.Close()
}
