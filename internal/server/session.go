package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gravitas-games/itemmanager/internal/broadcast"
	"github.com/gravitas-games/itemmanager/internal/catalog"
	"github.com/gravitas-games/itemmanager/internal/config"
	"github.com/gravitas-games/itemmanager/internal/logger"
	"github.com/gravitas-games/itemmanager/internal/network"
	"github.com/gravitas-games/itemmanager/internal/presentation"
	"github.com/gravitas-games/itemmanager/pkg/events"
	"github.com/gravitas-games/itemmanager/pkg/inventory"
	"github.com/gravitas-games/itemmanager/pkg/itemmanager"
	"github.com/gravitas-games/itemmanager/pkg/models"
	"github.com/gravitas-games/itemmanager/pkg/timer"
)

var (
	ErrSessionFull    = errors.New("session is full")
	ErrSessionBusy    = errors.New("session command queue is full")
	ErrAlreadyJoined  = errors.New("player already joined")
	ErrNotPermitted   = errors.New("not permitted")
	errCommandDropped = errors.New("player left before command ran")
)

const commandQueueSize = 1024

// Client receives server messages. Connection is the production client.
type Client interface {
	SendMessage(msg *network.ServerMessage)
}

// Session represents a game session
type Session struct {
	ID        string
	CreatedAt time.Time

	// Player management
	players     map[string]*models.Player // playerID -> Player
	connections map[string]Client         // playerID -> Client
	mu          sync.RWMutex

	status SessionStatus

	// Game state, only touched by the game loop
	registry    *inventory.Registry
	world       *presentation.World
	clock       *timer.Queue
	states      map[string]*playerState
	broadcaster *broadcast.Broadcaster

	commands chan func()
	tick     time.Duration

	// Configuration
	config *config.Config
	logger *slog.Logger
}

// playerState is the game-loop side of a joined player.
type playerState struct {
	player  *models.Player
	client  Client
	manager *itemmanager.Manager
	rig     *presentation.Rig
}

// SessionStatus represents the current state of the session
type SessionStatus struct {
	State       string `json:"state"` // "waiting", "running", "stopped"
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"` // seconds
}

// NewSession creates a new game session from the item catalog. The
// broadcaster is optional.
func NewSession(id string, cfg *config.Config, cat *catalog.Catalog, b *broadcast.Broadcaster, log *slog.Logger) (*Session, error) {
	log = log.With("session_id", id)
	log.Info("Creating session")

	registry, err := cat.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to build item registry: %w", err)
	}

	world := presentation.NewWorld(cat.Rig.Sockets)
	for _, p := range cat.Pickups {
		if _, err := world.AddPickup(p.ID, p.Data, inventory.At(p.Location)); err != nil {
			return nil, fmt.Errorf("failed to place pickup %s: %w", p.ID, err)
		}
	}

	tickRate := cfg.Server.TickRate
	if tickRate <= 0 {
		tickRate = 20
	}

	session := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]Client),
		registry:    registry,
		world:       world,
		clock:       timer.NewQueue(),
		states:      make(map[string]*playerState),
		broadcaster: b,
		commands:    make(chan func(), commandQueueSize),
		tick:        time.Second / time.Duration(tickRate),
		config:      cfg,
		logger:      log,
		status: SessionStatus{
			State:      "waiting",
			MaxPlayers: cfg.Session.MaxPlayers,
		},
	}

	log.Info("Session created", "items", registry.Len(), "pickups", len(cat.Pickups), "tick", session.tick)
	return session, nil
}

// Run is the game loop. It advances the item timers every tick and runs
// queued player commands in between, so every manager call happens on this
// goroutine.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.setState("running")
	defer s.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-s.commands:
			fn()
		case <-ticker.C:
			s.step(s.tick)
		}
	}
}

// step advances game time by dt.
func (s *Session) step(dt time.Duration) {
	s.clock.Advance(dt)
	s.mu.Lock()
	s.status.ServerTick++
	s.mu.Unlock()
}

// drain runs every queued command.
func (s *Session) drain() {
	for {
		select {
		case fn := <-s.commands:
			fn()
		default:
			return
		}
	}
}

func (s *Session) stop() {
	s.drain()
	for id := range s.states {
		s.despawnPlayer(id)
	}
	s.setState("stopped")
}

func (s *Session) setState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.State = state
}

func (s *Session) enqueue(fn func()) error {
	select {
	case s.commands <- fn:
		return nil
	default:
		return ErrSessionBusy
	}
}

// AddPlayer adds a player to the session and schedules its item manager.
// The welcome message is sent from the game loop once the manager started.
func (s *Session) AddPlayer(player *models.Player, client Client) error {
	s.mu.Lock()
	if _, exists := s.players[player.ID]; exists {
		s.mu.Unlock()
		return ErrAlreadyJoined
	}
	if s.status.MaxPlayers > 0 && len(s.players) >= s.status.MaxPlayers {
		s.mu.Unlock()
		return ErrSessionFull
	}
	s.players[player.ID] = player
	s.connections[player.ID] = client
	s.status.PlayerCount = len(s.players)
	s.mu.Unlock()

	if err := s.enqueue(func() { s.spawnPlayer(player, client) }); err != nil {
		s.RemovePlayer(player.ID)
		return err
	}

	s.logger.Info("Player joined session", "player_id", player.ID, "username", player.Username)
	return nil
}

// RemovePlayer removes a player from the session
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	player, exists := s.players[playerID]
	if exists {
		delete(s.players, playerID)
		delete(s.connections, playerID)
		s.status.PlayerCount = len(s.players)
	}
	s.mu.Unlock()

	if !exists {
		return
	}
	s.logger.Info("Player left session", "player_id", playerID, "username", player.Username)
	if err := s.enqueue(func() { s.despawnPlayer(playerID) }); err != nil {
		s.logger.Warn("Failed to schedule player removal", "player_id", playerID, "error", err)
	}
}

// command runs fn against the player's item manager on the game loop. A
// rejected operation is reported to the player as an error message; the
// player always receives its inventory afterwards.
func (s *Session) command(playerID string, fn func(p *playerState) error) error {
	return s.enqueue(func() {
		p, ok := s.states[playerID]
		if !ok {
			s.logger.Debug("Dropping command", "player_id", playerID, "error", errCommandDropped)
			return
		}
		if err := fn(p); err != nil {
			p.client.SendMessage(&network.ServerMessage{
				Type:    network.MsgTypeError,
				Payload: network.ErrorPayload{Code: network.ErrCodeRejected, Message: err.Error()},
			})
		}
		p.client.SendMessage(&network.ServerMessage{
			Type:    network.MsgTypeInventory,
			Payload: inventorySnapshot(p.manager),
		})
	})
}

func (s *Session) spawnPlayer(player *models.Player, client Client) {
	if _, exists := s.states[player.ID]; exists {
		return
	}
	log := logger.WithPlayer(s.logger, player.ID)

	rig := s.world.Rig(player.ID)
	rig.MoveTo(player.Position)
	bus := events.NewSimpleBus()
	if s.broadcaster != nil {
		s.broadcaster.Attach(bus)
	}

	cfg := itemmanager.Config{
		Owner:                 player.ID,
		LoopSwitching:         s.config.Items.Loop(),
		AddEmptyItemByDefault: s.config.Items.EmptyItem(),
		AllowDuplicates:       s.config.Items.Duplicates(),
		ItemLimit:             s.config.Items.ItemLimit,
	}
	manager := itemmanager.New(cfg, s.registry, rig, s.clock, bus, log)
	p := &playerState{player: player, client: client, manager: manager, rig: rig}

	if err := manager.Start(s.worldPickups()...); err != nil {
		logger.WithError(log, err).Error("Failed to start item manager")
		return
	}
	s.states[player.ID] = p
	bus.Subscribe(func(e events.Event) { s.onEvent(p, e) })
	s.updateOverlaps(p)

	client.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID:      player.ID,
			Username:      player.Username,
			SessionID:     s.ID,
			SessionStatus: s.networkStatus(),
			Inventory:     inventorySnapshot(manager),
			Pickups:       s.pickupSnapshots(),
		},
	})
}

func (s *Session) despawnPlayer(playerID string) {
	p, ok := s.states[playerID]
	if !ok {
		return
	}
	p.manager.Close()
	s.world.RemoveRig(playerID)
	delete(s.states, playerID)
}

// onEvent forwards a player's item events and keeps the other players'
// pickup registries in line with the world.
func (s *Session) onEvent(p *playerState, e events.Event) {
	p.client.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeEvent,
		Payload: network.EventPayload{Event: e},
	})

	switch e.Type {
	case events.ItemDropped:
		if e.Pickup == "" || e.Placement == nil {
			return
		}
		for id, other := range s.states {
			if id == p.player.ID {
				continue
			}
			if err := other.manager.RegisterPickup(e.Pickup, *e.Placement); err != nil {
				s.logger.Warn("Failed to share dropped pickup", "player_id", id, "pickup", e.Pickup, "error", err)
			}
		}
		s.refreshOverlaps()
		s.broadcastPickups()
	case events.ItemCollected:
		for id, other := range s.states {
			if id != p.player.ID {
				other.manager.RemovePickup(e.Pickup)
			}
		}
		s.refreshOverlaps()
		s.broadcastPickups()
	}
}

// refreshOverlaps recomputes every player's overlap after the set of world
// pickups changed under players that did not move.
func (s *Session) refreshOverlaps() {
	for _, p := range s.states {
		s.updateOverlaps(p)
	}
}

// move relocates the player's rig and updates which pickup it overlaps.
func (s *Session) move(p *playerState, to inventory.Vector) {
	p.player.Position = to
	p.rig.MoveTo(to)
	s.updateOverlaps(p)
}

func (s *Session) updateOverlaps(p *playerState) {
	inside := s.world.Overlapping(p.player.Position)
	if tracked, ok := p.manager.TrackedPickup(); ok {
		for _, id := range inside {
			if id == tracked {
				return
			}
		}
		p.manager.OnOverlapEnd(tracked)
	}
	for _, id := range inside {
		if p.manager.OnOverlapBegin(id) {
			return
		}
	}
}

func (s *Session) worldPickups() []itemmanager.PlacedPickup {
	pickups := s.world.Pickups()
	out := make([]itemmanager.PlacedPickup, 0, len(pickups))
	for _, p := range pickups {
		out = append(out, itemmanager.PlacedPickup{ID: p.ID, Data: p.Data})
	}
	return out
}

func (s *Session) pickupSnapshots() []network.PickupSnapshot {
	pickups := s.world.Pickups()
	out := make([]network.PickupSnapshot, 0, len(pickups))
	for _, p := range pickups {
		out = append(out, network.PickupSnapshot{ID: p.ID, Data: p.Data, Transform: p.Transform})
	}
	return out
}

func (s *Session) broadcastPickups() {
	s.BroadcastMessage(&network.ServerMessage{
		Type:    network.MsgTypePickups,
		Payload: network.PickupsPayload{Pickups: s.pickupSnapshots()},
	})
}

func inventorySnapshot(m *itemmanager.Manager) network.InventoryPayload {
	tracked, _ := m.TrackedPickup()
	return network.InventoryPayload{
		Items:        m.Items(),
		CurrentIndex: m.CurrentIndex(),
		State:        m.State().String(),
		Switching:    m.IsSwitching(),
		Tracked:      tracked,
	}
}

// BroadcastMessage sends a message to all connected players
func (s *Session) BroadcastMessage(msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.connections {
		client.SendMessage(msg)
	}
}

// GetStatus returns the current session status
func (s *Session) GetStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.Uptime = int64(time.Since(s.CreatedAt).Seconds())
	return status
}

func (s *Session) networkStatus() network.SessionStatus {
	status := s.GetStatus()
	return network.SessionStatus{
		State:       status.State,
		PlayerCount: status.PlayerCount,
		MaxPlayers:  status.MaxPlayers,
		ServerTick:  status.ServerTick,
		Uptime:      status.Uptime,
	}
}
