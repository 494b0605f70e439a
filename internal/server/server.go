package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/google/uuid"

	"github.com/gravitas-games/itemmanager/internal/broadcast"
	"github.com/gravitas-games/itemmanager/internal/catalog"
	"github.com/gravitas-games/itemmanager/internal/config"
)

// Server represents the game server
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	redis        *redis.Client
	broadcaster  *broadcast.Broadcaster
	logger       *slog.Logger

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Background loops
	wg sync.WaitGroup

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance and starts the game loop and the event
// broadcaster.
func New(cfg *config.Config, cat *catalog.Catalog, logger *slog.Logger) (*Server, error) {
	logger.Info("Initializing server...")

	ctx, cancel := context.WithCancel(context.Background())

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Connected to Redis", "address", cfg.Redis.Address)

	srv := &Server{
		config:      cfg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		redis:       redisClient,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	// Initialize JWT validator
	jwtValidator, err := NewJWTValidator(ctx, cfg, redisClient, logger)
	if err != nil {
		cancel()
		redisClient.Close()
		return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
	}
	srv.jwtValidator = jwtValidator

	srv.broadcaster = broadcast.NewBroadcaster(redisClient, cfg.Redis.EventsPrefix, 0, logger)

	// Initialize session
	session, err := NewSession(uuid.NewString(), cfg, cat, srv.broadcaster, logger)
	if err != nil {
		cancel()
		redisClient.Close()
		return nil, err
	}
	srv.session = session

	srv.wg.Add(2)
	go func() {
		defer srv.wg.Done()
		session.Run(ctx)
	}()
	go func() {
		defer srv.wg.Done()
		if err := srv.broadcaster.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event broadcaster stopped", "error", err)
		}
	}()

	logger.Info("Server initialized successfully", "session_id", session.ID)
	return srv, nil
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting WebSocket server", "address", addr)

	// Create HTTP server
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Endpoints ready", "websocket", "ws://"+addr+"/ws", "health", "http://"+addr+"/health")

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server...")

	// Shutdown HTTP server with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Warn("HTTP server shutdown error", "error", err)
		}
	}

	// Close all WebSocket connections
	s.connMu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}

	// Stop the game loop and the broadcaster
	s.cancel()
	s.broadcaster.Close()
	s.wg.Wait()

	// Close Redis connection
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("Redis close error", "error", err)
		}
	}

	s.logger.Info("Server shutdown complete", "dropped_events", s.broadcaster.Dropped())
	return nil
}

// Session returns the game session
func (s *Server) Session() *Session {
	return s.session
}

// handleWebSocket handles WebSocket connection requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("New WebSocket connection request", "remote", r.RemoteAddr)

	// Extract JWT token from header
	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		s.logger.Info("Missing JWT token", "remote", r.RemoteAddr)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	// Validate JWT token
	player, err := s.jwtValidator.ValidateToken(r.Context(), tokenString)
	if err != nil {
		s.logger.Info("Invalid JWT token", "remote", r.RemoteAddr, "error", err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	// Upgrade HTTP connection to WebSocket
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	// Create connection with authenticated player
	conn := NewConnection(ws, s)
	conn.player = player
	conn.authenticated = true
	conn.logger = s.logger.With("player_id", player.ID)

	// Register connection
	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	s.logger.Info("WebSocket connection established", "player_id", player.ID, "username", player.Username, "remote", r.RemoteAddr)

	// Handle connection (blocking)
	conn.Handle()

	// Unregister connection when done
	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	s.logger.Info("WebSocket connection closed", "player_id", player.ID, "remote", r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	status := s.session.GetStatus()
	fmt.Fprintf(w, `{"status":"ok","session":%q,"players":%d,"tick":%d}`, status.State, status.PlayerCount, status.ServerTick)
}
