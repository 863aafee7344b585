package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cartculus/server/internal/game"
	"github.com/cartculus/server/internal/gameid"
)

// Server represents the WebSocket server. It owns the connection registry and
// implements game.EventSink, turning room events into wire messages.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      zerolog.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	rooms       *game.Rooms
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.With().Str("component", "server").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRooms wires the room orchestrator in. Must be called before Start; the
// two-step construction exists because the orchestrator needs the server as
// its event sink.
func (s *Server) SetRooms(rooms *game.Rooms) {
	s.rooms = rooms
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	// Create a dedicated mux for this server instance
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}

	s.logger.Info().Str("addr", s.addr).Msg("Starting WebSocket server")
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the WebSocket server, closing every client connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	// Close all connections
	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info().Int("total", total).Msg("Client connected")

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()

			// Remove the player from any room they were in; the room core
			// handles host reassignment, challenge cancellation and deletion.
			s.rooms.Disconnect(conn.PlayerID())
			s.logger.Info().Int("total", total).Msg("Client disconnected")

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := NewConnection(conn, gameid.Generate(), s.logger, s.rooms)
	s.register <- client
	client.Start()

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// Broadcast sends a room event to every member of the room.
func (s *Server) Broadcast(roomID string, ev game.Event) {
	msg, err := NewMessage(MessageType(ev.EventType()), ev)
	if err != nil {
		s.logger.Error().Err(err).Str("type", ev.EventType().String()).Msg("Failed to encode event")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetRoom() == roomID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error().Err(err).Str("player", conn.PlayerID()).Msg("Failed to send message to client")
			} else {
				count++
			}
		}
	}

	s.logger.Debug().Str("room", roomID).Str("type", ev.EventType().String()).Int("recipients", count).Msg("Broadcasted event to room")
}

// Unicast sends a room event to a single player.
func (s *Server) Unicast(playerID string, ev game.Event) {
	msg, err := NewMessage(MessageType(ev.EventType()), ev)
	if err != nil {
		s.logger.Error().Err(err).Str("type", ev.EventType().String()).Msg("Failed to encode event")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.PlayerID() == playerID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error().Err(err).Str("player", playerID).Msg("Failed to send message to client")
			}
			return
		}
	}
}

// BroadcastAll sends an event to every connected client; used for the room
// directory.
func (s *Server) BroadcastAll(ev game.Event) {
	msg, err := NewMessage(MessageType(ev.EventType()), ev)
	if err != nil {
		s.logger.Error().Err(err).Str("type", ev.EventType().String()).Msg("Failed to encode event")
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error().Err(err).Str("player", conn.PlayerID()).Msg("Failed to send message to client")
		}
	}
}

// ConnectedPlayers returns the IDs of all connected clients.
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []string
	for conn := range s.connections {
		players = append(players, conn.PlayerID())
	}

	return players
}
