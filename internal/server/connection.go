package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cartculus/server/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	roomID    string
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	rooms     *game.Rooms
}

// NewConnection creates a new connection wrapper. The player identity is
// assigned server-side at connect time and lives exactly as long as the
// socket.
func NewConnection(conn *websocket.Conn, playerID string, logger zerolog.Logger, rooms *game.Rooms) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		playerID: playerID,
		logger:   logger.With().Str("component", "conn").Str("player", playerID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
		rooms:    rooms,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug().Interface("cause", r).Msg("Attempted to send message on closed connection")
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn().Msg("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// PlayerID returns the server-assigned player identity.
func (c *Connection) PlayerID() string {
	return c.playerID
}

// SetRoom associates this connection with a room
func (c *Connection) SetRoom(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

// GetRoom returns the associated room ID
func (c *Connection) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("WebSocket error")
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug().Str("type", msg.Type.String()).Msg("Received message")

	switch msg.Type {
	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave room data")
			return
		}
		c.handleLeaveRoom(data)

	case MessageTypeListRooms:
		c.handleListRooms()

	case MessageTypeStartRound:
		var data StartRoundData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start round data")
			return
		}
		if err := c.rooms.StartRound(data.RoomID, c.playerID); err != nil {
			c.sendError("start_failed", err.Error())
		}

	case MessageTypeDealLoaded:
		var data DealLoadedData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse deal loaded data")
			return
		}
		c.rooms.DealLoaded(data.RoomID, c.playerID)

	case MessageTypeDeclareFinish:
		var data DeclareFinishData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse declare finish data")
			return
		}
		c.rooms.DeclareFinish(data.RoomID, c.playerID, data.Solution)

	case MessageTypeDeclareNoSolution:
		var data DeclareNoSolutionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse no solution data")
			return
		}
		c.rooms.DeclareNoSolution(data.RoomID, c.playerID)

	case MessageTypeSkipVote:
		var data SkipVoteData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse skip vote data")
			return
		}
		c.rooms.VoteSkip(data.RoomID, c.playerID, data.OriginPlayerID)

	case MessageTypeRequestReshuffle:
		var data RequestReshuffleData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse reshuffle data")
			return
		}
		if err := c.rooms.RequestReshuffle(data.RoomID); err != nil {
			c.sendError("reshuffle_failed", err.Error())
		}

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to create error message")
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	c.logger.Info().Str("room", data.RoomID).Str("playerName", data.PlayerName).Msg("Join room request")

	if data.RoomID == "" || data.PlayerName == "" {
		c.sendError("invalid_join", "Room ID and player name required")
		return
	}

	info, err := c.rooms.JoinRoom(data.RoomID, c.playerID, data.PlayerName, data.RoomName)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	c.SetRoom(data.RoomID)

	hostID := ""
	for _, summary := range c.rooms.ListRooms() {
		if summary.RoomID == data.RoomID {
			hostID = summary.HostID
			break
		}
	}

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID:   data.RoomID,
		PlayerID: info.PlayerID,
		Name:     info.Name,
		HostID:   hostID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveRoom(data LeaveRoomData) {
	c.logger.Info().Str("room", data.RoomID).Msg("Leave room request")

	c.rooms.LeaveRoom(data.RoomID, c.playerID)
	c.SetRoom("")

	response, _ := NewMessage(MessageTypeRoomLeft, RoomLeftData{RoomID: data.RoomID})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListRooms() {
	response, _ := NewMessage(MessageType(game.EventTypeRoomsList), RoomListData{
		Rooms: c.rooms.ListRooms(),
	})
	_ = c.SendMessage(response)
}
