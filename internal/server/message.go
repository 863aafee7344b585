package server

import (
	"encoding/json"
	"time"

	"github.com/cartculus/server/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
	RoomName   string `json:"roomName,omitempty"`
}

type LeaveRoomData struct {
	RoomID string `json:"roomId"`
}

type StartRoundData struct {
	RoomID string `json:"roomId"`
}

type DealLoadedData struct {
	RoomID string `json:"roomId"`
}

type DeclareFinishData struct {
	RoomID string `json:"roomId"`
	// Solution is the arithmetic expression the player claims reaches the
	// target; carried for display only, the server does not evaluate it.
	Solution string `json:"solution,omitempty"`
}

type DeclareNoSolutionData struct {
	RoomID string `json:"roomId"`
}

type SkipVoteData struct {
	RoomID         string `json:"roomId"`
	OriginPlayerID string `json:"originPlayerId"`
}

type RequestReshuffleData struct {
	RoomID string `json:"roomId"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomJoinedData struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	HostID   string `json:"hostId"`
}

type RoomLeftData struct {
	RoomID string `json:"roomId"`
}

type RoomListData struct {
	Rooms []game.RoomSummary `json:"rooms"`
}
