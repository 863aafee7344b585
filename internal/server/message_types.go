package server

// Note: Game events (lobby_update, challenge_update, etc.) are defined in
// internal/game/events.go and are also sent as WebSocket messages

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeJoinRoom          MessageType = "join_room"
	MessageTypeLeaveRoom         MessageType = "leave_room"
	MessageTypeListRooms         MessageType = "list_rooms"
	MessageTypeStartRound        MessageType = "start_round"
	MessageTypeDealLoaded        MessageType = "deal_loaded"
	MessageTypeDeclareFinish     MessageType = "declare_finish"
	MessageTypeDeclareNoSolution MessageType = "declare_no_solution"
	MessageTypeSkipVote          MessageType = "skip_vote"
	MessageTypeRequestReshuffle  MessageType = "request_reshuffle"

	// Server to client messages
	MessageTypeError      MessageType = "error"
	MessageTypeRoomJoined MessageType = "room_joined"
	MessageTypeRoomLeft   MessageType = "room_left"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
