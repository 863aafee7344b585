package game

import "time"

// EventType identifies an outbound event with type safety.
type EventType string

const (
	EventTypeLobbyUpdate     EventType = "lobby_update"
	EventTypeRoomsList       EventType = "rooms_list"
	EventTypeDealPending     EventType = "deal_pending"
	EventTypePendingStatus   EventType = "pending_status"
	EventTypeRoundRevealed   EventType = "round_revealed"
	EventTypeStateSync       EventType = "state_sync"
	EventTypeScoreUpdate     EventType = "score_update"
	EventTypeChallengeUpdate EventType = "challenge_update"
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	return string(et)
}

// Event is anything the room core publishes toward clients. The transport
// layer turns events into wire messages; the core never touches the wire.
type Event interface {
	EventType() EventType
}

// EventSink receives outbound events from the room core. The websocket server
// implements it; tests substitute a recording fake.
type EventSink interface {
	// Broadcast delivers an event to every member of a room.
	Broadcast(roomID string, ev Event)
	// Unicast delivers an event to a single player.
	Unicast(playerID string, ev Event)
	// BroadcastAll delivers an event to every connected client, member of a
	// room or not; used for the room directory.
	BroadcastAll(ev Event)
}

// PlayerInfo is the public view of a room member.
type PlayerInfo struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Finished bool   `json:"finished"`
}

// LobbyUpdateEvent carries the public room state after any membership or
// round-progress change.
type LobbyUpdateEvent struct {
	Players       []PlayerInfo   `json:"players"`
	Scores        map[string]int `json:"scores"`
	HostID        string         `json:"hostId,omitempty"`
	RoomName      string         `json:"roomName,omitempty"`
	ActiveCount   int            `json:"activeCount"`
	FinishedCount int            `json:"finishedCount"`
}

func (LobbyUpdateEvent) EventType() EventType { return EventTypeLobbyUpdate }

// RoomsListEvent is the room directory for lobby browsing.
type RoomsListEvent struct {
	Rooms []RoomSummary `json:"rooms"`
}

func (RoomsListEvent) EventType() EventType { return EventTypeRoomsList }

// DealPendingEvent is unicast per player: their own hand plus the shared
// target, sent while the loading phase runs.
type DealPendingEvent struct {
	RoomID string `json:"roomId"`
	Hand   []Card `json:"hand"`
	Target int    `json:"target"`
}

func (DealPendingEvent) EventType() EventType { return EventTypeDealPending }

// PendingStatusEvent reports deal-loading progress.
type PendingStatusEvent struct {
	LoadedCount int `json:"loadedCount"`
	Total       int `json:"total"`
}

func (PendingStatusEvent) EventType() EventType { return EventTypePendingStatus }

// RoundRevealedEvent broadcasts the full public deal once the loading phase
// completes.
type RoundRevealedEvent struct {
	Deal *Deal `json:"deal"`
}

func (RoundRevealedEvent) EventType() EventType { return EventTypeRoundRevealed }

// StateSyncEvent is a unicast snapshot for a player who needs their view
// rebuilt: a joiner mid-round, or a challenge solver getting their hand back.
type StateSyncEvent struct {
	Cards  []Card         `json:"cards"`
	Target int            `json:"target,omitempty"`
	Scores map[string]int `json:"scores"`
}

func (StateSyncEvent) EventType() EventType { return EventTypeStateSync }

// ScoreReason says why points were awarded.
type ScoreReason string

const (
	ReasonWin                 ScoreReason = "win"
	ReasonNoSolutionChallenge ScoreReason = "no_solution_challenge"
	ReasonRevealChallenge     ScoreReason = "reveal_challenge"
	ReasonNoSolutionTimeout   ScoreReason = "no_solution_timeout"
	ReasonNoSolutionSkip      ScoreReason = "no_solution_skip"
)

// ScoreUpdateEvent broadcasts the score table after an award.
type ScoreUpdateEvent struct {
	Scores    map[string]int `json:"scores"`
	AwardedTo string         `json:"awardedTo"`
	Reason    ScoreReason    `json:"reason"`
}

func (ScoreUpdateEvent) EventType() EventType { return EventTypeScoreUpdate }

// ChallengeUpdateEvent broadcasts the state of the room's challenge: start
// (with deadline), vote progress, and every way it can end.
type ChallengeUpdateEvent struct {
	Kind           ChallengeKind `json:"kind"`
	OriginPlayerID string        `json:"originPlayerId"`
	ExpiresAt      int64         `json:"expiresAt,omitempty"` // unix millis
	Expired        bool          `json:"expired,omitempty"`
	Skipped        bool          `json:"skipped,omitempty"`
	Cancelled      bool          `json:"cancelled,omitempty"`
	ResolvedBy     string        `json:"resolvedBy,omitempty"`
	Votes          []string      `json:"votes,omitempty"`
	OriginHand     []Card        `json:"originHand,omitempty"`
}

func (ChallengeUpdateEvent) EventType() EventType { return EventTypeChallengeUpdate }

func expiresAtMillis(t time.Time) int64 {
	return t.UnixMilli()
}
