package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartculus/server/internal/game"
	"github.com/cartculus/server/internal/randutil"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv := NewServer("127.0.0.1:0", zerolog.Nop())
	store := game.NewRoomStore()
	rooms := game.NewRooms(zerolog.Nop(), store, srv, quartz.NewReal(), randutil.New(42), game.DefaultConfig())
	srv.SetRooms(rooms)

	go srv.run()
	ts := httptest.NewServer(http.HandlerFunc(srv.handleWebSocket))
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return srv, ts
}

func dialTestServer(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages off the socket until one of the wanted type
// arrives, failing the test if it does not show up in time.
func readUntil(t *testing.T, conn *websocket.Conn, want MessageType) *Message {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", want)
		if msg.Type == want {
			return &msg
		}
	}
}

func TestServerHealth(t *testing.T) {
	t.Parallel()
	srv := NewServer("127.0.0.1:0", zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestWebSocketJoinFlow(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	conn := dialTestServer(t, ts)

	join, err := NewMessage(MessageTypeJoinRoom, JoinRoomData{
		RoomID:     "r1",
		PlayerName: "Alice",
		RoomName:   "test room",
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(join))

	msg := readUntil(t, conn, MessageTypeRoomJoined)
	var joined RoomJoinedData
	require.NoError(t, json.Unmarshal(msg.Data, &joined))
	assert.Equal(t, "r1", joined.RoomID)
	assert.NotEmpty(t, joined.PlayerID)
	assert.Equal(t, joined.PlayerID, joined.HostID, "first joiner hosts the room")
	assert.Equal(t, "Alice", joined.Name)

	// A second client joining pushes a fresh lobby view to the first.
	conn2 := dialTestServer(t, ts)
	join2, err := NewMessage(MessageTypeJoinRoom, JoinRoomData{RoomID: "r1", PlayerName: "Bob"})
	require.NoError(t, err)
	require.NoError(t, conn2.WriteJSON(join2))
	readUntil(t, conn2, MessageTypeRoomJoined)

	for {
		msg := readUntil(t, conn, MessageType(game.EventTypeLobbyUpdate))
		var lobby game.LobbyUpdateEvent
		require.NoError(t, json.Unmarshal(msg.Data, &lobby))
		if len(lobby.Players) == 2 {
			assert.Equal(t, joined.PlayerID, lobby.HostID)
			assert.Equal(t, "test room", lobby.RoomName)
			break
		}
	}
}

func TestWebSocketStartRoundDealsHands(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	conn := dialTestServer(t, ts)
	join, err := NewMessage(MessageTypeJoinRoom, JoinRoomData{RoomID: "solo", PlayerName: "Alice"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(join))
	readUntil(t, conn, MessageTypeRoomJoined)

	start, err := NewMessage(MessageTypeStartRound, StartRoundData{RoomID: "solo"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(start))

	msg := readUntil(t, conn, MessageType(game.EventTypeDealPending))
	var deal game.DealPendingEvent
	require.NoError(t, json.Unmarshal(msg.Data, &deal))
	assert.Equal(t, "solo", deal.RoomID)
	assert.Len(t, deal.Hand, game.HandSize)
	assert.GreaterOrEqual(t, deal.Target, 1)

	loaded, err := NewMessage(MessageTypeDealLoaded, DealLoadedData{RoomID: "solo"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(loaded))

	msg = readUntil(t, conn, MessageType(game.EventTypeRoundRevealed))
	var revealed game.RoundRevealedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &revealed))
	require.NotNil(t, revealed.Deal)
	assert.Equal(t, deal.Target, revealed.Deal.Target)
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	conn := dialTestServer(t, ts)
	bogus, err := NewMessage(MessageType("make_coffee"), struct{}{})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(bogus))

	msg := readUntil(t, conn, MessageTypeError)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &errData))
	assert.Equal(t, "unknown_message_type", errData.Code)
}
