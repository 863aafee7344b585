// Package game implements the core room and round lifecycle for the
// Cartculus number-puzzle game.
//
// The main type is Rooms, which orchestrates membership, dealing, per-player
// finish tracking, the two timed challenge flows (no-solution and reveal) and
// scoring across a RoomStore of independent rooms.
//
// # Basic Usage
//
// Construct the orchestrator with an explicit store, event sink, clock and
// RNG:
//
//	store := game.NewRoomStore()
//	rooms := game.NewRooms(logger, store, sink, quartz.NewReal(), rng, game.DefaultConfig())
//	rooms.JoinRoom("room-1", connID, "Alice", "Friday puzzles")
//
// Inbound player actions map one-to-one onto Rooms methods; every externally
// visible change comes back through the EventSink.
//
// # Deterministic Testing
//
// Both sources of nondeterminism are injected: dealing takes a *rand.Rand
// (use internal/randutil.New for a seeded one) and all timers run on a
// quartz.Clock, so tests drive challenge expiry and round auto-advance with
// quartz.NewMock instead of wall-clock waits.
//
// # Concurrency
//
// Each Room carries its own mutex, held for the duration of handling one
// inbound event or timer callback. Rooms never touch each other's state, so
// there is no global lock. Timer callbacks re-fetch their room and
// re-validate their trigger condition before mutating anything; resolution
// paths stop the relevant timer before changing state, which keeps the
// solve-versus-timeout race benign.
package game
