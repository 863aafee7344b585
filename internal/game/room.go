package game

import (
	"sync"

	"github.com/coder/quartz"
)

// Deal is one round's card distribution. It is created whole at round start
// and replaced whole at the next; never mutated across rounds.
type Deal struct {
	Target int               `json:"target"`
	Hands  map[string][]Card `json:"perPlayerHands"`
}

// HandFor returns the hand dealt to a player, or nil for mid-round joiners.
func (d *Deal) HandFor(playerID string) []Card {
	if d == nil {
		return nil
	}
	return d.Hands[playerID]
}

// Room holds all mutable state for one game room.
//
// All fields are guarded by mu, which is held for the duration of handling a
// single inbound event or timer callback. One mutex per room keeps rooms
// independent under load; there is no cross-room mutation.
type Room struct {
	mu sync.Mutex

	ID      string
	Name    string
	HostID  string
	Players map[string]*Player
	Scores  map[string]int
	Deal    *Deal

	// challenge is the single live challenge slot; no-solution and reveal
	// challenges are mutually exclusive.
	challenge *Challenge

	// Deal-loading handshake: hands have been sent out but the shared
	// riddle is not yet revealed to everyone.
	pendingDeal   *Deal
	pendingLoaded map[string]bool
	pendingTimer  *quartz.Timer

	// advanceTimer debounces the automatic next round once every active
	// player is waiting.
	advanceTimer *quartz.Timer
}

func newRoom(id string) *Room {
	return &Room{
		ID:      id,
		Players: make(map[string]*Player),
		Scores:  make(map[string]int),
	}
}

// lock/unlock are the per-room critical section used by the orchestrator and
// by timer callbacks before they re-validate state.
func (r *Room) lock()   { r.mu.Lock() }
func (r *Room) unlock() { r.mu.Unlock() }

// addPlayer registers a player. If a deal is in progress the newcomer sits
// out until the next round. The first player becomes host.
func (r *Room) addPlayer(playerID, name string) *Player {
	inProgress := r.Deal != nil

	p := &Player{
		ID:             playerID,
		Name:           name,
		FinishedStatus: StatusNone,
	}
	if inProgress {
		p.FinishedStatus = StatusWaiting
		p.RoundFinished = true
	}

	r.Players[playerID] = p
	if _, ok := r.Scores[playerID]; !ok {
		r.Scores[playerID] = 0
	}
	if r.HostID == "" {
		r.HostID = playerID
	}
	return p
}

// removePlayer deletes a player, reassigning the host to an arbitrary
// remaining member if needed. Returns true when the room is now empty.
func (r *Room) removePlayer(playerID string) bool {
	delete(r.Players, playerID)
	if r.HostID == playerID {
		r.HostID = ""
		for id := range r.Players {
			r.HostID = id
			break
		}
	}
	return len(r.Players) == 0
}

// activePlayers returns the players dealt into the current round.
func (r *Room) activePlayers() []*Player {
	var out []*Player
	for _, p := range r.Players {
		if p.ActiveInRound {
			out = append(out, p)
		}
	}
	return out
}

// unfinishedActive returns active players who can still act this round.
func (r *Room) unfinishedActive() []*Player {
	var out []*Player
	for _, p := range r.Players {
		if p.CanAct() {
			out = append(out, p)
		}
	}
	return out
}

// allActiveFinished reports whether every player dealt into this round has
// finished it. Vacuously false with no active players so an empty round never
// auto-advances.
func (r *Room) allActiveFinished() bool {
	active := r.activePlayers()
	if len(active) == 0 {
		return false
	}
	for _, p := range active {
		if !p.RoundFinished {
			return false
		}
	}
	return true
}

// markWaiting parks a player without ending their round; used for the origin
// of a pending no-solution challenge.
func (r *Room) markWaiting(playerID string) {
	if p := r.Players[playerID]; p != nil {
		p.FinishedStatus = StatusWaiting
	}
}

// markRoundFinished ends a player's round. A solved status is preserved so
// the lobby can tell solvers apart from players who merely ran out of road.
func (r *Room) markRoundFinished(playerID string) {
	if p := r.Players[playerID]; p != nil {
		p.RoundFinished = true
		if p.FinishedStatus == StatusNone {
			p.FinishedStatus = StatusWaiting
		}
	}
}

// cancelAdvance stops any pending auto-advance timer.
func (r *Room) cancelAdvance() {
	if r.advanceTimer != nil {
		r.advanceTimer.Stop()
		r.advanceTimer = nil
	}
}

// cancelPending stops the deal-loading timer and clears the handshake state.
func (r *Room) cancelPending() {
	if r.pendingTimer != nil {
		r.pendingTimer.Stop()
		r.pendingTimer = nil
	}
	r.pendingDeal = nil
	r.pendingLoaded = nil
}

// cancelChallenge stops the live challenge timer, if any, and clears the
// slot. Safe to call when no challenge is active.
func (r *Room) cancelChallenge() {
	if r.challenge != nil {
		r.challenge.stop()
		r.challenge = nil
	}
}

// cancelTimers cancels every pending timer tied to this room. Called when the
// room is deleted so no callback can mutate a dead room.
func (r *Room) cancelTimers() {
	r.cancelAdvance()
	r.cancelPending()
	r.cancelChallenge()
}
