package game

import (
	"errors"
	rand "math/rand/v2"
	"sort"
	"sync"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// ErrRoomFull is returned when a join would push a room past its player cap.
var ErrRoomFull = errors.New("room is full")

// Rooms orchestrates the full room/round lifecycle: membership, dealing,
// finish tracking, the two challenge flows, scoring and auto-advance. It owns
// the RoomStore and publishes every externally visible change through the
// EventSink.
//
// All state mutation for a room happens under that room's lock, held for the
// duration of one inbound event or timer callback. Timer callbacks re-fetch
// the room and re-validate their condition before touching anything, so a
// callback firing after its condition was resolved another way is a no-op.
type Rooms struct {
	store  *RoomStore
	sink   EventSink
	clock  quartz.Clock
	cfg    Config
	logger zerolog.Logger

	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewRooms constructs the orchestrator. The clock is injected so tests can
// drive challenge and advance timers with a mock.
func NewRooms(logger zerolog.Logger, store *RoomStore, sink EventSink, clock quartz.Clock, rng *rand.Rand, cfg Config) *Rooms {
	return &Rooms{
		store:  store,
		sink:   sink,
		clock:  clock,
		cfg:    cfg,
		logger: logger.With().Str("component", "rooms").Logger(),
		rng:    rng,
	}
}

// ensureLocked returns the room locked, creating it if absent. Retries if the
// room was deleted between lookup and lock acquisition.
func (rs *Rooms) ensureLocked(roomID string) *Room {
	for {
		r := rs.store.Ensure(roomID)
		r.lock()
		if rs.store.Get(roomID) == r {
			return r
		}
		r.unlock()
	}
}

// getLocked returns the locked room, or nil if it does not exist. Every timer
// callback enters through here, which is what keeps callbacks for deleted
// rooms harmless.
func (rs *Rooms) getLocked(roomID string) *Room {
	for {
		r := rs.store.Get(roomID)
		if r == nil {
			return nil
		}
		r.lock()
		if rs.store.Get(roomID) == r {
			return r
		}
		r.unlock()
	}
}

// JoinRoom registers a player. If a round is in progress the newcomer sits
// out until the next deal but immediately receives a view of the room.
func (rs *Rooms) JoinRoom(roomID, playerID, playerName, roomName string) (PlayerInfo, error) {
	r := rs.ensureLocked(roomID)

	if _, rejoining := r.Players[playerID]; !rejoining && len(r.Players) >= rs.cfg.MaxPlayersPerRoom {
		empty := len(r.Players) == 0
		r.unlock()
		if empty {
			rs.store.Remove(roomID)
		}
		return PlayerInfo{}, ErrRoomFull
	}

	p := r.addPlayer(playerID, playerName)
	if roomName != "" && r.Name == "" {
		r.Name = roomName
	}
	rs.logger.Info().Str("room", roomID).Str("player", playerID).Str("name", playerName).Msg("Player joined room")

	rs.emitLobbyLocked(r)

	// Bring the joiner up to speed with whatever phase the room is in.
	switch {
	case r.pendingDeal != nil:
		rs.sink.Unicast(playerID, DealPendingEvent{
			RoomID: r.ID,
			Hand:   r.pendingDeal.HandFor(playerID),
			Target: r.pendingDeal.Target,
		})
	case r.Deal != nil:
		rs.sink.Unicast(playerID, rs.stateSyncLocked(r, playerID))
	}

	info := PlayerInfo{PlayerID: p.ID, Name: p.Name, Finished: p.FinishedStatus != StatusNone}
	r.unlock()

	rs.broadcastRoomsList()
	return info, nil
}

// LeaveRoom removes a player, reassigning the host and deleting the room if
// it is now empty.
func (rs *Rooms) LeaveRoom(roomID, playerID string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	empty := rs.removePlayerLocked(r, playerID)
	r.unlock()
	if empty {
		rs.store.Remove(roomID)
		rs.logger.Info().Str("room", roomID).Msg("Room deleted, last player left")
	}
	rs.broadcastRoomsList()
}

// Disconnect removes the player from every room they are in; the transport
// calls this when a connection drops.
func (rs *Rooms) Disconnect(playerID string) {
	for _, r := range rs.store.Snapshot() {
		r.lock()
		if rs.store.Get(r.ID) != r {
			r.unlock()
			continue
		}
		if _, ok := r.Players[playerID]; !ok {
			r.unlock()
			continue
		}
		empty := rs.removePlayerLocked(r, playerID)
		roomID := r.ID
		r.unlock()
		if empty {
			rs.store.Remove(roomID)
			rs.logger.Info().Str("room", roomID).Msg("Room deleted, last player disconnected")
		}
	}
	rs.broadcastRoomsList()
}

// removePlayerLocked is the shared removal path for leave and disconnect.
// Returns true when the room emptied; the caller then drops it from the
// store.
func (rs *Rooms) removePlayerLocked(r *Room, playerID string) bool {
	if _, ok := r.Players[playerID]; !ok {
		return false
	}

	// If the origin of a live challenge is leaving, the challenge dies with
	// them; nobody stays parked waiting on an adjudication that can never
	// happen.
	if ch := r.challenge; ch != nil && ch.OriginID == playerID {
		ch.stop()
		r.challenge = nil
		rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
			Kind:           ch.Kind,
			OriginPlayerID: ch.OriginID,
			Cancelled:      true,
		})
	}

	empty := r.removePlayer(playerID)
	rs.logger.Info().Str("room", r.ID).Str("player", playerID).Int("remaining", len(r.Players)).Msg("Player removed from room")
	if empty {
		r.cancelTimers()
		return true
	}

	// The departed player may have been the last holdout for a skip vote or
	// the deal-loading handshake, and the round shape just changed.
	if ch := r.challenge; ch != nil && ch.allOthersVoted(r) {
		rs.resolveBySkipLocked(r, ch)
	}
	rs.recheckPendingLocked(r)
	rs.scheduleAdvanceIfAllWaitingLocked(r)
	rs.checkRevealTriggerLocked(r)
	rs.emitLobbyLocked(r)
	return false
}

// StartRound deals a fresh round; only the host may trigger it.
func (rs *Rooms) StartRound(roomID, playerID string) error {
	r := rs.getLocked(roomID)
	if r == nil {
		return nil
	}
	defer r.unlock()
	if r.HostID != playerID {
		rs.logger.Debug().Str("room", roomID).Str("player", playerID).Msg("Ignoring start from non-host")
		return nil
	}
	return rs.startRoundLocked(r)
}

// RequestReshuffle manually deals a new round through the same path as the
// automatic advance.
func (rs *Rooms) RequestReshuffle(roomID string) error {
	r := rs.getLocked(roomID)
	if r == nil {
		return nil
	}
	defer r.unlock()
	return rs.startRoundLocked(r)
}

// startRoundLocked resets per-round player state, deals target and hands and
// opens the loading handshake. Any timers from the prior round are cancelled
// first so stale challenge or advance state never bleeds into the new deal.
func (rs *Rooms) startRoundLocked(r *Room) error {
	if HandSize*len(r.Players)+1 > DeckSize {
		rs.logger.Warn().Str("room", r.ID).Int("players", len(r.Players)).Msg("Cannot deal round, too many players for deck")
		return ErrInsufficientCards
	}

	r.cancelAdvance()
	r.cancelPending()
	r.cancelChallenge()

	for _, p := range r.Players {
		p.FinishedStatus = StatusNone
		p.RoundFinished = false
		p.SolvedCount = 0
		p.ActiveInRound = true
	}

	deal := &Deal{Hands: make(map[string][]Card, len(r.Players))}
	rs.rngMu.Lock()
	deck := NewDeck(rs.rng)
	deal.Target = deck.DrawTarget()
	for id := range r.Players {
		hand, err := deck.DealHand()
		if err != nil {
			rs.rngMu.Unlock()
			return err
		}
		deal.Hands[id] = hand
	}
	rs.rngMu.Unlock()

	r.Deal = deal
	r.pendingDeal = deal
	r.pendingLoaded = make(map[string]bool)

	rs.logger.Info().Str("room", r.ID).Int("target", deal.Target).Int("players", len(r.Players)).Msg("Round dealt")

	for id := range r.Players {
		rs.sink.Unicast(id, DealPendingEvent{RoomID: r.ID, Hand: deal.Hands[id], Target: deal.Target})
	}
	rs.sink.Broadcast(r.ID, PendingStatusEvent{LoadedCount: 0, Total: len(r.Players)})

	roomID := r.ID
	r.pendingTimer = rs.clock.AfterFunc(rs.cfg.DealLoadingWindow, func() {
		rs.dealLoadingExpired(roomID)
	})

	rs.emitLobbyLocked(r)
	return nil
}

// DealLoaded records a player's confirmation that their hand rendered; once
// everyone has confirmed the riddle is revealed early.
func (rs *Rooms) DealLoaded(roomID, playerID string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()
	if r.pendingDeal == nil {
		return
	}
	if _, ok := r.Players[playerID]; !ok {
		return
	}
	r.pendingLoaded[playerID] = true
	rs.sink.Broadcast(r.ID, PendingStatusEvent{LoadedCount: rs.loadedCountLocked(r), Total: len(r.Players)})
	rs.recheckPendingLocked(r)
}

// dealLoadingExpired is the loading-window timer callback.
func (rs *Rooms) dealLoadingExpired(roomID string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()
	r.pendingTimer = nil
	rs.revealPendingLocked(r)
}

// loadedCountLocked counts confirmations from players still in the room so a
// leaver's stale confirmation cannot inflate progress.
func (rs *Rooms) loadedCountLocked(r *Room) int {
	n := 0
	for id := range r.Players {
		if r.pendingLoaded[id] {
			n++
		}
	}
	return n
}

// recheckPendingLocked reveals the deal early if the current player set has
// fully confirmed; membership changes can satisfy the condition too.
func (rs *Rooms) recheckPendingLocked(r *Room) {
	if r.pendingDeal == nil || len(r.Players) == 0 {
		return
	}
	if rs.loadedCountLocked(r) == len(r.Players) {
		rs.revealPendingLocked(r)
	}
}

// revealPendingLocked broadcasts the full public deal and closes the loading
// phase. No-op when nothing is pending.
func (rs *Rooms) revealPendingLocked(r *Room) {
	if r.pendingDeal == nil {
		return
	}
	deal := r.pendingDeal
	r.cancelPending()
	rs.sink.Broadcast(r.ID, RoundRevealedEvent{Deal: deal})
	rs.emitLobbyLocked(r)
}

// DeclareFinish is the scoring path. The solution evidence is opaque here;
// arithmetic validation lives client-side and the core trusts the signal.
//
// With a challenge live for a different origin, the call is a challenge
// solve: the challenge is cancelled, its origin loses the round, and the
// solver is scored without being round-finished. Duplicate or late calls are
// silent no-ops, they are ordinary races in this event model.
func (rs *Rooms) DeclareFinish(roomID, playerID, evidence string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()

	p := r.Players[playerID]
	if p == nil || r.Deal == nil {
		return
	}

	ch := r.challenge
	challengeSolve := ch != nil && ch.OriginID != playerID

	if p.RoundFinished && !challengeSolve {
		return
	}

	pts := NextAward(r)
	r.Scores[playerID] += pts
	p.SolvedCount++
	rs.logger.Info().Str("room", r.ID).Str("player", playerID).Int("points", pts).Bool("challengeSolve", challengeSolve).Msg("Finish scored")

	reason := ReasonWin
	if challengeSolve {
		if ch.Kind == ChallengeNoSolution {
			reason = ReasonNoSolutionChallenge
		} else {
			reason = ReasonRevealChallenge
		}
		// Cancel first, then settle the origin: the origin loses their
		// chance this round while the solver keeps playing.
		ch.stop()
		r.challenge = nil
		r.markRoundFinished(ch.OriginID)
		rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
			Kind:           ch.Kind,
			OriginPlayerID: ch.OriginID,
			ResolvedBy:     playerID,
		})
		if !p.RoundFinished {
			rs.sink.Unicast(playerID, rs.stateSyncLocked(r, playerID))
		}
	} else {
		if ch != nil {
			// The origin solved their own hand mid-window; the pending
			// challenge is moot.
			ch.stop()
			r.challenge = nil
			rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
				Kind:           ch.Kind,
				OriginPlayerID: ch.OriginID,
				Cancelled:      true,
				ResolvedBy:     playerID,
			})
		}
		p.FinishedStatus = StatusSolved
		r.markRoundFinished(playerID)
	}

	rs.sink.Broadcast(r.ID, ScoreUpdateEvent{Scores: copyScores(r.Scores), AwardedTo: playerID, Reason: reason})
	rs.emitLobbyLocked(r)
	rs.scheduleAdvanceIfAllWaitingLocked(r)
	rs.checkRevealTriggerLocked(r)
}

// DeclareNoSolution opens a no-solution challenge for the caller's hand.
// Rejected while any challenge is live, or when the caller cannot act.
func (rs *Rooms) DeclareNoSolution(roomID, playerID string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()

	p := r.Players[playerID]
	if p == nil || !p.CanAct() || r.Deal == nil {
		return
	}
	if r.challenge != nil {
		rs.logger.Debug().Str("room", r.ID).Str("player", playerID).Msg("Ignoring no-solution declare, challenge already active")
		return
	}
	rs.startChallengeLocked(r, ChallengeNoSolution, playerID)
}

// VoteSkip registers a skip vote against the live challenge. When every
// active player other than the origin has voted, resolution fires
// immediately instead of waiting for the deadline.
func (rs *Rooms) VoteSkip(roomID, playerID, originPlayerID string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()

	ch := r.challenge
	if ch == nil || ch.OriginID != originPlayerID {
		return
	}
	voter := r.Players[playerID]
	if voter == nil || playerID == ch.OriginID || !voter.ActiveInRound {
		return
	}

	ch.addVote(playerID)
	rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
		Kind:           ch.Kind,
		OriginPlayerID: ch.OriginID,
		ExpiresAt:      expiresAtMillis(ch.ExpiresAt),
		Votes:          ch.voteList(),
		OriginHand:     r.Deal.HandFor(ch.OriginID),
	})

	if ch.allOthersVoted(r) {
		rs.resolveBySkipLocked(r, ch)
	}
}

// ListRooms returns the room directory.
func (rs *Rooms) ListRooms() []RoomSummary {
	rooms := rs.store.Snapshot()
	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		r.lock()
		out = append(out, RoomSummary{
			RoomID:      r.ID,
			RoomName:    r.Name,
			PlayerCount: len(r.Players),
			HostID:      r.HostID,
		})
		r.unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// startChallengeLocked installs a challenge and arms its expiry timer.
// Starting the same challenge twice is a no-op; a stale challenge for a
// different origin is cancelled and replaced, never stacked.
func (rs *Rooms) startChallengeLocked(r *Room, kind ChallengeKind, originID string) {
	if c := r.challenge; c != nil {
		if c.Kind == kind && c.OriginID == originID {
			return
		}
		c.stop()
		r.challenge = nil
	}

	ch := newChallenge(kind, originID, rs.clock.Now().Add(rs.cfg.ChallengeWindow))
	r.challenge = ch

	if kind == ChallengeNoSolution {
		// The origin's cards are out of play while the claim is pending.
		r.markWaiting(originID)
	}

	roomID := r.ID
	ch.timer = rs.clock.AfterFunc(rs.cfg.ChallengeWindow, func() {
		rs.expireChallenge(roomID, ch)
	})

	rs.logger.Info().Str("room", r.ID).Str("kind", string(kind)).Str("origin", originID).Time("expiresAt", ch.ExpiresAt).Msg("Challenge started")
	rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
		Kind:           kind,
		OriginPlayerID: originID,
		ExpiresAt:      expiresAtMillis(ch.ExpiresAt),
		OriginHand:     r.Deal.HandFor(originID),
	})
	rs.emitLobbyLocked(r)
}

// expireChallenge is the challenge deadline callback. The identity check
// against the room's slot makes a late firing after an earlier resolution a
// no-op.
func (rs *Rooms) expireChallenge(roomID string, ch *Challenge) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()
	if r.challenge != ch {
		return
	}
	r.challenge = nil
	rs.logger.Info().Str("room", r.ID).Str("kind", string(ch.Kind)).Str("origin", ch.OriginID).Msg("Challenge expired")

	switch ch.Kind {
	case ChallengeNoSolution:
		// The claim stood: the origin collects the next award.
		rs.awardChallengeLocked(r, ch, ReasonNoSolutionTimeout, ChallengeUpdateEvent{
			Kind:           ch.Kind,
			OriginPlayerID: ch.OriginID,
			Expired:        true,
			OriginHand:     r.Deal.HandFor(ch.OriginID),
		})
	case ChallengeReveal:
		// Nobody solved the revealed hand: no points, the round just ends
		// for the origin.
		r.markRoundFinished(ch.OriginID)
		rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
			Kind:           ch.Kind,
			OriginPlayerID: ch.OriginID,
			Expired:        true,
		})
		rs.emitLobbyLocked(r)
	}

	rs.scheduleAdvanceIfAllWaitingLocked(r)
	rs.checkRevealTriggerLocked(r)
}

// resolveBySkipLocked ends a challenge early once all other active players
// voted to skip. Timer is stopped before any state changes.
func (rs *Rooms) resolveBySkipLocked(r *Room, ch *Challenge) {
	ch.stop()
	r.challenge = nil
	rs.logger.Info().Str("room", r.ID).Str("kind", string(ch.Kind)).Str("origin", ch.OriginID).Msg("Challenge skipped by vote")

	switch ch.Kind {
	case ChallengeNoSolution:
		rs.awardChallengeLocked(r, ch, ReasonNoSolutionSkip, ChallengeUpdateEvent{
			Kind:           ch.Kind,
			OriginPlayerID: ch.OriginID,
			Skipped:        true,
			OriginHand:     r.Deal.HandFor(ch.OriginID),
		})
	case ChallengeReveal:
		r.markRoundFinished(ch.OriginID)
		rs.sink.Broadcast(r.ID, ChallengeUpdateEvent{
			Kind:           ch.Kind,
			OriginPlayerID: ch.OriginID,
			Expired:        true,
			Skipped:        true,
		})
		rs.emitLobbyLocked(r)
	}

	rs.scheduleAdvanceIfAllWaitingLocked(r)
	rs.checkRevealTriggerLocked(r)
}

// awardChallengeLocked settles a no-solution challenge in the origin's
// favour: award computed at resolution time, origin round-finished, everyone
// else gets their own hand back.
func (rs *Rooms) awardChallengeLocked(r *Room, ch *Challenge, reason ScoreReason, update ChallengeUpdateEvent) {
	pts := NextAward(r)
	r.Scores[ch.OriginID] += pts
	if p := r.Players[ch.OriginID]; p != nil {
		p.SolvedCount++
		p.FinishedStatus = StatusSolved
	}
	r.markRoundFinished(ch.OriginID)

	rs.sink.Broadcast(r.ID, update)
	rs.sink.Broadcast(r.ID, ScoreUpdateEvent{Scores: copyScores(r.Scores), AwardedTo: ch.OriginID, Reason: reason})
	for id, p := range r.Players {
		if id == ch.OriginID || !p.CanAct() {
			continue
		}
		rs.sink.Unicast(id, rs.stateSyncLocked(r, id))
	}
	rs.emitLobbyLocked(r)
}

// scheduleAdvanceIfAllWaitingLocked debounces the automatic next round. The
// timer is armed at most once; the condition is re-validated when it fires
// because membership and state can change during the delay.
func (rs *Rooms) scheduleAdvanceIfAllWaitingLocked(r *Room) {
	if r.pendingDeal != nil || r.advanceTimer != nil || r.challenge != nil {
		return
	}
	if !r.allActiveFinished() {
		return
	}
	roomID := r.ID
	r.advanceTimer = rs.clock.AfterFunc(rs.cfg.RoundAdvanceDelay, func() {
		rs.advanceRound(roomID)
	})
	rs.logger.Debug().Str("room", r.ID).Dur("delay", rs.cfg.RoundAdvanceDelay).Msg("All players waiting, next round scheduled")
}

// advanceRound is the debounced next-round callback.
func (rs *Rooms) advanceRound(roomID string) {
	r := rs.getLocked(roomID)
	if r == nil {
		return
	}
	defer r.unlock()
	r.advanceTimer = nil
	if r.pendingDeal != nil || r.challenge != nil || !r.allActiveFinished() {
		return
	}
	if err := rs.startRoundLocked(r); err != nil {
		rs.logger.Error().Err(err).Str("room", roomID).Msg("Auto-advance failed to deal")
	}
}

// checkRevealTriggerLocked starts a reveal challenge when exactly one active
// player can still act and no other challenge is live.
func (rs *Rooms) checkRevealTriggerLocked(r *Room) {
	if r.challenge != nil || r.Deal == nil || r.pendingDeal != nil {
		return
	}
	unfinished := r.unfinishedActive()
	if len(unfinished) != 1 {
		return
	}
	rs.startChallengeLocked(r, ChallengeReveal, unfinished[0].ID)
}

func (rs *Rooms) emitLobbyLocked(r *Room) {
	rs.sink.Broadcast(r.ID, rs.lobbyEventLocked(r))
}

func (rs *Rooms) lobbyEventLocked(r *Room) LobbyUpdateEvent {
	players := make([]PlayerInfo, 0, len(r.Players))
	active, finished := 0, 0
	for _, p := range r.Players {
		players = append(players, PlayerInfo{
			PlayerID: p.ID,
			Name:     p.Name,
			Finished: p.FinishedStatus != StatusNone,
		})
		if p.ActiveInRound {
			active++
			if p.RoundFinished {
				finished++
			}
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].PlayerID < players[j].PlayerID })
	return LobbyUpdateEvent{
		Players:       players,
		Scores:        copyScores(r.Scores),
		HostID:        r.HostID,
		RoomName:      r.Name,
		ActiveCount:   active,
		FinishedCount: finished,
	}
}

func (rs *Rooms) stateSyncLocked(r *Room, playerID string) StateSyncEvent {
	ev := StateSyncEvent{Scores: copyScores(r.Scores)}
	if r.Deal != nil {
		ev.Cards = r.Deal.HandFor(playerID)
		ev.Target = r.Deal.Target
	}
	return ev
}

func (rs *Rooms) broadcastRoomsList() {
	rs.sink.BroadcastAll(RoomsListEvent{Rooms: rs.ListRooms()})
}

// copyScores snapshots the score map so a broadcast serialised later cannot
// observe mutations made after the event was published.
func copyScores(scores map[string]int) map[string]int {
	out := make(map[string]int, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}
