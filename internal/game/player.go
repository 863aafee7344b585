package game

// FinishedStatus tracks where a player stands within the current round.
type FinishedStatus string

const (
	// StatusNone means the player has not acted this round.
	StatusNone FinishedStatus = "none"
	// StatusSolved is set immediately after a scoring event.
	StatusSolved FinishedStatus = "solved"
	// StatusWaiting means the player can no longer act this round, or is
	// awaiting adjudication of a challenge they originated.
	StatusWaiting FinishedStatus = "waiting"
)

// Player is a member of a single room.
type Player struct {
	ID   string
	Name string

	FinishedStatus FinishedStatus

	// RoundFinished is true once the player can make no further move this
	// round. A challenge origin can be waiting without being round-finished,
	// which is why the two fields are tracked separately. Invariant:
	// RoundFinished implies FinishedStatus != StatusNone.
	RoundFinished bool

	// SolvedCount is the number of scoring events this player achieved in
	// the current round. Reset at each deal. The sum across all players is
	// the round-wide award counter used by NextAward.
	SolvedCount int

	// ActiveInRound is true if the player received a hand at deal time.
	// Mid-round joiners stay inactive until the next deal.
	ActiveInRound bool
}

// CanAct reports whether the player may still act in the current round.
func (p *Player) CanAct() bool {
	return p.ActiveInRound && !p.RoundFinished
}
