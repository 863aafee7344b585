package game

import (
	"sort"
	"time"

	"github.com/coder/quartz"
)

// ChallengeKind distinguishes the two timed challenge flows.
type ChallengeKind string

const (
	// ChallengeNoSolution is a player's claim that their hand cannot reach
	// the target. Others may try to solve it or vote to accept the claim.
	ChallengeNoSolution ChallengeKind = "no_solution"
	// ChallengeReveal exposes the last unfinished player's hand so everyone
	// else can attempt it before the round ends.
	ChallengeReveal ChallengeKind = "reveal"
)

// Challenge is a timed, room-wide sub-process. At most one is live per room;
// the Room's single challenge slot enforces mutual exclusion between kinds.
type Challenge struct {
	Kind      ChallengeKind
	OriginID  string
	ExpiresAt time.Time

	votes map[string]bool
	timer *quartz.Timer
}

func newChallenge(kind ChallengeKind, originID string, expiresAt time.Time) *Challenge {
	return &Challenge{
		Kind:      kind,
		OriginID:  originID,
		ExpiresAt: expiresAt,
		votes:     make(map[string]bool),
	}
}

// addVote records a skip vote. Double votes collapse into one.
func (c *Challenge) addVote(playerID string) {
	c.votes[playerID] = true
}

// voteList returns the voters in stable order for broadcasts.
func (c *Challenge) voteList() []string {
	out := make([]string, 0, len(c.votes))
	for id := range c.votes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// allOthersVoted reports whether every active player other than the origin
// has cast a skip vote.
func (c *Challenge) allOthersVoted(r *Room) bool {
	voted := false
	for _, p := range r.Players {
		if p.ID == c.OriginID || !p.ActiveInRound {
			continue
		}
		if !c.votes[p.ID] {
			return false
		}
		voted = true
	}
	return voted
}

// stop cancels the expiry timer. Stopping first is what makes every
// resolution path race-free: once stopped, the expiry callback either never
// runs or finds the challenge slot already cleared.
func (c *Challenge) stop() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
