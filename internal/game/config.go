package game

import "time"

// Config tunes the room lifecycle timers and limits.
type Config struct {
	// ChallengeWindow is how long a no-solution or reveal challenge stays
	// open before it resolves by timeout.
	ChallengeWindow time.Duration

	// RoundAdvanceDelay is the debounce before the next round is dealt once
	// every active player is waiting; long enough for straggling broadcasts
	// to settle, short enough to feel immediate.
	RoundAdvanceDelay time.Duration

	// DealLoadingWindow bounds the loading handshake: the riddle is revealed
	// when every player confirms or this much time passes.
	DealLoadingWindow time.Duration

	// MaxPlayersPerRoom caps membership; the 52-card deck supports 12.
	MaxPlayersPerRoom int
}

// DefaultConfig returns the stock lifecycle tuning.
func DefaultConfig() Config {
	return Config{
		ChallengeWindow:   30 * time.Second,
		RoundAdvanceDelay: 1500 * time.Millisecond,
		DealLoadingWindow: 8 * time.Second,
		MaxPlayersPerRoom: 12,
	}
}
