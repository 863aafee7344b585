package game

import (
	"errors"
	rand "math/rand/v2"

	"github.com/cartculus/server/internal/gameid"
)

const (
	// DeckSize is the canonical deck: four copies of each value 1..13.
	DeckSize = 52

	// HandSize is the number of cards dealt to each player per round.
	HandSize = 4

	minCardValue = 1
	maxCardValue = 13
)

// ErrInsufficientCards is returned when a round cannot be dealt because the
// deck does not hold a target plus four cards for every player.
var ErrInsufficientCards = errors.New("not enough cards in deck to deal round")

// Card is a single dealt card. Every card gets an ID unique within the deal
// so clients can track individual cards through interaction and replay.
type Card struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

// Deck holds the undealt remainder of a shuffled 52-card deck.
type Deck struct {
	values []int
	rng    *rand.Rand
	ids    *gameid.Generator
}

// NewDeck creates a new shuffled deck with explicit RNG. The same RNG seeds
// card IDs so a seeded server deals reproducibly.
func NewDeck(rng *rand.Rand) *Deck {
	values := make([]int, 0, DeckSize)
	for v := minCardValue; v <= maxCardValue; v++ {
		for c := 0; c < 4; c++ {
			values = append(values, v)
		}
	}

	d := &Deck{
		values: values,
		rng:    rng,
		ids:    gameid.NewGenerator(rng),
	}
	d.shuffle()
	return d
}

// shuffle runs an unbiased Fisher-Yates pass over the remaining cards.
func (d *Deck) shuffle() {
	for i := len(d.values) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.values[i], d.values[j] = d.values[j], d.values[i]
	}
}

// DrawTarget removes a single random card and returns its value. The target
// comes out of the same deck as the hands, so no value can appear more than
// four times across the target and all hands combined.
func (d *Deck) DrawTarget() int {
	i := d.rng.IntN(len(d.values))
	v := d.values[i]
	d.values = append(d.values[:i], d.values[i+1:]...)
	return v
}

// DealHand deals the next HandSize cards.
func (d *Deck) DealHand() ([]Card, error) {
	if len(d.values) < HandSize {
		return nil, ErrInsufficientCards
	}
	hand := make([]Card, HandSize)
	for i := range hand {
		v := d.values[len(d.values)-1]
		d.values = d.values[:len(d.values)-1]
		hand[i] = Card{ID: d.ids.Generate(), Value: v}
	}
	return hand, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.values)
}
