package game

import (
	"testing"

	"github.com/cartculus/server/internal/randutil"
)

func TestDeckDealsValidHands(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 20; seed++ {
		deck := NewDeck(randutil.New(seed))

		target := deck.DrawTarget()
		if target < 1 || target > 13 {
			t.Fatalf("seed %d: target %d out of range", seed, target)
		}

		counts := map[int]int{target: 1}
		ids := map[string]bool{}
		for player := 0; player < 12; player++ {
			hand, err := deck.DealHand()
			if err != nil {
				t.Fatalf("seed %d: deal for player %d: %v", seed, player, err)
			}
			if len(hand) != HandSize {
				t.Fatalf("seed %d: hand size %d, want %d", seed, len(hand), HandSize)
			}
			for _, c := range hand {
				if c.Value < 1 || c.Value > 13 {
					t.Errorf("seed %d: card value %d out of range", seed, c.Value)
				}
				if ids[c.ID] {
					t.Errorf("seed %d: duplicate card id %s", seed, c.ID)
				}
				ids[c.ID] = true
				counts[c.Value]++
			}
		}

		// Target plus hands must stay a sub-multiset of the 52-card deck.
		for v, n := range counts {
			if n > 4 {
				t.Errorf("seed %d: value %d dealt %d times", seed, v, n)
			}
		}
	}
}

func TestDeckExhaustion(t *testing.T) {
	t.Parallel()

	deck := NewDeck(randutil.New(7))
	deck.DrawTarget()

	// 12 full hands fit; the 13th does not.
	for i := 0; i < 12; i++ {
		if _, err := deck.DealHand(); err != nil {
			t.Fatalf("hand %d: %v", i, err)
		}
	}
	if deck.Remaining() != 3 {
		t.Fatalf("remaining = %d, want 3", deck.Remaining())
	}
	if _, err := deck.DealHand(); err != ErrInsufficientCards {
		t.Fatalf("err = %v, want ErrInsufficientCards", err)
	}
}

func TestDeckShuffleDeterministic(t *testing.T) {
	t.Parallel()

	a := NewDeck(randutil.New(42))
	b := NewDeck(randutil.New(42))
	if a.DrawTarget() != b.DrawTarget() {
		t.Fatal("same seed should draw the same target")
	}
	ha, _ := a.DealHand()
	hb, _ := b.DealHand()
	for i := range ha {
		if ha[i].Value != hb[i].Value {
			t.Fatalf("card %d: %d != %d", i, ha[i].Value, hb[i].Value)
		}
	}
}
