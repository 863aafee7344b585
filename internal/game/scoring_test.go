package game

import "testing"

func TestNextAwardSequence(t *testing.T) {
	t.Parallel()

	r := newRoom("r")
	r.addPlayer("a", "A")
	r.addPlayer("b", "B")
	r.addPlayer("c", "C")

	want := []int{10, 7, 5, 3, 1, 1, 1}
	// Which player contributed a prior award must not matter; rotate.
	order := []string{"a", "b", "c", "a", "b", "c", "a"}
	for i, pts := range want {
		if got := NextAward(r); got != pts {
			t.Fatalf("award %d = %d, want %d", i, got, pts)
		}
		r.Players[order[i]].SolvedCount++
	}
}

func TestNextAwardIgnoresWhoSolved(t *testing.T) {
	t.Parallel()

	r := newRoom("r")
	r.addPlayer("a", "A")
	r.addPlayer("b", "B")

	// Two awards concentrated on one player count the same as one each.
	r.Players["a"].SolvedCount = 2
	if got := NextAward(r); got != 5 {
		t.Fatalf("award after 2 solves = %d, want 5", got)
	}
	r.Players["a"].SolvedCount = 1
	r.Players["b"].SolvedCount = 1
	if got := NextAward(r); got != 5 {
		t.Fatalf("award after split solves = %d, want 5", got)
	}
}
