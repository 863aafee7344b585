package game

// awardTable maps the number of scoring events already seen this round to the
// points of the next one. Earlier finishers earn more; everyone past fourth
// place gets a single point.
var awardTable = [...]int{10, 7, 5, 3}

// NextAward returns the points the next scoring event in the room is worth.
// It must be evaluated at resolution time, never precomputed at challenge
// start: the value depends on how many awards have already landed in the
// round by the time this one resolves. Caller holds the room lock.
func NextAward(r *Room) int {
	n := 0
	for _, p := range r.Players {
		n += p.SolvedCount
	}
	if n < len(awardTable) {
		return awardTable[n]
	}
	return 1
}
