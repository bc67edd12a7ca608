package poker

import (
	"sort"
)

// SidePot is one tier of the pot with the players eligible to win it.
// Pots[0] is the main pot.
type SidePot struct {
	Amount   int64
	Eligible []*Player
}

// BuildPots partitions the hand's total contributions into main and side
// pots. Tiers are the distinct contribution levels of players still in the
// hand; dead money from folded players goes into the main pot.
func BuildPots(players []*Player) []SidePot {
	var contesting []*Player
	var dead int64
	for _, p := range players {
		if p.InHand() {
			contesting = append(contesting, p)
		} else {
			dead += p.TotalContribution
		}
	}
	if len(contesting) == 0 {
		return nil
	}

	levels := make([]int64, 0, len(contesting))
	seen := make(map[int64]bool)
	for _, p := range contesting {
		if c := p.TotalContribution; c > 0 && !seen[c] {
			seen[c] = true
			levels = append(levels, c)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []SidePot
	var prev int64
	for _, level := range levels {
		pot := SidePot{}
		for _, p := range contesting {
			if p.TotalContribution >= level {
				pot.Amount += level - prev
				pot.Eligible = append(pot.Eligible, p)
			}
		}
		pots = append(pots, pot)
		prev = level
	}

	if len(pots) > 0 {
		pots[0].Amount += dead
	}
	return pots
}

// PotTotal sums the amounts across pots.
func PotTotal(pots []SidePot) int64 {
	var total int64
	for _, p := range pots {
		total += p.Amount
	}
	return total
}
