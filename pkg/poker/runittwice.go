package poker

import (
	"errors"
	"fmt"
)

// RunResult is the settlement of one run-it-twice board.
type RunResult struct {
	Board []Card
	Pots  []PotResult
}

// RunItTwiceResult is the combined settlement of both runs.
type RunItTwiceResult struct {
	Run1    RunResult
	Run2    RunResult
	Reveals []Reveal
	Payouts map[string]int64
}

// RunItTwiceApplicable reports whether the hand qualifies for running the
// board twice: betting is over, the board is incomplete, and at least two
// players remain in the hand.
func (h *Hand) RunItTwiceApplicable() bool {
	return h.cfg.AllowRunItTwice &&
		h.street == ShowdownStreet &&
		h.contestants() >= 2 &&
		len(h.communityCards) < 5
}

// InvolvedPlayers returns the players still in the hand, the ones whose
// agreement running it twice requires.
func (h *Hand) InvolvedPlayers() []*Player {
	var out []*Player
	for _, p := range h.players {
		if p.InHand() {
			out = append(out, p)
		}
	}
	return out
}

// ExecuteRunItTwice deals two independent runouts and settles each pot
// half per board. The first run takes the larger half of an odd pot so no
// chip is lost to the split.
func (h *Hand) ExecuteRunItTwice() (*RunItTwiceResult, error) {
	if !h.RunItTwiceApplicable() {
		return nil, errors.New("run it twice not applicable")
	}

	base := append([]Card{}, h.communityCards...)
	run1 := h.drawRunout(len(base))
	run2 := h.drawRunout(len(base))
	board1 := append(append([]Card{}, base...), run1...)
	board2 := append(append([]Card{}, base...), run2...)

	pots := BuildPots(h.players)
	if total := PotTotal(pots); total != h.pot {
		h.log.Errorf("pot sum mismatch: pots=%d pot=%d", total, h.pot)
	}

	payouts := make(map[string]int64)
	result := &RunItTwiceResult{Payouts: payouts}

	runs := []struct {
		n     int
		board []Card
	}{{1, board1}, {2, board2}}
	for _, r := range runs {
		run, board := r.n, r.board
		values := make(map[string]HandValue)
		for _, p := range h.InvolvedPlayers() {
			v, err := EvaluateHand(p.HoleCards, board)
			if err != nil {
				return nil, fmt.Errorf("evaluating %s on run %d: %w", p.ID, run, err)
			}
			values[p.ID] = v
		}

		var potResults []PotResult
		for _, pot := range pots {
			half := pot.Amount / 2
			if run == 1 {
				half = pot.Amount - half
			}
			potResults = append(potResults, h.settleHalfPot(pot, half, values, payouts))
		}
		if run == 1 {
			result.Run1 = RunResult{Board: board1, Pots: potResults}
		} else {
			result.Run2 = RunResult{Board: board2, Pots: potResults}
		}
	}

	// Everyone was all-in, so every hand shows.
	winnerSet := make(map[string]bool)
	for id := range payouts {
		winnerSet[id] = true
	}
	for _, p := range h.InvolvedPlayers() {
		v1, _ := EvaluateHand(p.HoleCards, board1)
		result.Reveals = append(result.Reveals, Reveal{
			PlayerID:    p.ID,
			Nickname:    p.Nickname,
			Cards:       p.HoleCards,
			Description: v1.Description,
			IsWinner:    winnerSet[p.ID],
		})
	}

	for id, amount := range payouts {
		h.findPlayer(id).Chips += amount
	}

	h.communityCards = board1
	h.result = &HandResult{
		Board:    board1,
		Pots:     append(result.Run1.Pots, result.Run2.Pots...),
		Reveals:  result.Reveals,
		Payouts:  payouts,
		Showdown: true,
	}
	h.street = Complete
	return result, nil
}

// settleHalfPot awards one run's half of a pot to the best eligible
// hand(s) on that run's board.
func (h *Hand) settleHalfPot(pot SidePot, amount int64, values map[string]HandValue, payouts map[string]int64) PotResult {
	vals := make([]HandValue, len(pot.Eligible))
	for i, p := range pot.Eligible {
		vals[i] = values[p.ID]
	}
	winnerIdx := DetermineWinners(vals)

	winners := make([]*Player, len(winnerIdx))
	ids := make([]string, len(winnerIdx))
	for i, wi := range winnerIdx {
		winners[i] = pot.Eligible[wi]
		ids[i] = winners[i].ID
	}

	share := amount / int64(len(winners))
	remainder := amount % int64(len(winners))
	for _, w := range winners {
		payouts[w.ID] += share
	}
	if remainder > 0 {
		payouts[h.oddChipWinner(winners).ID] += remainder
	}

	return PotResult{
		Amount:      amount,
		Winners:     ids,
		Description: values[winners[0].ID].Description,
	}
}
