package poker

import (
	"errors"
	"fmt"
)

var (
	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrIllegalAction is returned when an action is not legal in the
	// current betting state. Wrapped errors carry the reason.
	ErrIllegalAction = errors.New("illegal action")
)

// AppliedAction describes a betting action after normalization. Amount is
// the number of chips the action moved from the player's stack.
type AppliedAction struct {
	PlayerID string
	Action   ActionType
	Amount   int64
	AllIn    bool
}

// BettingRound runs one street of betting over a fixed clockwise player
// order. Validation never mutates; an action either applies fully or
// returns an error leaving the round untouched.
type BettingRound struct {
	players      []*Player
	currentBet   int64
	minRaise     int64
	bigBlind     int64
	currentIndex int
}

// NewBettingRound creates a betting round over players in clockwise order.
// The minimum raise starts at the big blind.
func NewBettingRound(players []*Player, bigBlind int64) *BettingRound {
	return &BettingRound{
		players:  players,
		minRaise: bigBlind,
		bigBlind: bigBlind,
	}
}

// SetBlinds records already-posted blind bets so the preflop round opens
// with a live bet to call.
func (r *BettingRound) SetBlinds(currentBet int64) {
	r.currentBet = currentBet
}

// CurrentBet returns the highest total bet on this street.
func (r *BettingRound) CurrentBet() int64 { return r.currentBet }

// MinRaise returns the current minimum raise increment.
func (r *BettingRound) MinRaise() int64 { return r.minRaise }

// CurrentPlayer returns the player whose turn it is, or nil when nobody
// can act.
func (r *BettingRound) CurrentPlayer() *Player {
	if len(r.players) == 0 {
		return nil
	}
	p := r.players[r.currentIndex]
	if !p.CanAct() {
		return nil
	}
	return p
}

// SetFirstToAct positions the turn on the first player at or clockwise
// after index who can act. It reports whether such a player exists.
func (r *BettingRound) SetFirstToAct(index int) bool {
	n := len(r.players)
	for i := 0; i < n; i++ {
		idx := (index + i) % n
		if r.players[idx].CanAct() {
			r.currentIndex = idx
			return true
		}
	}
	return false
}

// advance moves the turn to the next player who can act. The scan is
// bounded by the table size so a round with nobody left to act cannot
// loop.
func (r *BettingRound) advance() {
	n := len(r.players)
	for i := 1; i <= n; i++ {
		idx := (r.currentIndex + i) % n
		if r.players[idx].CanAct() {
			r.currentIndex = idx
			return
		}
	}
}

// Apply validates and applies one action for the player whose turn it is.
// On error nothing has changed and the same player remains to act.
func (r *BettingRound) Apply(playerID string, action ActionType, amount int64) (AppliedAction, error) {
	p := r.CurrentPlayer()
	if p == nil || p.ID != playerID {
		return AppliedAction{}, ErrNotYourTurn
	}

	owed := r.currentBet - p.CurrentBet

	switch action {
	case ActionFold:
		p.Fold()
		r.advance()
		return AppliedAction{PlayerID: p.ID, Action: ActionFold}, nil

	case ActionCheck:
		if owed > 0 {
			return AppliedAction{}, fmt.Errorf("%w: cannot check facing a bet of %d", ErrIllegalAction, owed)
		}
		p.HasActed = true
		p.LastAction = ActionCheck
		r.advance()
		return AppliedAction{PlayerID: p.ID, Action: ActionCheck}, nil

	case ActionCall:
		if owed <= 0 {
			return AppliedAction{}, fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		toCall := owed
		if toCall > p.Chips {
			toCall = p.Chips
		}
		if err := p.Bet(toCall); err != nil {
			return AppliedAction{}, fmt.Errorf("%w: %v", ErrIllegalAction, err)
		}
		p.HasActed = true
		p.LastAction = ActionCall
		applied := AppliedAction{PlayerID: p.ID, Action: ActionCall, Amount: toCall, AllIn: p.Status == StatusAllIn}
		r.advance()
		return applied, nil

	case ActionBet:
		if r.currentBet > 0 {
			return AppliedAction{}, fmt.Errorf("%w: bet not allowed facing a bet, raise instead", ErrIllegalAction)
		}
		if amount <= 0 {
			return AppliedAction{}, fmt.Errorf("%w: bet must be positive", ErrIllegalAction)
		}
		if amount > p.Chips {
			return AppliedAction{}, fmt.Errorf("%w: bet %d exceeds stack %d", ErrIllegalAction, amount, p.Chips)
		}
		if amount < r.minRaise && amount < p.Chips {
			return AppliedAction{}, fmt.Errorf("%w: bet %d below minimum %d", ErrIllegalAction, amount, r.minRaise)
		}
		return r.applyAggression(p, ActionBet, amount, amount)

	case ActionRaise:
		if r.currentBet == 0 {
			return AppliedAction{}, fmt.Errorf("%w: no bet to raise, bet instead", ErrIllegalAction)
		}
		if amount <= 0 {
			return AppliedAction{}, fmt.Errorf("%w: raise must be positive", ErrIllegalAction)
		}
		toCall := owed
		if toCall > p.Chips {
			return AppliedAction{}, fmt.Errorf("%w: stack covers less than the call, go all-in", ErrIllegalAction)
		}
		total := toCall + amount
		if total > p.Chips {
			return AppliedAction{}, fmt.Errorf("%w: raise total %d exceeds stack %d", ErrIllegalAction, total, p.Chips)
		}
		if amount < r.minRaise && total < p.Chips {
			return AppliedAction{}, fmt.Errorf("%w: raise %d below minimum %d", ErrIllegalAction, amount, r.minRaise)
		}
		return r.applyAggression(p, ActionRaise, total, amount)

	case ActionAllIn:
		if p.Chips == 0 {
			return AppliedAction{}, fmt.Errorf("%w: no chips to push", ErrIllegalAction)
		}
		push := p.Chips
		if push <= owed {
			// Short of the call: treated as a capped call.
			if err := p.Bet(push); err != nil {
				return AppliedAction{}, fmt.Errorf("%w: %v", ErrIllegalAction, err)
			}
			p.HasActed = true
			p.LastAction = ActionAllIn
			applied := AppliedAction{PlayerID: p.ID, Action: ActionAllIn, Amount: push, AllIn: true}
			r.advance()
			return applied, nil
		}
		raiseBy := push - owed
		return r.applyAggression(p, ActionAllIn, push, raiseBy)

	default:
		return AppliedAction{}, fmt.Errorf("%w: unknown action %q", ErrIllegalAction, action)
	}
}

// applyAggression commits a bet or raise of total chips, where raiseBy is
// the increment over the previous high bet. A full raise reopens the
// action; a short all-in raise does not.
func (r *BettingRound) applyAggression(p *Player, action ActionType, total, raiseBy int64) (AppliedAction, error) {
	if err := p.Bet(total); err != nil {
		return AppliedAction{}, fmt.Errorf("%w: %v", ErrIllegalAction, err)
	}
	p.HasActed = true
	p.LastAction = action
	r.currentBet = p.CurrentBet

	fullRaise := raiseBy >= r.minRaise
	if fullRaise {
		r.minRaise = raiseBy
		for _, other := range r.players {
			if other != p && other.CanAct() {
				other.HasActed = false
			}
		}
	}

	applied := AppliedAction{PlayerID: p.ID, Action: action, Amount: total, AllIn: p.Status == StatusAllIn}
	r.advance()
	return applied, nil
}

// IsComplete reports whether the street's betting is finished: nobody can
// act, or everyone who can act has acted and matched the current bet.
func (r *BettingRound) IsComplete() bool {
	canAct := 0
	for _, p := range r.players {
		if p.CanAct() {
			canAct++
		}
	}
	if canAct == 0 {
		return true
	}
	for _, p := range r.players {
		if !p.CanAct() {
			continue
		}
		if !p.HasActed || p.CurrentBet != r.currentBet {
			return false
		}
	}
	return true
}

// CollectBets sweeps every player's street bet into a single total and
// resets per-street state. The caller adds the total to the pot.
func (r *BettingRound) CollectBets() int64 {
	var total int64
	for _, p := range r.players {
		total += p.CurrentBet
		p.ResetForNewRound()
	}
	r.currentBet = 0
	r.minRaise = r.bigBlind
	return total
}
