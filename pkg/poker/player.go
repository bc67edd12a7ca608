package poker

import (
	"fmt"
)

// PlayerStatus tracks a player's participation in the current hand.
type PlayerStatus string

const (
	// StatusWaiting is a seated player between hands.
	StatusWaiting PlayerStatus = "waiting"
	// StatusActive is a player dealt into the current hand who can still act.
	StatusActive PlayerStatus = "active"
	// StatusFolded is a player who folded this hand.
	StatusFolded PlayerStatus = "folded"
	// StatusAllIn is a player with all chips committed this hand.
	StatusAllIn PlayerStatus = "all-in"
	// StatusWaitingNextHand is a player who sat down mid-hand and joins the
	// next deal.
	StatusWaitingNextHand PlayerStatus = "waiting-next-hand"
)

// ActionType is a betting action submitted by a player.
type ActionType string

const (
	ActionFold  ActionType = "fold"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionBet   ActionType = "bet"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "all-in"
)

// Player is a seated participant. Identity is the stable ID; the session
// token and connection id belong to the session layer and are carried here
// so the room can rebind them on reconnect.
type Player struct {
	ID           string
	SessionToken string
	ConnID       string
	Nickname     string

	Seat     int
	Chips    int64
	Position string

	// Per-hand state.
	HoleCards         []Card
	Status            PlayerStatus
	CurrentBet        int64
	TotalContribution int64
	HasActed          bool
	LastAction        ActionType

	TimeBank        int64
	Connected       bool
	StandUpNextHand bool
}

// NewPlayer creates a seated player with the given buy-in stack.
func NewPlayer(id, nickname string, seat int, chips int64) *Player {
	return &Player{
		ID:        id,
		Nickname:  nickname,
		Seat:      seat,
		Chips:     chips,
		Status:    StatusWaiting,
		Connected: true,
	}
}

// Bet moves amount chips from the player's stack into the current bet and
// total contribution. It is the only path chips leave a stack mid-hand.
func (p *Player) Bet(amount int64) error {
	if amount < 0 {
		return fmt.Errorf("negative bet %d", amount)
	}
	if amount > p.Chips {
		return fmt.Errorf("bet %d exceeds stack %d", amount, p.Chips)
	}
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalContribution += amount
	if p.Chips == 0 {
		p.Status = StatusAllIn
	}
	return nil
}

// Fold marks the player out of the hand.
func (p *Player) Fold() {
	p.Status = StatusFolded
	p.LastAction = ActionFold
	p.HasActed = true
}

// CanAct reports whether the player still has a decision to make.
func (p *Player) CanAct() bool {
	return p.Status == StatusActive && p.Chips > 0
}

// InHand reports whether the player still contests the pot.
func (p *Player) InHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}

// ResetForNewHand clears all per-hand state. Every seated player with chips
// re-enters as active regardless of how the previous hand ended.
func (p *Player) ResetForNewHand() {
	p.HoleCards = nil
	p.Status = StatusActive
	p.CurrentBet = 0
	p.TotalContribution = 0
	p.HasActed = false
	p.LastAction = ""
	p.Position = ""
}

// ResetForNewRound clears per-street state ahead of the next betting round.
func (p *Player) ResetForNewRound() {
	p.CurrentBet = 0
	if p.Status == StatusActive {
		p.HasActed = false
		p.LastAction = ""
	}
}
