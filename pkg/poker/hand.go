package poker

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/decred/slog"
)

// Street is a stage of a hand.
type Street int

const (
	PreFlop Street = iota
	Flop
	Turn
	River
	ShowdownStreet
	Complete
)

func (s Street) String() string {
	switch s {
	case PreFlop:
		return "preflop"
	case Flop:
		return "flop"
	case Turn:
		return "turn"
	case River:
		return "river"
	case ShowdownStreet:
		return "showdown"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// HandConfig parameterizes a single hand.
type HandConfig struct {
	Log        slog.Logger
	SmallBlind int64
	BigBlind   int64
	// PrevDealerSeat is the seat that held the button last hand, or -1 for
	// the first hand.
	PrevDealerSeat  int
	AllowRabbitHunt bool
	AllowRunItTwice bool
	// Rand drives the shuffle. Nil means time-seeded.
	Rand *rand.Rand
}

// Reveal is one player's showdown disclosure, in table reveal order.
type Reveal struct {
	PlayerID    string
	Nickname    string
	Cards       []Card
	Mucked      bool
	Description string
	IsWinner    bool
}

// PotResult is the settlement of one pot tier.
type PotResult struct {
	Amount      int64
	Winners     []string
	Description string
}

// HandResult is the full settlement of a hand.
type HandResult struct {
	Board    []Card
	Pots     []PotResult
	Reveals  []Reveal
	Payouts  map[string]int64
	Showdown bool
}

// ActionResult reports what a processed action caused.
type ActionResult struct {
	Applied        AppliedAction
	StreetAdvanced bool
	Street         Street
	DealtCards     []Card
	// NeedsRunout means betting is finished with the board incomplete and
	// at least two players still in the hand. The caller decides whether
	// to run the board out once or offer running it twice.
	NeedsRunout bool
	HandEnded   bool
	Result      *HandResult
}

// ErrHandOver is returned for actions submitted after the hand ended.
var ErrHandOver = errors.New("hand is over")

// Hand runs one complete hand of Texas Hold'em over a fixed clockwise
// player order. All chip movement during the hand flows through it.
type Hand struct {
	cfg     HandConfig
	log     slog.Logger
	players []*Player
	deck    *Deck

	communityCards []Card
	pot            int64
	street         Street
	round          *BettingRound

	dealerIndex int
	sbIndex     int
	bbIndex     int

	lastAggressor *Player
	rabbitDone    bool
	result        *HandResult
}

// NewHand creates a hand over the given players, who must be in clockwise
// seat order with at least two able to post chips.
func NewHand(players []*Player, cfg HandConfig) (*Hand, error) {
	if len(players) < 2 {
		return nil, fmt.Errorf("need at least 2 players, got %d", len(players))
	}
	for _, p := range players {
		if p.Chips <= 0 {
			return nil, fmt.Errorf("player %s has no chips", p.ID)
		}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	return &Hand{
		cfg:     cfg,
		log:     log,
		players: players,
		deck:    NewDeck(rng),
		street:  PreFlop,
	}, nil
}

// Start resets players, rotates the button, posts blinds, and deals hole
// cards. After Start the preflop betting round is live.
func (h *Hand) Start() error {
	if h.round != nil {
		return errors.New("hand already started")
	}
	for _, p := range h.players {
		p.ResetForNewHand()
	}

	h.dealerIndex = h.rotateDealer(h.cfg.PrevDealerSeat)
	assignPositions(h.players, h.dealerIndex)

	n := len(h.players)
	if n == 2 {
		// Heads-up the button posts the small blind.
		h.sbIndex = h.dealerIndex
		h.bbIndex = (h.dealerIndex + 1) % n
	} else {
		h.sbIndex = (h.dealerIndex + 1) % n
		h.bbIndex = (h.dealerIndex + 2) % n
	}

	if err := h.postBlind(h.players[h.sbIndex], h.cfg.SmallBlind); err != nil {
		return err
	}
	if err := h.postBlind(h.players[h.bbIndex], h.cfg.BigBlind); err != nil {
		return err
	}

	// Two cards each, one at a time, starting left of the button.
	for i := 0; i < 2; i++ {
		for j := 1; j <= n; j++ {
			p := h.players[(h.dealerIndex+j)%n]
			card, ok := h.deck.Draw()
			if !ok {
				return errors.New("deck exhausted dealing hole cards")
			}
			p.HoleCards = append(p.HoleCards, card)
		}
	}

	h.round = NewBettingRound(h.players, h.cfg.BigBlind)
	h.round.SetBlinds(h.cfg.BigBlind)
	h.round.SetFirstToAct((h.bbIndex + 1) % n)

	h.log.Debugf("hand started: dealer=%s sb=%s bb=%s",
		h.players[h.dealerIndex].ID, h.players[h.sbIndex].ID, h.players[h.bbIndex].ID)
	return nil
}

// rotateDealer picks the button: the first player clockwise whose seat is
// greater than the previous button's seat, wrapping to the lowest seat.
// Vacated seats are skipped naturally.
func (h *Hand) rotateDealer(prevSeat int) int {
	if prevSeat < 0 {
		return 0
	}
	best := -1
	for i, p := range h.players {
		if p.Seat > prevSeat && (best == -1 || p.Seat < h.players[best].Seat) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	// Wrapped past the highest seat.
	best = 0
	for i, p := range h.players {
		if p.Seat < h.players[best].Seat {
			best = i
		}
	}
	return best
}

// postBlind commits up to amount from the player's stack. A short stack
// posts all-in for less.
func (h *Hand) postBlind(p *Player, amount int64) error {
	if amount > p.Chips {
		amount = p.Chips
	}
	return p.Bet(amount)
}

// CurrentPlayer returns the player to act, or nil.
func (h *Hand) CurrentPlayer() *Player {
	if h.round == nil || h.street >= ShowdownStreet {
		return nil
	}
	return h.round.CurrentPlayer()
}

// Street returns the current stage of the hand.
func (h *Hand) Street() Street { return h.street }

// CommunityCards returns the board dealt so far.
func (h *Hand) CommunityCards() []Card { return h.communityCards }

// Pot returns collected pot plus live street bets.
func (h *Hand) Pot() int64 {
	total := h.pot
	for _, p := range h.players {
		total += p.CurrentBet
	}
	return total
}

// CurrentBet returns the highest bet on the live street.
func (h *Hand) CurrentBet() int64 {
	if h.round == nil {
		return 0
	}
	return h.round.CurrentBet()
}

// MinRaise returns the live minimum raise increment.
func (h *Hand) MinRaise() int64 {
	if h.round == nil {
		return 0
	}
	return h.round.MinRaise()
}

// DealerSeat returns the seat holding the button.
func (h *Hand) DealerSeat() int { return h.players[h.dealerIndex].Seat }

// Players returns the hand's players in clockwise order.
func (h *Hand) Players() []*Player { return h.players }

// Result returns the settlement once the hand is complete.
func (h *Hand) Result() *HandResult { return h.result }

// ProcessAction validates and applies one betting action and advances the
// hand as far as the action allows. Illegal actions leave the hand
// untouched.
func (h *Hand) ProcessAction(playerID string, action ActionType, amount int64) (ActionResult, error) {
	if h.round == nil {
		return ActionResult{}, errors.New("hand not started")
	}
	if h.street >= ShowdownStreet {
		return ActionResult{}, ErrHandOver
	}

	betBefore := h.round.CurrentBet()
	applied, err := h.round.Apply(playerID, action, amount)
	if err != nil {
		return ActionResult{}, err
	}
	if h.round.CurrentBet() > betBefore {
		h.lastAggressor = h.findPlayer(playerID)
	}

	res := ActionResult{Applied: applied, Street: h.street}

	if h.contestants() == 1 {
		h.pot += h.round.CollectBets()
		h.settleFoldout()
		res.HandEnded = true
		res.Result = h.result
		return res, nil
	}

	if !h.round.IsComplete() {
		return res, nil
	}

	advanced, err := h.advanceStreet(&res)
	if err != nil {
		return ActionResult{}, err
	}
	res.StreetAdvanced = advanced
	res.Street = h.street
	return res, nil
}

// Retire folds a player out of turn, used when the session layer removes
// them mid-hand. During a runout the player's chips are committed and the
// hand resolves on its own, so retirement is a no-op then.
func (h *Hand) Retire(playerID string) (ActionResult, error) {
	if h.round == nil {
		return ActionResult{}, errors.New("hand not started")
	}
	if h.street >= ShowdownStreet {
		return ActionResult{}, nil
	}
	p := h.findPlayer(playerID)
	if p == nil {
		return ActionResult{}, fmt.Errorf("unknown player %s", playerID)
	}
	if !p.InHand() {
		return ActionResult{}, nil
	}
	if p.Status == StatusAllIn {
		// Committed chips stay live.
		return ActionResult{}, nil
	}

	cp := h.round.CurrentPlayer()
	wasTurn := cp != nil && cp.ID == playerID
	p.Fold()

	res := ActionResult{
		Applied: AppliedAction{PlayerID: playerID, Action: ActionFold},
		Street:  h.street,
	}

	if h.contestants() == 1 {
		h.pot += h.round.CollectBets()
		h.settleFoldout()
		res.HandEnded = true
		res.Result = h.result
		return res, nil
	}

	if wasTurn {
		h.round.advance()
	}
	if h.round.IsComplete() {
		advanced, err := h.advanceStreet(&res)
		if err != nil {
			return ActionResult{}, err
		}
		res.StreetAdvanced = advanced
		res.Street = h.street
	}
	return res, nil
}

// advanceStreet collects street bets and moves the hand forward: deals the
// next street, detects the all-in runout case, or settles at showdown.
func (h *Hand) advanceStreet(res *ActionResult) (bool, error) {
	h.pot += h.round.CollectBets()

	// A stack can only hit zero through Bet, but reclassify anyway so a
	// zero-chip active player can never be waited on.
	for _, p := range h.players {
		if p.Status == StatusActive && p.Chips == 0 {
			p.Status = StatusAllIn
		}
	}

	if h.street == River {
		result, err := h.settleShowdown()
		if err != nil {
			return false, err
		}
		res.HandEnded = true
		res.Result = result
		return false, nil
	}

	if h.playersWhoCanAct() <= 1 {
		res.NeedsRunout = true
		h.street = ShowdownStreet
		return false, nil
	}

	dealt, err := h.dealNextStreet()
	if err != nil {
		return false, err
	}
	res.DealtCards = dealt
	h.round.SetFirstToAct((h.dealerIndex + 1) % len(h.players))
	return true, nil
}

// dealNextStreet burns and deals the next board cards and returns them.
// Clearing lastAggressor here means that at any street's end it points at
// that street's aggressor, or is nil when the street checked through.
func (h *Hand) dealNextStreet() ([]Card, error) {
	var count int
	switch h.street {
	case PreFlop:
		h.street, count = Flop, 3
	case Flop:
		h.street, count = Turn, 1
	case Turn:
		h.street, count = River, 1
	default:
		return nil, fmt.Errorf("no street after %s", h.street)
	}

	h.lastAggressor = nil
	h.deck.Burn()
	dealt := make([]Card, 0, count)
	for i := 0; i < count; i++ {
		card, ok := h.deck.Draw()
		if !ok {
			h.log.Errorf("deck exhausted dealing %s", h.street)
			break
		}
		dealt = append(dealt, card)
	}
	h.communityCards = append(h.communityCards, dealt...)
	return dealt, nil
}

// RunOutBoard draws the remaining board cards in order without applying
// them. The caller reveals them one at a time via AddCommunityCard and
// then settles with ResolveRunout.
func (h *Hand) RunOutBoard() []Card {
	return h.drawRunout(len(h.communityCards))
}

// drawRunout draws the cards completing a board that currently has
// baseLen cards, burning before each street as in live dealing.
func (h *Hand) drawRunout(baseLen int) []Card {
	var out []Card
	for baseLen+len(out) < 5 {
		h.deck.Burn()
		count := 1
		if baseLen+len(out) == 0 {
			count = 3
		}
		for i := 0; i < count; i++ {
			card, ok := h.deck.Draw()
			if !ok {
				h.log.Errorf("deck exhausted during runout")
				return out
			}
			out = append(out, card)
		}
	}
	return out
}

// AddCommunityCard applies one previously drawn runout card to the board.
func (h *Hand) AddCommunityCard(c Card) {
	h.communityCards = append(h.communityCards, c)
}

// ResolveRunout settles the hand after the runout board is complete.
func (h *Hand) ResolveRunout() (*HandResult, error) {
	if len(h.communityCards) != 5 {
		return nil, fmt.Errorf("board incomplete: %d cards", len(h.communityCards))
	}
	return h.settleShowdown()
}

// contestants counts players still in the hand.
func (h *Hand) contestants() int {
	n := 0
	for _, p := range h.players {
		if p.InHand() {
			n++
		}
	}
	return n
}

func (h *Hand) playersWhoCanAct() int {
	n := 0
	for _, p := range h.players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

func (h *Hand) findPlayer(id string) *Player {
	for _, p := range h.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// settleFoldout awards the whole pot to the last player in the hand.
func (h *Hand) settleFoldout() {
	var winner *Player
	for _, p := range h.players {
		if p.InHand() {
			winner = p
			break
		}
	}
	payouts := map[string]int64{winner.ID: h.pot}
	winner.Chips += h.pot
	h.result = &HandResult{
		Board: h.communityCards,
		Pots: []PotResult{{
			Amount:  h.pot,
			Winners: []string{winner.ID},
		}},
		Payouts: payouts,
	}
	h.street = Complete
	h.log.Debugf("hand ended uncontested: %s wins %d", winner.ID, h.pot)
}

// settleShowdown builds pots, evaluates every contesting hand, determines
// the reveal order and payouts, and applies winnings to stacks.
func (h *Hand) settleShowdown() (*HandResult, error) {
	pots := BuildPots(h.players)
	if total := PotTotal(pots); total != h.pot {
		h.log.Errorf("pot sum mismatch: pots=%d pot=%d", total, h.pot)
	}

	values := make(map[string]HandValue)
	for _, p := range h.players {
		if !p.InHand() {
			continue
		}
		v, err := EvaluateHand(p.HoleCards, h.communityCards)
		if err != nil {
			return nil, fmt.Errorf("evaluating %s: %w", p.ID, err)
		}
		values[p.ID] = v
	}

	potResults, payouts := h.distributePots(pots, values)

	winnerSet := make(map[string]bool)
	for _, pr := range potResults {
		for _, id := range pr.Winners {
			winnerSet[id] = true
		}
	}

	reveals := h.buildReveals(values, winnerSet)

	for id, amount := range payouts {
		h.findPlayer(id).Chips += amount
	}

	h.result = &HandResult{
		Board:    h.communityCards,
		Pots:     potResults,
		Reveals:  reveals,
		Payouts:  payouts,
		Showdown: true,
	}
	h.street = Complete
	return h.result, nil
}

// distributePots settles each pot independently: floor split among the
// tied winners, odd chips to the winner closest clockwise after the
// button, the button itself last.
func (h *Hand) distributePots(pots []SidePot, values map[string]HandValue) ([]PotResult, map[string]int64) {
	payouts := make(map[string]int64)
	results := make([]PotResult, 0, len(pots))

	for _, pot := range pots {
		vals := make([]HandValue, len(pot.Eligible))
		for i, p := range pot.Eligible {
			vals[i] = values[p.ID]
		}
		winnerIdx := DetermineWinners(vals)

		winners := make([]*Player, len(winnerIdx))
		for i, wi := range winnerIdx {
			winners[i] = pot.Eligible[wi]
		}

		share := pot.Amount / int64(len(winners))
		remainder := pot.Amount % int64(len(winners))

		ids := make([]string, len(winners))
		for i, w := range winners {
			payouts[w.ID] += share
			ids[i] = w.ID
		}
		if remainder > 0 {
			payouts[h.oddChipWinner(winners).ID] += remainder
		}

		results = append(results, PotResult{
			Amount:      pot.Amount,
			Winners:     ids,
			Description: values[winners[0].ID].Description,
		})
	}
	return results, payouts
}

// oddChipWinner picks the tied winner nearest clockwise after the button;
// a winner on the button only takes odd chips when alone.
func (h *Hand) oddChipWinner(winners []*Player) *Player {
	n := len(h.players)
	best := winners[0]
	bestDist := h.buttonDistance(best, n)
	for _, w := range winners[1:] {
		if d := h.buttonDistance(w, n); d < bestDist {
			best, bestDist = w, d
		}
	}
	return best
}

func (h *Hand) buttonDistance(p *Player, n int) int {
	for i, q := range h.players {
		if q == p {
			d := (i - h.dealerIndex + n) % n
			if d == 0 {
				d = n
			}
			return d
		}
	}
	return n
}

// buildReveals orders showdown disclosures. The final-street aggressor
// shows first, otherwise the first contestant clockwise after the button.
// A hand is mucked unless it ties or beats the best hand shown so far or
// it won a pot.
func (h *Hand) buildReveals(values map[string]HandValue, winnerSet map[string]bool) []Reveal {
	n := len(h.players)
	start := (h.dealerIndex + 1) % n
	if h.lastAggressor != nil && h.lastAggressor.InHand() {
		for i, p := range h.players {
			if p == h.lastAggressor {
				start = i
				break
			}
		}
	}

	var reveals []Reveal
	bestShown := HandValue{Score: int32(1<<31 - 1)}
	shownAny := false
	for i := 0; i < n; i++ {
		p := h.players[(start+i)%n]
		if !p.InHand() {
			continue
		}
		v := values[p.ID]
		show := !shownAny || CompareHands(v, bestShown) <= 0 || winnerSet[p.ID]
		if show {
			if !shownAny || CompareHands(v, bestShown) < 0 {
				bestShown = v
			}
			shownAny = true
			reveals = append(reveals, Reveal{
				PlayerID:    p.ID,
				Nickname:    p.Nickname,
				Cards:       p.HoleCards,
				Description: v.Description,
				IsWinner:    winnerSet[p.ID],
			})
		} else {
			reveals = append(reveals, Reveal{
				PlayerID: p.ID,
				Nickname: p.Nickname,
				Mucked:   true,
			})
		}
	}
	return reveals
}

// TriggerRabbitHunt reveals the board cards that would have come had the
// hand gone to the river. It is available once, only for hands that ended
// before the full board was dealt.
func (h *Hand) TriggerRabbitHunt() ([]Card, error) {
	if !h.cfg.AllowRabbitHunt {
		return nil, errors.New("rabbit hunt disabled")
	}
	if h.street != Complete {
		return nil, errors.New("hand still in progress")
	}
	if h.rabbitDone {
		return nil, errors.New("rabbit hunt already used")
	}
	if len(h.communityCards) >= 5 {
		return nil, errors.New("board already complete")
	}
	h.rabbitDone = true
	return h.RunOutBoard(), nil
}
