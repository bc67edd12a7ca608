package poker

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/decred/slog"
)

func testHandConfig(seed int64) HandConfig {
	return HandConfig{
		Log:             slog.Disabled,
		SmallBlind:      10,
		BigBlind:        20,
		PrevDealerSeat:  -1,
		AllowRabbitHunt: true,
		AllowRunItTwice: true,
		Rand:            rand.New(rand.NewSource(seed)),
	}
}

func newStartedHand(t *testing.T, seed int64, chips ...int64) (*Hand, []*Player) {
	t.Helper()
	players := make([]*Player, len(chips))
	for i, c := range chips {
		players[i] = NewPlayer(string(rune('a'+i)), string(rune('a'+i)), i, c)
	}
	h, err := NewHand(players, testHandConfig(seed))
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return h, players
}

func totalChips(players []*Player, pot int64) int64 {
	total := pot
	for _, p := range players {
		total += p.Chips + p.CurrentBet
	}
	return total
}

func TestHandStartDealsAndPostsBlinds(t *testing.T) {
	h, players := newStartedHand(t, 1, 1000, 1000, 1000)

	// First hand: button on index 0, blinds clockwise.
	if players[1].CurrentBet != 10 {
		t.Errorf("sb bet = %d, want 10", players[1].CurrentBet)
	}
	if players[2].CurrentBet != 20 {
		t.Errorf("bb bet = %d, want 20", players[2].CurrentBet)
	}
	for _, p := range players {
		if len(p.HoleCards) != 2 {
			t.Errorf("%s has %d hole cards", p.ID, len(p.HoleCards))
		}
	}
	if cp := h.CurrentPlayer(); cp == nil || cp.ID != "a" {
		t.Errorf("first to act = %v, want a (left of big blind)", cp)
	}
	if players[0].Position != "BTN" || players[1].Position != "SB" || players[2].Position != "BB" {
		t.Errorf("positions = %s/%s/%s", players[0].Position, players[1].Position, players[2].Position)
	}
}

func TestHeadsUpButtonPostsSmallBlind(t *testing.T) {
	h, players := newStartedHand(t, 1, 1000, 1000)

	if players[0].CurrentBet != 10 {
		t.Errorf("button bet = %d, want small blind 10", players[0].CurrentBet)
	}
	if players[1].CurrentBet != 20 {
		t.Errorf("other bet = %d, want big blind 20", players[1].CurrentBet)
	}
	// Heads-up the button acts first preflop.
	if cp := h.CurrentPlayer(); cp == nil || cp.ID != "a" {
		t.Errorf("first to act = %v, want a", cp)
	}
	if players[0].Position != "BTN/SB" || players[1].Position != "BB" {
		t.Errorf("positions = %s/%s", players[0].Position, players[1].Position)
	}
}

func TestDealerRotationSkipsVacatedSeats(t *testing.T) {
	players := []*Player{
		NewPlayer("a", "a", 0, 1000),
		NewPlayer("b", "b", 2, 1000),
		NewPlayer("c", "c", 5, 1000),
	}
	cfg := testHandConfig(1)

	// Seat 1 vacated since the last button: the next occupied seat gets it.
	cfg.PrevDealerSeat = 1
	h, err := NewHand(players, cfg)
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.DealerSeat() != 2 {
		t.Errorf("dealer seat = %d, want 2", h.DealerSeat())
	}
}

func TestDealerRotationWrapsToLowestSeat(t *testing.T) {
	players := []*Player{
		NewPlayer("a", "a", 1, 1000),
		NewPlayer("b", "b", 4, 1000),
	}
	cfg := testHandConfig(1)
	cfg.PrevDealerSeat = 4
	h, err := NewHand(players, cfg)
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h.DealerSeat() != 1 {
		t.Errorf("dealer seat = %d, want 1", h.DealerSeat())
	}
}

func TestShortStackPostsBlindAllIn(t *testing.T) {
	_, players := newStartedHand(t, 1, 1000, 5, 1000)
	if players[1].CurrentBet != 5 || players[1].Status != StatusAllIn {
		t.Errorf("short small blind: bet=%d status=%s", players[1].CurrentBet, players[1].Status)
	}
}

func TestFoldLeavesOneResolvesImmediately(t *testing.T) {
	h, players := newStartedHand(t, 7, 1000, 1000, 1000)

	if _, err := h.ProcessAction("a", ActionFold, 0); err != nil {
		t.Fatalf("a fold: %v", err)
	}
	res, err := h.ProcessAction("b", ActionFold, 0)
	if err != nil {
		t.Fatalf("b fold: %v", err)
	}
	if !res.HandEnded || res.Result == nil {
		t.Fatal("hand should end when one player remains")
	}
	if res.Result.Showdown {
		t.Error("uncontested win should not be a showdown")
	}
	if got := res.Result.Payouts["c"]; got != 30 {
		t.Errorf("winner payout = %d, want 30 (both blinds)", got)
	}
	if players[2].Chips != 1010 {
		t.Errorf("winner stack = %d, want 1010", players[2].Chips)
	}
	if total := totalChips(players, 0); total != 3000 {
		t.Errorf("chips not conserved: %d", total)
	}

	// Late actions are rejected.
	if _, err := h.ProcessAction("c", ActionCheck, 0); !errors.Is(err, ErrHandOver) {
		t.Errorf("action after hand end: %v, want ErrHandOver", err)
	}
}

// playToShowdown calls every bet and checks otherwise until the hand ends.
func playToShowdown(t *testing.T, h *Hand) *HandResult {
	t.Helper()
	for i := 0; i < 100; i++ {
		cp := h.CurrentPlayer()
		if cp == nil {
			t.Fatal("no player to act and hand not ended")
		}
		action := ActionCheck
		if h.CurrentBet() > cp.CurrentBet {
			action = ActionCall
		}
		res, err := h.ProcessAction(cp.ID, action, 0)
		if err != nil {
			t.Fatalf("%s %s: %v", cp.ID, action, err)
		}
		if res.HandEnded {
			return res.Result
		}
		if res.NeedsRunout {
			t.Fatal("unexpected runout in passive line")
		}
	}
	t.Fatal("hand did not finish")
	return nil
}

func TestHandPlaysToShowdownAndConservesChips(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		h, players := newStartedHand(t, seed, 1000, 1000, 1000, 1000)
		result := playToShowdown(t, h)

		if !result.Showdown {
			t.Fatalf("seed %d: expected showdown", seed)
		}
		if len(result.Board) != 5 {
			t.Errorf("seed %d: board = %d cards", seed, len(result.Board))
		}
		if total := totalChips(players, 0); total != 4000 {
			t.Errorf("seed %d: chips not conserved: %d", seed, total)
		}

		var paid int64
		for _, amount := range result.Payouts {
			paid += amount
		}
		if paid != 80 {
			t.Errorf("seed %d: payouts = %d, want 80 (four big blinds)", seed, paid)
		}
		if len(result.Reveals) == 0 {
			t.Errorf("seed %d: no reveals at showdown", seed)
		}
	}
}

func TestAllInRunoutBatchReveal(t *testing.T) {
	h, players := newStartedHand(t, 3, 500, 500)

	if _, err := h.ProcessAction("a", ActionAllIn, 0); err != nil {
		t.Fatalf("all-in: %v", err)
	}
	res, err := h.ProcessAction("b", ActionCall, 0)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.NeedsRunout {
		t.Fatal("expected runout after all-in call")
	}
	if len(h.CommunityCards()) != 0 {
		t.Errorf("board dealt before runout decision: %v", h.CommunityCards())
	}

	batch := h.RunOutBoard()
	if len(batch) != 5 {
		t.Fatalf("runout batch = %d cards, want 5", len(batch))
	}
	for _, c := range batch {
		h.AddCommunityCard(c)
	}
	result, err := h.ResolveRunout()
	if err != nil {
		t.Fatalf("ResolveRunout: %v", err)
	}
	if !result.Showdown {
		t.Error("runout should settle as a showdown")
	}
	if total := totalChips(players, 0); total != 1000 {
		t.Errorf("chips not conserved: %d", total)
	}
}

func royalBoard() []Card {
	return []Card{"Ah", "Kh", "Qh", "Jh", "Th"}
}

// showdownHand builds a hand already at the river for settlement tests.
func showdownHand(players []*Player, pot int64, board []Card, dealerIndex int) *Hand {
	return &Hand{
		log:            slog.Disabled,
		players:        players,
		pot:            pot,
		communityCards: board,
		street:         River,
		dealerIndex:    dealerIndex,
	}
}

func TestOddChipsGoToWinnerLeftOfButton(t *testing.T) {
	players := []*Player{
		{ID: "btn", Seat: 0, Status: StatusActive, TotalContribution: 500, HoleCards: []Card{"2c", "3d"}},
		{ID: "sb", Seat: 1, Status: StatusActive, TotalContribution: 500, HoleCards: []Card{"4c", "5d"}},
		{ID: "bb", Seat: 2, Status: StatusActive, TotalContribution: 500, HoleCards: []Card{"6c", "7d"}},
		{ID: "folder", Seat: 3, Status: StatusFolded, TotalContribution: 2},
	}
	h := showdownHand(players, 1502, royalBoard(), 0)

	result, err := h.settleShowdown()
	if err != nil {
		t.Fatalf("settleShowdown: %v", err)
	}

	// Board plays: three-way tie, 1502/3 = 500 each, 2 odd chips to the
	// winner closest clockwise after the button.
	if got := result.Payouts["sb"]; got != 502 {
		t.Errorf("sb payout = %d, want 502", got)
	}
	if got := result.Payouts["btn"]; got != 500 {
		t.Errorf("btn payout = %d, want 500", got)
	}
	if got := result.Payouts["bb"]; got != 500 {
		t.Errorf("bb payout = %d, want 500", got)
	}
}

func TestOddChipButtonTakesOnlyWhenAlone(t *testing.T) {
	players := []*Player{
		{ID: "btn", Seat: 0, Status: StatusActive, TotalContribution: 50, HoleCards: []Card{"2c", "3d"}},
		{ID: "other", Seat: 1, Status: StatusActive, TotalContribution: 50, HoleCards: []Card{"4c", "5d"}},
		{ID: "folder", Seat: 2, Status: StatusFolded, TotalContribution: 1},
	}
	h := showdownHand(players, 101, royalBoard(), 0)

	result, err := h.settleShowdown()
	if err != nil {
		t.Fatalf("settleShowdown: %v", err)
	}
	// The 101-chip pot ties heads-up; the odd chip passes the button and
	// lands on the other winner.
	if got := result.Payouts["other"]; got != 51 {
		t.Errorf("other payout = %d, want 51", got)
	}
	if got := result.Payouts["btn"]; got != 50 {
		t.Errorf("btn payout = %d, want 50", got)
	}
}

func TestShowdownRevealOrderAndMucking(t *testing.T) {
	board := []Card{"2h", "7d", "9c", "Jh", "3s"}
	players := []*Player{
		{ID: "btn", Seat: 0, Status: StatusActive, TotalContribution: 100, HoleCards: []Card{"9d", "4c"}},
		{ID: "sb", Seat: 1, Status: StatusActive, TotalContribution: 100, HoleCards: []Card{"Ad", "Kc"}},
		{ID: "bb", Seat: 2, Status: StatusActive, TotalContribution: 100, HoleCards: []Card{"Jd", "Jc"}},
	}
	h := showdownHand(players, 300, board, 0)

	result, err := h.settleShowdown()
	if err != nil {
		t.Fatalf("settleShowdown: %v", err)
	}

	if len(result.Reveals) != 3 {
		t.Fatalf("got %d reveals, want 3", len(result.Reveals))
	}
	// No final-street aggression: first reveal is left of the button.
	if result.Reveals[0].PlayerID != "sb" || result.Reveals[0].Mucked {
		t.Errorf("first reveal = %+v, want sb shown", result.Reveals[0])
	}
	// bb beats the shown hand and wins, so shows.
	if result.Reveals[1].PlayerID != "bb" || result.Reveals[1].Mucked || !result.Reveals[1].IsWinner {
		t.Errorf("second reveal = %+v, want bb shown as winner", result.Reveals[1])
	}
	// btn loses to the shown hand and wins nothing, so mucks.
	if result.Reveals[2].PlayerID != "btn" || !result.Reveals[2].Mucked {
		t.Errorf("third reveal = %+v, want btn mucked", result.Reveals[2])
	}
	if got := result.Payouts["bb"]; got != 300 {
		t.Errorf("bb payout = %d, want 300", got)
	}
}

func TestShowdownAggressorShowsFirst(t *testing.T) {
	board := []Card{"2h", "7d", "9c", "Jh", "3s"}
	players := []*Player{
		{ID: "btn", Seat: 0, Status: StatusActive, TotalContribution: 100, HoleCards: []Card{"Jd", "Jc"}},
		{ID: "sb", Seat: 1, Status: StatusActive, TotalContribution: 100, HoleCards: []Card{"Ad", "Kc"}},
	}
	h := showdownHand(players, 200, board, 0)
	h.lastAggressor = players[0]

	result, err := h.settleShowdown()
	if err != nil {
		t.Fatalf("settleShowdown: %v", err)
	}
	if result.Reveals[0].PlayerID != "btn" {
		t.Errorf("first reveal = %s, want the aggressor", result.Reveals[0].PlayerID)
	}
	if !result.Reveals[1].Mucked {
		t.Error("beaten caller should muck")
	}
}

func TestRiverBettorShowsFirstAfterPlayedStreets(t *testing.T) {
	h, _ := newStartedHand(t, 4, 1000, 1000, 1000)

	mustAct := func(id string, action ActionType, amount int64) ActionResult {
		t.Helper()
		res, err := h.ProcessAction(id, action, amount)
		if err != nil {
			t.Fatalf("%s %s: %v", id, action, err)
		}
		return res
	}

	// Limped preflop, checked to the river.
	mustAct("a", ActionCall, 0)
	mustAct("b", ActionCall, 0)
	mustAct("c", ActionCheck, 0)
	for street := 0; street < 2; street++ {
		mustAct("b", ActionCheck, 0)
		mustAct("c", ActionCheck, 0)
		mustAct("a", ActionCheck, 0)
	}

	// River: the button bets, one call, one fold.
	mustAct("b", ActionCheck, 0)
	mustAct("c", ActionCheck, 0)
	mustAct("a", ActionBet, 100)
	mustAct("b", ActionCall, 0)
	res := mustAct("c", ActionFold, 0)

	if !res.HandEnded || res.Result == nil {
		t.Fatal("hand should settle after the river call")
	}
	if len(res.Result.Reveals) != 2 {
		t.Fatalf("got %d reveals, want 2", len(res.Result.Reveals))
	}
	if res.Result.Reveals[0].PlayerID != "a" {
		t.Errorf("first reveal = %s, want the river bettor a", res.Result.Reveals[0].PlayerID)
	}
	if res.Result.Reveals[0].Mucked {
		t.Error("the river bettor shows, never mucks")
	}
}

func TestRabbitHuntRevealsRemainingBoard(t *testing.T) {
	h, _ := newStartedHand(t, 11, 1000, 1000, 1000)

	if _, err := h.TriggerRabbitHunt(); err == nil {
		t.Fatal("rabbit hunt allowed mid-hand")
	}

	h.ProcessAction("a", ActionFold, 0)
	if _, err := h.ProcessAction("b", ActionFold, 0); err != nil {
		t.Fatalf("fold: %v", err)
	}

	cards, err := h.TriggerRabbitHunt()
	if err != nil {
		t.Fatalf("TriggerRabbitHunt: %v", err)
	}
	if len(cards) != 5 {
		t.Errorf("rabbit cards = %d, want 5 (full board)", len(cards))
	}
	if _, err := h.TriggerRabbitHunt(); err == nil {
		t.Error("rabbit hunt allowed twice")
	}
}

func TestRabbitHuntDisabledBySettings(t *testing.T) {
	players := []*Player{
		NewPlayer("a", "a", 0, 1000),
		NewPlayer("b", "b", 1, 1000),
	}
	cfg := testHandConfig(1)
	cfg.AllowRabbitHunt = false
	h, err := NewHand(players, cfg)
	if err != nil {
		t.Fatalf("NewHand: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := h.ProcessAction("a", ActionFold, 0); err != nil {
		t.Fatalf("fold: %v", err)
	}
	if _, err := h.TriggerRabbitHunt(); err == nil {
		t.Error("rabbit hunt should be disabled")
	}
}

func TestRunItTwiceSplitsPotAcrossBoards(t *testing.T) {
	h, players := newStartedHand(t, 3, 500, 500)

	h.ProcessAction("a", ActionAllIn, 0)
	res, err := h.ProcessAction("b", ActionCall, 0)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !res.NeedsRunout {
		t.Fatal("expected runout")
	}
	if !h.RunItTwiceApplicable() {
		t.Fatal("run it twice should be applicable")
	}
	if n := len(h.InvolvedPlayers()); n != 2 {
		t.Fatalf("involved players = %d, want 2", n)
	}

	result, err := h.ExecuteRunItTwice()
	if err != nil {
		t.Fatalf("ExecuteRunItTwice: %v", err)
	}
	if len(result.Run1.Board) != 5 || len(result.Run2.Board) != 5 {
		t.Errorf("boards = %d/%d cards, want 5/5",
			len(result.Run1.Board), len(result.Run2.Board))
	}

	var paid int64
	for _, amount := range result.Payouts {
		paid += amount
	}
	if paid != 1000 {
		t.Errorf("payouts = %d, want the whole 1000 pot", paid)
	}
	if total := totalChips(players, 0); total != 1000 {
		t.Errorf("chips not conserved: %d", total)
	}
	if len(result.Reveals) != 2 {
		t.Errorf("reveals = %d, want every all-in hand shown", len(result.Reveals))
	}
}

func TestRunItTwiceNotApplicableAfterRiver(t *testing.T) {
	h, _ := newStartedHand(t, 5, 1000, 1000)
	playToShowdown(t, h)
	if h.RunItTwiceApplicable() {
		t.Error("run it twice applicable after a completed hand")
	}
}

func TestProcessActionRejectsIllegalWithoutMutation(t *testing.T) {
	h, players := newStartedHand(t, 9, 1000, 1000, 1000)
	before := players[0].Chips

	_, err := h.ProcessAction("a", ActionCheck, 0)
	if !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("check facing the big blind: %v, want ErrIllegalAction", err)
	}
	if players[0].Chips != before {
		t.Error("stack changed on rejected action")
	}
	if cp := h.CurrentPlayer(); cp == nil || cp.ID != "a" {
		t.Errorf("turn moved on rejected action: %v", cp)
	}
}
