package server

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"

	"pokerroom/pkg/poker"
)

// HandRecorder persists buy-ins and hand results. The room works without
// one; a nil recorder disables persistence.
type HandRecorder interface {
	RecordBuyIn(roomID, playerID, nickname string, amount int64) error
	RecordHand(roomID string, handNum int, board string, payouts map[string]int64) error
}

// RoomConfig carries the wiring a room needs beyond its table settings.
type RoomConfig struct {
	Log slog.Logger
	// Retention is how long a disconnected player's seat and stack are
	// held before removal.
	Retention time.Duration
	// AutoStartDelay is the pause between a hand completing and the next
	// one starting automatically.
	AutoStartDelay time.Duration
	// RevealInterval paces the card-by-card reveal of an all-in runout.
	RevealInterval time.Duration
	// RITVoteTimeout bounds the run-it-twice vote.
	RITVoteTimeout time.Duration
	// TimerInterval is the action clock granularity, one second in
	// production.
	TimerInterval time.Duration
	// Seed fixes the shuffle for tests. Zero means time-seeded.
	Seed int64
	// Ledger, when set, records buy-ins and hand results.
	Ledger HandRecorder
	// OnEmpty is called after the last player leaves.
	OnEmpty func(roomID string)
}

// Room is one table. A single goroutine drains the mailbox; every
// mutation of room or hand state happens on it, and timer ticks and
// expiries are posted to it like any other command.
type Room struct {
	ID       string
	log      slog.Logger
	cfg      RoomConfig
	settings Settings
	bc       Broadcaster
	rng      *rand.Rand

	mailbox chan func()
	done    chan struct{}

	players   map[string]*poker.Player // by player id
	joinOrder []string
	tokens    map[string]string // session token -> player id
	conns     map[string]string // conn id -> player id
	retention map[string]*time.Timer
	buyIns    map[string]int64
	departed  []ScoreboardEntry

	pendingBuyIns  map[string]int64
	approvedBuyIns map[string]int64

	hostID         string
	hand           *poker.Hand
	handNum        int
	lastDealerSeat int
	paused         bool

	timer     *TurnTimer
	timerGen  uint64
	autoStart *time.Timer

	ritVotes    map[string]bool
	ritInvolved map[string]bool
	ritTimer    *time.Timer
}

// NewRoom creates a room and starts its goroutine.
func NewRoom(id string, settings Settings, bc Broadcaster, cfg RoomConfig) *Room {
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 60 * time.Second
	}
	if cfg.AutoStartDelay <= 0 {
		cfg.AutoStartDelay = 5 * time.Second
	}
	if cfg.RITVoteTimeout <= 0 {
		cfg.RITVoteTimeout = 15 * time.Second
	}

	r := &Room{
		ID:             id,
		log:            log,
		cfg:            cfg,
		settings:       settings,
		bc:             bc,
		rng:            rand.New(rand.NewSource(seed)),
		mailbox:        make(chan func(), 64),
		done:           make(chan struct{}),
		players:        make(map[string]*poker.Player),
		tokens:         make(map[string]string),
		conns:          make(map[string]string),
		retention:      make(map[string]*time.Timer),
		buyIns:         make(map[string]int64),
		pendingBuyIns:  make(map[string]int64),
		approvedBuyIns: make(map[string]int64),
		lastDealerSeat: -1,
		timer:          NewTurnTimer(cfg.TimerInterval),
	}
	go r.run()
	return r
}

func (r *Room) run() {
	for {
		select {
		case fn := <-r.mailbox:
			fn()
		case <-r.done:
			return
		}
	}
}

// post queues fn for the room goroutine.
func (r *Room) post(fn func()) {
	select {
	case r.mailbox <- fn:
	case <-r.done:
	}
}

// Close stops the room goroutine and its timers.
func (r *Room) Close() {
	r.timer.Stop()
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// RoomInfo is a point-in-time public summary of a room.
type RoomInfo struct {
	ID             string `json:"id"`
	Players        int    `json:"players"`
	HandNum        int    `json:"handNum"`
	HandInProgress bool   `json:"handInProgress"`
	Paused         bool   `json:"paused"`
}

// Info snapshots the room from its own goroutine.
func (r *Room) Info() RoomInfo {
	ch := make(chan RoomInfo, 1)
	r.post(func() {
		ch <- RoomInfo{
			ID:             r.ID,
			Players:        len(r.players),
			HandNum:        r.handNum,
			HandInProgress: r.handInProgress(),
			Paused:         r.paused,
		}
	})
	select {
	case info := <-ch:
		return info
	case <-r.done:
		return RoomInfo{ID: r.ID}
	}
}

// HandleCommand decodes and queues an inbound frame.
func (r *Room) HandleCommand(connID, event string, data []byte) {
	cmd, err := DecodeCommand(event, data)
	if err != nil {
		r.bc.Send(connID, "error", ErrorEvent{Message: err.Error()})
		return
	}
	r.post(func() { r.dispatch(connID, cmd) })
}

// HandleDisconnect queues the disconnect of a connection.
func (r *Room) HandleDisconnect(connID string) {
	r.post(func() { r.handleDisconnect(connID) })
}

// Join queues a join for a connection already routed to this room.
func (r *Room) Join(connID string, cmd JoinRoomCmd) {
	r.post(func() { r.handleJoin(connID, cmd) })
}

func (r *Room) dispatch(connID string, cmd interface{}) {
	switch c := cmd.(type) {
	case *JoinRoomCmd:
		r.handleJoin(connID, *c)
	case *SitDownCmd:
		r.handleSitDown(connID, *c)
	case *StandUpCmd:
		r.handleStandUp(connID)
	case *StartHandCmd:
		r.handleStartHand(connID)
	case *PlayerActionCmd:
		r.handleAction(connID, *c)
	case *RabbitHuntCmd:
		r.handleRabbitHunt(connID)
	case *RITResponseCmd:
		r.handleRITResponse(connID, *c)
	case *RequestBuyInCmd:
		r.handleRequestBuyIn(connID, *c)
	case *ApproveBuyInCmd:
		r.handleApproveBuyIn(connID, *c)
	case *PauseGameCmd:
		r.handlePause(connID, *c)
	case *UpdateSettingsCmd:
		r.handleUpdateSettings(connID, *c)
	case *ChatCmd:
		r.handleChat(connID, *c)
	default:
		r.sendError(connID, "unsupported command")
	}
}

// --- helpers ---

func (r *Room) playerByConn(connID string) *poker.Player {
	id, ok := r.conns[connID]
	if !ok {
		return nil
	}
	return r.players[id]
}

func (r *Room) connectedIDs() []string {
	out := make([]string, 0, len(r.conns))
	for connID := range r.conns {
		out = append(out, connID)
	}
	return out
}

func (r *Room) broadcastEvent(ev Event) {
	r.bc.Broadcast(r.connectedIDs(), ev.Name(), ev)
}

func (r *Room) sendEvent(connID string, ev Event) {
	r.bc.Send(connID, ev.Name(), ev)
}

func (r *Room) sendError(connID, msg string) {
	r.bc.Send(connID, "error", ErrorEvent{Message: msg})
}

func (r *Room) notify(format string, args ...interface{}) {
	r.broadcastEvent(NotificationEvent{Message: fmt.Sprintf(format, args...)})
}

// stopTimer disarms the action clock and invalidates any expiry already
// queued on the mailbox.
func (r *Room) stopTimer() int64 {
	used := r.timer.Stop()
	r.timerGen = 0
	return used
}

func (r *Room) handInProgress() bool {
	return r.hand != nil && r.hand.Street() != poker.Complete
}

func (r *Room) playerView(p *poker.Player) PlayerView {
	return PlayerView{
		ID:         p.ID,
		Nickname:   p.Nickname,
		Seat:       p.Seat,
		Chips:      p.Chips,
		CurrentBet: p.CurrentBet,
		Status:     string(p.Status),
		Position:   p.Position,
		LastAction: string(p.LastAction),
		TimeBank:   p.TimeBank,
		Connected:  p.Connected,
		IsHost:     p.ID == r.hostID,
	}
}

func (r *Room) playerViews() []PlayerView {
	ids := make([]*poker.Player, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := ids[i].Seat, ids[j].Seat
		if si < 0 {
			si = 1 << 10
		}
		if sj < 0 {
			sj = 1 << 10
		}
		if si != sj {
			return si < sj
		}
		return ids[i].ID < ids[j].ID
	})
	views := make([]PlayerView, len(ids))
	for i, p := range ids {
		views[i] = r.playerView(p)
	}
	return views
}

func (r *Room) scoreboard() []ScoreboardEntry {
	entries := append([]ScoreboardEntry{}, r.departed...)
	for _, p := range r.players {
		entries = append(entries, ScoreboardEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			BuyIn:    r.buyIns[p.ID],
			Chips:    p.Chips,
			Net:      p.Chips - r.buyIns[p.ID],
			Active:   p.Connected && p.Seat >= 0,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Net > entries[j].Net })
	return entries
}

func (r *Room) stateEvent() RoomStateEvent {
	ev := RoomStateEvent{
		RoomID:         r.ID,
		HostID:         r.hostID,
		Players:        r.playerViews(),
		DealerSeat:     r.lastDealerSeat,
		HandNum:        r.handNum,
		HandInProgress: r.handInProgress(),
		Paused:         r.paused,
		Settings:       r.settings,
		Scoreboard:     r.scoreboard(),
	}
	if r.hand != nil {
		ev.CommunityCards = r.hand.CommunityCards()
		ev.Pot = r.hand.Pot()
		ev.CurrentBet = r.hand.CurrentBet()
		ev.MinRaise = r.hand.MinRaise()
		ev.Street = r.hand.Street().String()
		ev.DealerSeat = r.hand.DealerSeat()
		if cp := r.hand.CurrentPlayer(); cp != nil {
			ev.CurrentTurn = cp.ID
		}
	}
	return ev
}

func (r *Room) broadcastState() {
	r.broadcastEvent(r.stateEvent())
}

// --- join / leave ---

func (r *Room) handleJoin(connID string, cmd JoinRoomCmd) {
	token := cmd.SessionToken
	if token == "" {
		token = uuid.NewString()
	}

	if id, ok := r.tokens[token]; ok {
		r.rebind(connID, id)
		return
	}

	nickname := cmd.Nickname
	if nickname == "" {
		nickname = fmt.Sprintf("Player %d", len(r.players)+1)
	}

	p := poker.NewPlayer(uuid.NewString(), nickname, -1, 0)
	p.SessionToken = token
	p.ConnID = connID
	p.TimeBank = r.settings.TimeBank

	r.players[p.ID] = p
	r.joinOrder = append(r.joinOrder, p.ID)
	r.tokens[token] = p.ID
	r.conns[connID] = p.ID
	if r.hostID == "" {
		r.hostID = p.ID
	}

	r.log.Infof("room %s: %s joined as %s", r.ID, nickname, p.ID)
	r.sendEvent(connID, RoomJoinedEvent{
		PlayerID:     p.ID,
		SessionToken: token,
		Nickname:     nickname,
		State:        r.stateEvent(),
	})
	r.broadcastEvent(PlayerJoinedEvent{Player: r.playerView(p)})
}

// rebind points an existing identity at a new connection. The newer
// connection wins; any older one is closed.
func (r *Room) rebind(connID, playerID string) {
	p := r.players[playerID]

	if p.ConnID != "" && p.ConnID != connID {
		delete(r.conns, p.ConnID)
		r.bc.CloseClient(p.ConnID)
	}
	p.ConnID = connID
	p.Connected = true
	r.conns[connID] = playerID

	if t, ok := r.retention[playerID]; ok {
		t.Stop()
		delete(r.retention, playerID)
	}

	ev := RoomJoinedEvent{
		PlayerID:     p.ID,
		SessionToken: p.SessionToken,
		Nickname:     p.Nickname,
		State:        r.stateEvent(),
	}
	if r.handInProgress() && p.InHand() {
		ev.HoleCards = p.HoleCards
	}
	r.sendEvent(connID, ev)
	r.notify("%s reconnected", p.Nickname)
	r.broadcastState()
	r.log.Debugf("room %s: %s rebound to conn %s", r.ID, playerID, connID)
}

func (r *Room) handleDisconnect(connID string) {
	id, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)
	p := r.players[id]
	if p.ConnID != connID {
		// Already superseded by a newer connection.
		return
	}
	p.ConnID = ""
	p.Connected = false

	r.notify("%s disconnected", p.Nickname)
	r.broadcastState()

	r.retention[id] = time.AfterFunc(r.cfg.Retention, func() {
		r.post(func() { r.expireRetention(id) })
	})
}

func (r *Room) expireRetention(playerID string) {
	p, ok := r.players[playerID]
	if !ok || p.Connected {
		return
	}
	if r.handInProgress() && p.InHand() {
		// The hand may still owe this player chips: an all-in stack rides
		// out the runout, and during one even an out-of-turn fold is a
		// no-op. Retry removal once the hand settles.
		r.retention[playerID] = time.AfterFunc(2*time.Second, func() {
			r.post(func() { r.expireRetention(playerID) })
		})
		return
	}
	delete(r.retention, playerID)
	r.removePlayer(p, "disconnect timeout")
}

func (r *Room) removePlayer(p *poker.Player, reason string) {
	if r.handInProgress() && p.InHand() {
		wasTurn := false
		if cp := r.hand.CurrentPlayer(); cp != nil && cp.ID == p.ID {
			wasTurn = true
		}
		res, err := r.hand.Retire(p.ID)
		if err != nil {
			r.log.Errorf("room %s: retiring %s: %v", r.ID, p.ID, err)
		} else {
			if wasTurn {
				r.stopTimer()
			}
			r.afterAction(res, wasTurn)
		}
	}

	r.departed = append(r.departed, ScoreboardEntry{
		PlayerID: p.ID,
		Nickname: p.Nickname,
		BuyIn:    r.buyIns[p.ID],
		Chips:    p.Chips,
		Net:      p.Chips - r.buyIns[p.ID],
	})

	delete(r.players, p.ID)
	delete(r.tokens, p.SessionToken)
	delete(r.pendingBuyIns, p.ID)
	delete(r.approvedBuyIns, p.ID)
	if p.ConnID != "" {
		delete(r.conns, p.ConnID)
	}
	for i, id := range r.joinOrder {
		if id == p.ID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	if r.hostID == p.ID {
		r.hostID = ""
		if len(r.joinOrder) > 0 {
			r.hostID = r.joinOrder[0]
			if host := r.players[r.hostID]; host != nil {
				r.notify("%s is now the host", host.Nickname)
			}
		}
	}

	r.broadcastEvent(PlayerLeftEvent{PlayerID: p.ID, Nickname: p.Nickname, Reason: reason})
	r.broadcastState()
	r.log.Infof("room %s: removed %s (%s)", r.ID, p.ID, reason)

	if len(r.players) == 0 {
		if r.cfg.OnEmpty != nil {
			r.cfg.OnEmpty(r.ID)
		}
		r.Close()
	}
}

// --- seating ---

func (r *Room) handleSitDown(connID string, cmd SitDownCmd) {
	p := r.playerByConn(connID)
	if p == nil {
		r.sendError(connID, "join the room first")
		return
	}
	if p.Seat >= 0 {
		r.sendError(connID, "already seated")
		return
	}
	if cmd.Seat < 0 || cmd.Seat >= r.settings.MaxPlayers {
		r.sendError(connID, fmt.Sprintf("seat must be 0-%d", r.settings.MaxPlayers-1))
		return
	}
	for _, other := range r.players {
		if other.Seat == cmd.Seat {
			r.sendError(connID, "seat taken")
			return
		}
	}

	if p.Chips == 0 {
		if cmd.BuyIn <= 0 {
			r.sendError(connID, "buy-in required")
			return
		}
		p.Chips = cmd.BuyIn
		r.buyIns[p.ID] += cmd.BuyIn
		r.recordBuyIn(p, cmd.BuyIn)
	}

	p.Seat = cmd.Seat
	p.StandUpNextHand = false
	if r.handInProgress() {
		p.Status = poker.StatusWaitingNextHand
	} else {
		p.Status = poker.StatusWaiting
	}

	r.notify("%s sat down at seat %d", p.Nickname, p.Seat)
	r.broadcastState()
}

func (r *Room) handleStandUp(connID string) {
	p := r.playerByConn(connID)
	if p == nil || p.Seat < 0 {
		r.sendError(connID, "not seated")
		return
	}
	if r.handInProgress() && p.InHand() {
		p.StandUpNextHand = true
		r.notify("%s will stand up after this hand", p.Nickname)
		return
	}
	r.standUpNow(p)
	r.broadcastState()
}

func (r *Room) standUpNow(p *poker.Player) {
	p.Seat = -1
	p.Status = poker.StatusWaiting
	p.StandUpNextHand = false
	p.Position = ""
	r.notify("%s stood up", p.Nickname)
}

// --- hand lifecycle ---

func (r *Room) handleStartHand(connID string) {
	p := r.playerByConn(connID)
	if p == nil {
		r.sendError(connID, "join the room first")
		return
	}
	if p.ID != r.hostID {
		r.sendError(connID, "only the host can start the hand")
		return
	}
	if err := r.startHand(); err != nil {
		r.sendError(connID, err.Error())
	}
}

func (r *Room) startHand() error {
	if r.handInProgress() {
		return fmt.Errorf("hand already in progress")
	}
	if r.paused {
		return fmt.Errorf("game is paused")
	}
	if r.settings.HandLimit > 0 && r.handNum >= r.settings.HandLimit {
		return fmt.Errorf("hand limit of %d reached", r.settings.HandLimit)
	}
	r.cancelAutoStart()

	if len(r.seatedForNextHand()) < 2 {
		return fmt.Errorf("need at least 2 seated players with chips")
	}

	// Only a hand that actually starts lands queued buy-ins and recharges
	// timebanks.
	r.applyApprovedBuyIns()
	r.rechargeTimeBanks()
	players := r.seatedForNextHand()

	hand, err := poker.NewHand(players, poker.HandConfig{
		Log:             r.log,
		SmallBlind:      r.settings.SmallBlind,
		BigBlind:        r.settings.BigBlind,
		PrevDealerSeat:  r.lastDealerSeat,
		AllowRabbitHunt: r.settings.AllowRabbitHunt,
		AllowRunItTwice: r.settings.AllowRunItTwice,
		Rand:            r.rng,
	})
	if err != nil {
		return err
	}
	if err := hand.Start(); err != nil {
		return err
	}

	r.hand = hand
	r.handNum++
	r.ritVotes = nil
	r.ritInvolved = nil

	views := make([]PlayerView, len(players))
	for i, p := range players {
		views[i] = r.playerView(p)
	}
	r.broadcastEvent(NewHandEvent{
		HandNum:    r.handNum,
		DealerSeat: hand.DealerSeat(),
		SmallBlind: r.settings.SmallBlind,
		BigBlind:   r.settings.BigBlind,
		Players:    views,
	})
	for _, p := range players {
		if p.ConnID != "" {
			r.sendEvent(p.ConnID, DealCardsEvent{Cards: p.HoleCards})
		}
	}
	r.broadcastState()
	r.armTimer()
	r.log.Infof("room %s: hand %d started, %d players", r.ID, r.handNum, len(players))
	return nil
}

// seatedForNextHand returns the players dealt into the next hand in
// clockwise seat order. A busted player with an approved buy-in queued
// counts: the chips land when the hand starts.
func (r *Room) seatedForNextHand() []*poker.Player {
	var out []*poker.Player
	for _, p := range r.players {
		if p.Seat < 0 || p.StandUpNextHand {
			continue
		}
		if p.Chips <= 0 && r.approvedBuyIns[p.ID] <= 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out
}

func (r *Room) applyApprovedBuyIns() {
	for id, amount := range r.approvedBuyIns {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		p.Chips += amount
		r.buyIns[id] += amount
		r.recordBuyIn(p, amount)
		r.notify("%s added %d chips", p.Nickname, amount)
	}
	r.approvedBuyIns = make(map[string]int64)
}

// rechargeTimeBanks tops up a fifth of the full bank per hand, capped.
func (r *Room) rechargeTimeBanks() {
	refill := r.settings.TimeBank / 5
	for _, p := range r.players {
		if p.Seat < 0 {
			continue
		}
		p.TimeBank += refill
		if p.TimeBank > r.settings.TimeBank {
			p.TimeBank = r.settings.TimeBank
		}
	}
}

func (r *Room) recordBuyIn(p *poker.Player, amount int64) {
	if r.cfg.Ledger == nil {
		return
	}
	if err := r.cfg.Ledger.RecordBuyIn(r.ID, p.ID, p.Nickname, amount); err != nil {
		r.log.Errorf("room %s: recording buy-in: %v", r.ID, err)
	}
}

// --- actions ---

func (r *Room) handleAction(connID string, cmd PlayerActionCmd) {
	p := r.playerByConn(connID)
	if p == nil {
		r.sendError(connID, "join the room first")
		return
	}
	if !r.handInProgress() {
		r.sendError(connID, "no hand in progress")
		return
	}

	res, err := r.hand.ProcessAction(p.ID, poker.ActionType(cmd.Action), cmd.Amount)
	if err != nil {
		// The action clock keeps running for the same player.
		r.sendError(connID, err.Error())
		return
	}

	used := r.stopTimer()
	r.deductTimeBank(p, used)

	r.broadcastActed(res)
	r.afterAction(res, true)
}

func (r *Room) deductTimeBank(p *poker.Player, used int64) {
	p.TimeBank -= used
	if p.TimeBank < 0 {
		p.TimeBank = 0
	}
}

func (r *Room) broadcastActed(res poker.ActionResult) {
	ev := PlayerActedEvent{
		PlayerID:   res.Applied.PlayerID,
		Action:     string(res.Applied.Action),
		Amount:     res.Applied.Amount,
		Pot:        r.hand.Pot(),
		CurrentBet: r.hand.CurrentBet(),
	}
	if cp := r.hand.CurrentPlayer(); cp != nil && !res.HandEnded {
		ev.NextTurn = cp.ID
	}
	r.broadcastEvent(ev)
}

// afterAction carries the hand forward from an applied action or
// retirement. rearm controls whether a surviving turn re-arms the clock.
func (r *Room) afterAction(res poker.ActionResult, rearm bool) {
	if len(res.DealtCards) > 0 {
		r.broadcastEvent(CardRevealEvent{
			Street: res.Street.String(),
			Cards:  res.DealtCards,
			Board:  r.hand.CommunityCards(),
		})
	}

	switch {
	case res.HandEnded:
		r.finishHand(res.Result)
	case res.NeedsRunout:
		r.stopTimer()
		if r.hand.RunItTwiceApplicable() && r.allInvolvedConnected() {
			r.beginRITVote()
		} else {
			r.beginRunout()
		}
	default:
		if rearm {
			r.broadcastState()
			r.armTimer()
		}
	}
}

func (r *Room) armTimer() {
	cp := r.hand.CurrentPlayer()
	if cp == nil {
		return
	}

	// Ticks go through the mailbox so the connection list is resolved at
	// broadcast time and reconnected clients hear the live clock.
	r.timerGen = r.timer.Start(cp.ID, r.settings.ActionTimer, cp.TimeBank,
		func(tick TickInfo) {
			r.post(func() {
				r.broadcastEvent(TimerTickEvent{
					PlayerID:      tick.PlayerID,
					Remaining:     tick.Remaining,
					UsingTimeBank: tick.UsingTimeBank,
					TimeBank:      tick.TimeBank,
				})
			})
		},
		func(gen uint64) {
			r.post(func() { r.handleTimeout(gen) })
		})
}

// handleTimeout folds a player whose clock and timebank ran out, even
// when checking would be free. A stale generation means the player acted
// first.
func (r *Room) handleTimeout(gen uint64) {
	if gen != r.timerGen || !r.handInProgress() {
		return
	}
	cp := r.hand.CurrentPlayer()
	if cp == nil {
		return
	}

	used := r.stopTimer()
	r.deductTimeBank(cp, used)

	res, err := r.hand.ProcessAction(cp.ID, poker.ActionFold, 0)
	if err != nil {
		r.log.Errorf("room %s: timeout fold for %s: %v", r.ID, cp.ID, err)
		return
	}

	r.broadcastEvent(PlayerTimeoutEvent{PlayerID: cp.ID, Action: string(poker.ActionFold)})
	r.broadcastActed(res)
	r.afterAction(res, true)
}

// --- runout and run-it-twice ---

func (r *Room) allInvolvedConnected() bool {
	for _, p := range r.hand.InvolvedPlayers() {
		if !p.Connected {
			return false
		}
	}
	return true
}

func (r *Room) beginRITVote() {
	involved := r.hand.InvolvedPlayers()
	r.ritVotes = make(map[string]bool)
	r.ritInvolved = make(map[string]bool)
	ids := make([]string, len(involved))
	for i, p := range involved {
		r.ritInvolved[p.ID] = true
		ids[i] = p.ID
	}

	deadline := int(r.cfg.RITVoteTimeout / time.Second)
	for _, p := range involved {
		if p.ConnID != "" {
			r.sendEvent(p.ConnID, RITPromptEvent{Involved: ids, Deadline: deadline})
		}
	}
	r.notify("run it twice? waiting for all-in players")

	r.ritTimer = time.AfterFunc(r.cfg.RITVoteTimeout, func() {
		r.post(r.ritVoteTimeout)
	})
}

func (r *Room) ritVoteTimeout() {
	if r.ritInvolved == nil {
		return
	}
	r.clearRITVote()
	r.notify("run it twice declined (timeout)")
	r.beginRunout()
}

func (r *Room) clearRITVote() {
	if r.ritTimer != nil {
		r.ritTimer.Stop()
		r.ritTimer = nil
	}
	r.ritVotes = nil
	r.ritInvolved = nil
}

func (r *Room) handleRITResponse(connID string, cmd RITResponseCmd) {
	p := r.playerByConn(connID)
	if p == nil || r.ritInvolved == nil || !r.ritInvolved[p.ID] {
		r.sendError(connID, "no run-it-twice vote pending for you")
		return
	}

	if !cmd.Accept {
		r.clearRITVote()
		r.notify("%s declined to run it twice", p.Nickname)
		r.beginRunout()
		return
	}

	r.ritVotes[p.ID] = true
	if len(r.ritVotes) < len(r.ritInvolved) {
		return
	}

	r.clearRITVote()
	result, err := r.hand.ExecuteRunItTwice()
	if err != nil {
		r.log.Errorf("room %s: run it twice: %v", r.ID, err)
		r.beginRunout()
		return
	}

	r.broadcastEvent(RITCompleteEvent{
		Run1Board: result.Run1.Board,
		Run2Board: result.Run2.Board,
		Run1Pots:  potViews(result.Run1.Pots),
		Run2Pots:  potViews(result.Run2.Pots),
		Reveals:   revealViews(result.Reveals),
		Payouts:   result.Payouts,
	})
	r.finishHand(r.hand.Result())
}

// beginRunout deals the rest of the board with a pause between streets so
// clients can present each reveal.
func (r *Room) beginRunout() {
	cards := r.hand.RunOutBoard()
	steps := runoutSteps(len(r.hand.CommunityCards()), cards)
	r.applyRunoutStep(steps, 0)
}

// runoutSteps groups runout cards into street-sized reveals.
func runoutSteps(boardLen int, cards []poker.Card) [][]poker.Card {
	var steps [][]poker.Card
	i := 0
	if boardLen == 0 && len(cards) >= 3 {
		steps = append(steps, cards[:3])
		i = 3
	}
	for ; i < len(cards); i++ {
		steps = append(steps, cards[i:i+1])
	}
	return steps
}

func (r *Room) applyRunoutStep(steps [][]poker.Card, i int) {
	if i >= len(steps) {
		result, err := r.hand.ResolveRunout()
		if err != nil {
			r.log.Errorf("room %s: resolving runout: %v", r.ID, err)
			return
		}
		r.finishHand(result)
		return
	}

	for _, c := range steps[i] {
		r.hand.AddCommunityCard(c)
	}
	street := poker.Flop
	switch len(r.hand.CommunityCards()) {
	case 4:
		street = poker.Turn
	case 5:
		street = poker.River
	}
	r.broadcastEvent(CardRevealEvent{
		Street: street.String(),
		Cards:  steps[i],
		Board:  r.hand.CommunityCards(),
	})

	if r.cfg.RevealInterval <= 0 {
		r.applyRunoutStep(steps, i+1)
		return
	}
	time.AfterFunc(r.cfg.RevealInterval, func() {
		r.post(func() { r.applyRunoutStep(steps, i+1) })
	})
}

// --- hand completion ---

func (r *Room) finishHand(result *poker.HandResult) {
	r.stopTimer()

	r.broadcastEvent(HandCompleteEvent{
		HandNum:    r.handNum,
		Board:      result.Board,
		Pots:       potViews(result.Pots),
		Reveals:    revealViews(result.Reveals),
		Payouts:    result.Payouts,
		Showdown:   result.Showdown,
		Scoreboard: r.scoreboard(),
	})
	r.recordHand(result)

	r.lastDealerSeat = r.hand.DealerSeat()

	for _, p := range r.players {
		if p.Seat < 0 {
			continue
		}
		if p.Chips == 0 {
			r.notify("%s busted", p.Nickname)
			r.standUpNow(p)
			continue
		}
		if p.StandUpNextHand {
			r.standUpNow(p)
		}
	}

	r.broadcastState()

	if r.settings.HandLimit > 0 && r.handNum >= r.settings.HandLimit {
		r.notify("hand limit of %d reached", r.settings.HandLimit)
		return
	}
	r.scheduleAutoStart()
}

func (r *Room) recordHand(result *poker.HandResult) {
	if r.cfg.Ledger == nil {
		return
	}
	board := ""
	for i, c := range result.Board {
		if i > 0 {
			board += " "
		}
		board += string(c)
	}
	if err := r.cfg.Ledger.RecordHand(r.ID, r.handNum, board, result.Payouts); err != nil {
		r.log.Errorf("room %s: recording hand %d: %v", r.ID, r.handNum, err)
	}
}

func (r *Room) scheduleAutoStart() {
	if r.paused || len(r.seatedForNextHand()) < 2 {
		return
	}
	r.cancelAutoStart()
	r.autoStart = time.AfterFunc(r.cfg.AutoStartDelay, func() {
		r.post(func() {
			if r.handInProgress() || r.paused {
				return
			}
			if err := r.startHand(); err != nil {
				r.log.Debugf("room %s: auto-start skipped: %v", r.ID, err)
			}
		})
	})
}

func (r *Room) cancelAutoStart() {
	if r.autoStart != nil {
		r.autoStart.Stop()
		r.autoStart = nil
	}
}

// --- table management ---

func (r *Room) handleRabbitHunt(connID string) {
	p := r.playerByConn(connID)
	if p == nil {
		r.sendError(connID, "join the room first")
		return
	}
	if r.hand == nil {
		r.sendError(connID, "no hand to rabbit hunt")
		return
	}
	cards, err := r.hand.TriggerRabbitHunt()
	if err != nil {
		r.sendError(connID, err.Error())
		return
	}
	r.broadcastEvent(RabbitCardsEvent{RequestedBy: p.ID, Cards: cards})
}

func (r *Room) handleRequestBuyIn(connID string, cmd RequestBuyInCmd) {
	p := r.playerByConn(connID)
	if p == nil {
		r.sendError(connID, "join the room first")
		return
	}
	if cmd.Amount <= 0 {
		r.sendError(connID, "buy-in must be positive")
		return
	}
	r.pendingBuyIns[p.ID] = cmd.Amount

	if host, ok := r.players[r.hostID]; ok && host.ConnID != "" {
		r.sendEvent(host.ConnID, BuyInRequestedEvent{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Amount:   cmd.Amount,
		})
	}
}

func (r *Room) handleApproveBuyIn(connID string, cmd ApproveBuyInCmd) {
	p := r.playerByConn(connID)
	if p == nil || p.ID != r.hostID {
		r.sendError(connID, "only the host can approve buy-ins")
		return
	}
	amount, ok := r.pendingBuyIns[cmd.PlayerID]
	if !ok {
		r.sendError(connID, "no pending buy-in for that player")
		return
	}
	delete(r.pendingBuyIns, cmd.PlayerID)

	target := r.players[cmd.PlayerID]
	if target == nil {
		return
	}
	if !cmd.Approve {
		r.notify("buy-in for %s declined", target.Nickname)
		return
	}
	// Chips land at the start of the next hand so a live hand's pots
	// stay consistent.
	r.approvedBuyIns[cmd.PlayerID] += amount
	r.notify("buy-in of %d for %s approved", amount, target.Nickname)
}

func (r *Room) handlePause(connID string, cmd PauseGameCmd) {
	p := r.playerByConn(connID)
	if p == nil || p.ID != r.hostID {
		r.sendError(connID, "only the host can pause the game")
		return
	}
	r.paused = cmd.Paused
	r.broadcastEvent(GamePausedEvent{Paused: r.paused, By: p.ID})
	if r.paused {
		r.cancelAutoStart()
	} else if !r.handInProgress() {
		r.scheduleAutoStart()
	}
}

func (r *Room) handleUpdateSettings(connID string, cmd UpdateSettingsCmd) {
	p := r.playerByConn(connID)
	if p == nil || p.ID != r.hostID {
		r.sendError(connID, "only the host can change settings")
		return
	}
	if err := cmd.Settings.Validate(); err != nil {
		r.sendError(connID, err.Error())
		return
	}
	r.settings = cmd.Settings
	r.broadcastEvent(SettingsUpdatedEvent{Settings: r.settings})
}

func (r *Room) handleChat(connID string, cmd ChatCmd) {
	p := r.playerByConn(connID)
	if p == nil {
		r.sendError(connID, "join the room first")
		return
	}
	if cmd.Message == "" {
		return
	}
	r.broadcastEvent(ChatMessageEvent{
		PlayerID: p.ID,
		Nickname: p.Nickname,
		Message:  cmd.Message,
	})
}

// --- view converters ---

func potViews(pots []poker.PotResult) []PotView {
	out := make([]PotView, len(pots))
	for i, p := range pots {
		out[i] = PotView{Amount: p.Amount, Winners: p.Winners, Description: p.Description}
	}
	return out
}

func revealViews(reveals []poker.Reveal) []RevealView {
	out := make([]RevealView, len(reveals))
	for i, rv := range reveals {
		out[i] = RevealView{
			PlayerID:    rv.PlayerID,
			Nickname:    rv.Nickname,
			Cards:       rv.Cards,
			Mucked:      rv.Mucked,
			Description: rv.Description,
			IsWinner:    rv.IsWinner,
		}
	}
	return out
}
