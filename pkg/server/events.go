package server

import (
	"pokerroom/pkg/poker"
)

// Event is an outbound room event. Name is the wire event tag.
type Event interface {
	Name() string
}

// Broadcaster delivers events to connections. The websocket hub satisfies
// it; tests substitute a recorder.
type Broadcaster interface {
	Send(connID, event string, data interface{})
	Broadcast(connIDs []string, event string, data interface{})
	CloseClient(connID string)
}

// PlayerView is the public projection of a player: no hole cards.
type PlayerView struct {
	ID         string `json:"id"`
	Nickname   string `json:"nickname"`
	Seat       int    `json:"seat"`
	Chips      int64  `json:"chips"`
	CurrentBet int64  `json:"currentBet"`
	Status     string `json:"status"`
	Position   string `json:"position,omitempty"`
	LastAction string `json:"lastAction,omitempty"`
	TimeBank   int64  `json:"timeBank"`
	Connected  bool   `json:"connected"`
	IsHost     bool   `json:"isHost"`
}

// ScoreboardEntry tracks a player's net result for the session, kept even
// for players who already left the table.
type ScoreboardEntry struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	BuyIn    int64  `json:"buyIn"`
	Chips    int64  `json:"chips"`
	Net      int64  `json:"net"`
	Active   bool   `json:"active"`
}

// RoomStateEvent is the full public snapshot, sent on join and reconnect.
type RoomStateEvent struct {
	RoomID         string            `json:"roomId"`
	HostID         string            `json:"hostId"`
	Players        []PlayerView      `json:"players"`
	CommunityCards []poker.Card      `json:"communityCards"`
	Pot            int64             `json:"pot"`
	CurrentBet     int64             `json:"currentBet"`
	MinRaise       int64             `json:"minRaise"`
	CurrentTurn    string            `json:"currentTurn,omitempty"`
	Street         string            `json:"street,omitempty"`
	DealerSeat     int               `json:"dealerSeat"`
	HandNum        int               `json:"handNum"`
	HandInProgress bool              `json:"handInProgress"`
	Paused         bool              `json:"paused"`
	Settings       Settings          `json:"settings"`
	Scoreboard     []ScoreboardEntry `json:"scoreboard"`
}

func (RoomStateEvent) Name() string { return "room-state" }

// RoomJoinedEvent is the private join acknowledgment carrying the
// player's identity and, mid-hand on reconnect, their hole cards.
type RoomJoinedEvent struct {
	PlayerID     string         `json:"playerId"`
	SessionToken string         `json:"sessionToken"`
	Nickname     string         `json:"nickname"`
	HoleCards    []poker.Card   `json:"holeCards,omitempty"`
	State        RoomStateEvent `json:"state"`
}

func (RoomJoinedEvent) Name() string { return "room-joined" }

type PlayerJoinedEvent struct {
	Player PlayerView `json:"player"`
}

func (PlayerJoinedEvent) Name() string { return "player-joined" }

type PlayerLeftEvent struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Reason   string `json:"reason"`
}

func (PlayerLeftEvent) Name() string { return "player-left" }

type NewHandEvent struct {
	HandNum    int          `json:"handNum"`
	DealerSeat int          `json:"dealerSeat"`
	SmallBlind int64        `json:"smallBlind"`
	BigBlind   int64        `json:"bigBlind"`
	Players    []PlayerView `json:"players"`
}

func (NewHandEvent) Name() string { return "new-hand" }

// DealCardsEvent is private: each player sees only their own cards.
type DealCardsEvent struct {
	Cards []poker.Card `json:"cards"`
}

func (DealCardsEvent) Name() string { return "deal-cards" }

type PlayerActedEvent struct {
	PlayerID   string `json:"playerId"`
	Action     string `json:"action"`
	Amount     int64  `json:"amount"`
	Pot        int64  `json:"pot"`
	CurrentBet int64  `json:"currentBet"`
	NextTurn   string `json:"nextTurn,omitempty"`
}

func (PlayerActedEvent) Name() string { return "player-acted" }

type CardRevealEvent struct {
	Street string       `json:"street"`
	Cards  []poker.Card `json:"cards"`
	Board  []poker.Card `json:"board"`
}

func (CardRevealEvent) Name() string { return "card-reveal" }

type PotView struct {
	Amount      int64    `json:"amount"`
	Winners     []string `json:"winners"`
	Description string   `json:"description,omitempty"`
}

type RevealView struct {
	PlayerID    string       `json:"playerId"`
	Nickname    string       `json:"nickname"`
	Cards       []poker.Card `json:"cards,omitempty"`
	Mucked      bool         `json:"mucked"`
	Description string       `json:"description,omitempty"`
	IsWinner    bool         `json:"isWinner"`
}

type HandCompleteEvent struct {
	HandNum    int               `json:"handNum"`
	Board      []poker.Card      `json:"board"`
	Pots       []PotView         `json:"pots"`
	Reveals    []RevealView      `json:"reveals"`
	Payouts    map[string]int64  `json:"payouts"`
	Showdown   bool              `json:"showdown"`
	Scoreboard []ScoreboardEntry `json:"scoreboard"`
}

func (HandCompleteEvent) Name() string { return "hand-complete" }

type TimerTickEvent struct {
	PlayerID      string `json:"playerId"`
	Remaining     int    `json:"remaining"`
	UsingTimeBank bool   `json:"usingTimeBank"`
	TimeBank      int64  `json:"timeBank"`
}

func (TimerTickEvent) Name() string { return "timer-tick" }

type PlayerTimeoutEvent struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
}

func (PlayerTimeoutEvent) Name() string { return "player-timeout" }

type RITPromptEvent struct {
	Involved []string `json:"involved"`
	Deadline int      `json:"deadlineSeconds"`
}

func (RITPromptEvent) Name() string { return "rit-prompt" }

type RITCompleteEvent struct {
	Run1Board []poker.Card     `json:"run1Board"`
	Run2Board []poker.Card     `json:"run2Board"`
	Run1Pots  []PotView        `json:"run1Pots"`
	Run2Pots  []PotView        `json:"run2Pots"`
	Reveals   []RevealView     `json:"reveals"`
	Payouts   map[string]int64 `json:"payouts"`
}

func (RITCompleteEvent) Name() string { return "rit-complete" }

type RabbitCardsEvent struct {
	RequestedBy string       `json:"requestedBy"`
	Cards       []poker.Card `json:"cards"`
}

func (RabbitCardsEvent) Name() string { return "rabbit-cards" }

type GamePausedEvent struct {
	Paused bool   `json:"paused"`
	By     string `json:"by"`
}

func (GamePausedEvent) Name() string { return "game-paused" }

type SettingsUpdatedEvent struct {
	Settings Settings `json:"settings"`
}

func (SettingsUpdatedEvent) Name() string { return "settings-updated" }

type BuyInRequestedEvent struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Amount   int64  `json:"amount"`
}

func (BuyInRequestedEvent) Name() string { return "buy-in-requested" }

type ChatMessageEvent struct {
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

func (ChatMessageEvent) Name() string { return "chat-message" }

type NotificationEvent struct {
	Message string `json:"message"`
}

func (NotificationEvent) Name() string { return "notification" }

type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) Name() string { return "error" }
