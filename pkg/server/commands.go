package server

import (
	"encoding/json"
	"fmt"
)

// Inbound command payloads, decoded from websocket frames by event tag.

type JoinRoomCmd struct {
	RoomID       string `json:"roomId"`
	SessionToken string `json:"sessionToken"`
	Nickname     string `json:"nickname"`
}

type SitDownCmd struct {
	Seat  int   `json:"seat"`
	BuyIn int64 `json:"buyIn"`
}

type StandUpCmd struct{}

type StartHandCmd struct{}

type PlayerActionCmd struct {
	Action string `json:"action"`
	Amount int64  `json:"amount"`
}

type RabbitHuntCmd struct{}

type RITResponseCmd struct {
	Accept bool `json:"accept"`
}

type RequestBuyInCmd struct {
	Amount int64 `json:"amount"`
}

type ApproveBuyInCmd struct {
	PlayerID string `json:"playerId"`
	Approve  bool   `json:"approve"`
}

type PauseGameCmd struct {
	Paused bool `json:"paused"`
}

type UpdateSettingsCmd struct {
	Settings Settings `json:"settings"`
}

type ChatCmd struct {
	Message string `json:"message"`
}

// DecodeCommand parses an inbound frame's payload by its event tag.
func DecodeCommand(event string, data json.RawMessage) (interface{}, error) {
	var cmd interface{}
	switch event {
	case "join-room":
		cmd = &JoinRoomCmd{}
	case "sit-down":
		cmd = &SitDownCmd{}
	case "stand-up":
		cmd = &StandUpCmd{}
	case "start-hand":
		cmd = &StartHandCmd{}
	case "player-action":
		cmd = &PlayerActionCmd{}
	case "rabbit-hunt":
		cmd = &RabbitHuntCmd{}
	case "rit-response":
		cmd = &RITResponseCmd{}
	case "request-buy-in":
		cmd = &RequestBuyInCmd{}
	case "approve-buy-in":
		cmd = &ApproveBuyInCmd{}
	case "pause-game":
		cmd = &PauseGameCmd{}
	case "update-settings":
		cmd = &UpdateSettingsCmd{}
	case "chat-message":
		cmd = &ChatCmd{}
	default:
		return nil, fmt.Errorf("unknown event %q", event)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, cmd); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", event, err)
		}
	}
	return cmd, nil
}
