package server

import (
	"fmt"
)

// Settings are the host-tunable table rules. Blind and settings changes
// take effect at the next hand.
type Settings struct {
	SmallBlind      int64 `json:"smallBlind" mapstructure:"smallBlind"`
	BigBlind        int64 `json:"bigBlind" mapstructure:"bigBlind"`
	ActionTimer     int   `json:"actionTimer" mapstructure:"actionTimer"`
	TimeBank        int64 `json:"timeBank" mapstructure:"timeBank"`
	AllowRunItTwice bool  `json:"allowRunItTwice" mapstructure:"allowRunItTwice"`
	AllowRabbitHunt bool  `json:"allowRabbitHunt" mapstructure:"allowRabbitHunt"`
	HandLimit       int   `json:"handLimit" mapstructure:"handLimit"`
	MaxPlayers      int   `json:"maxPlayers" mapstructure:"maxPlayers"`
}

// DefaultSettings returns the table defaults for a new room.
func DefaultSettings() Settings {
	return Settings{
		SmallBlind:      10,
		BigBlind:        20,
		ActionTimer:     15,
		TimeBank:        10,
		AllowRunItTwice: true,
		AllowRabbitHunt: true,
		HandLimit:       0,
		MaxPlayers:      10,
	}
}

// Validate checks the settings are playable.
func (s Settings) Validate() error {
	if s.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive, got %d", s.SmallBlind)
	}
	if s.BigBlind < s.SmallBlind {
		return fmt.Errorf("big blind %d must be at least the small blind %d", s.BigBlind, s.SmallBlind)
	}
	if s.ActionTimer <= 0 {
		return fmt.Errorf("action timer must be positive, got %d", s.ActionTimer)
	}
	if s.TimeBank < 0 {
		return fmt.Errorf("time bank cannot be negative, got %d", s.TimeBank)
	}
	if s.MaxPlayers < 2 || s.MaxPlayers > 10 {
		return fmt.Errorf("max players must be 2-10, got %d", s.MaxPlayers)
	}
	if s.HandLimit < 0 {
		return fmt.Errorf("hand limit cannot be negative, got %d", s.HandLimit)
	}
	return nil
}
