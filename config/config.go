package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the server configuration, loaded from YAML with sane
// defaults for every key.
type Config struct {
	Server struct {
		Addr string
	}
	Room struct {
		RetentionSeconds      int
		AutoStartDelaySeconds int
		RevealIntervalMillis  int
		RITVoteTimeoutSeconds int
	}
	Ledger struct {
		Enabled bool
		Path    string
	}
	Logging struct {
		Level string
	}
}

// Load reads the config file at path, or falls back to defaults when the
// file does not exist. Path "" means config/config.yaml.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("room.retentionseconds", 60)
	v.SetDefault("room.autostartdelayseconds", 5)
	v.SetDefault("room.revealintervalmillis", 800)
	v.SetDefault("room.ritvotetimeoutseconds", 15)
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", "pokerroom.db")
	v.SetDefault("logging.level", "info")

	if path == "" {
		path = "config/config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
