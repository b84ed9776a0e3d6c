// Package config loads wayfare-chat configuration from a JSON file with an
// environment variable overlay.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Chat        ChatConfig        `json:"chat"`
	Persistence PersistenceConfig `json:"persistence"`
}

// ChatConfig configures the realtime transport.
type ChatConfig struct {
	// ServerURL is the websocket endpoint of the chat backend, e.g.
	// wss://chat.wayfare.social/ws.
	ServerURL string `json:"server_url" env:"WAYFARE_CHAT_URL"`

	// HeartbeatSeconds is the keepalive ping interval. A missing pong
	// within twice this interval is treated as a dead connection.
	HeartbeatSeconds int `json:"heartbeat_seconds" env:"WAYFARE_CHAT_HEARTBEAT_SECONDS"`

	// ReconnectBaseMillis and ReconnectMaxSeconds bound the exponential
	// backoff between reconnect attempts.
	ReconnectBaseMillis int `json:"reconnect_base_ms" env:"WAYFARE_CHAT_RECONNECT_BASE_MS"`
	ReconnectMaxSeconds int `json:"reconnect_max_seconds" env:"WAYFARE_CHAT_RECONNECT_MAX_SECONDS"`

	// TypingTTLMillis is how long a typing indicator stays lit without a
	// fresh typing_start keep-alive.
	TypingTTLMillis int `json:"typing_ttl_ms" env:"WAYFARE_CHAT_TYPING_TTL_MS"`
}

// PersistenceConfig configures the hosted-database REST client used for
// message history and profile lookups.
type PersistenceConfig struct {
	BaseURL         string `json:"base_url" env:"WAYFARE_DB_URL"`
	APIKey          string `json:"api_key" env:"WAYFARE_DB_API_KEY"`
	HistoryPageSize int    `json:"history_page_size" env:"WAYFARE_DB_HISTORY_PAGE_SIZE"`
	TimeoutSeconds  int    `json:"timeout_seconds" env:"WAYFARE_DB_TIMEOUT_SECONDS"`
}

// DefaultConfig returns a config with all tunables at their defaults. Server
// and persistence endpoints still have to come from the file or environment.
func DefaultConfig() *Config {
	return &Config{
		Chat: ChatConfig{
			HeartbeatSeconds:    30,
			ReconnectBaseMillis: 500,
			ReconnectMaxSeconds: 30,
			TypingTTLMillis:     1000,
		},
		Persistence: PersistenceConfig{
			HistoryPageSize: 50,
			TimeoutSeconds:  10,
		},
	}
}

// LoadConfig reads the JSON config at path (if it exists) over the defaults,
// then applies environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config back to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Chat.HeartbeatSeconds <= 0 {
		c.Chat.HeartbeatSeconds = def.Chat.HeartbeatSeconds
	}
	if c.Chat.ReconnectBaseMillis <= 0 {
		c.Chat.ReconnectBaseMillis = def.Chat.ReconnectBaseMillis
	}
	if c.Chat.ReconnectMaxSeconds <= 0 {
		c.Chat.ReconnectMaxSeconds = def.Chat.ReconnectMaxSeconds
	}
	if c.Chat.TypingTTLMillis <= 0 {
		c.Chat.TypingTTLMillis = def.Chat.TypingTTLMillis
	}
	if c.Persistence.HistoryPageSize <= 0 {
		c.Persistence.HistoryPageSize = def.Persistence.HistoryPageSize
	}
	if c.Persistence.TimeoutSeconds <= 0 {
		c.Persistence.TimeoutSeconds = def.Persistence.TimeoutSeconds
	}
}
