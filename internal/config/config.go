package config

import "path/filepath"

// Config is the root configuration for relaybot.
type Config struct {
	Backend  BackendConfig  `json:"backend"`
	Channels ChannelsConfig `json:"channels"`
	Relay    RelayConfig    `json:"relay"`
	Logging  LoggingConfig  `json:"logging"`
	Services ServicesConfig `json:"services"`
}

// BackendConfig points at the conversational service answers come from.
type BackendConfig struct {
	BaseURL        string `json:"baseUrl"`
	Version        string `json:"version"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// ChannelsConfig holds all channel configurations.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
	Discord  DiscordConfig  `json:"discord"`
}

// WhatsAppConfig holds settings for the WhatsApp web bridge.
type WhatsAppConfig struct {
	Enabled   bool     `json:"enabled"`
	BridgeURL string   `json:"bridgeUrl"`
	AllowFrom []string `json:"allowFrom"`
	// SendsPerSecond paces outbound messages to the bridge.
	SendsPerSecond float64 `json:"sendsPerSecond"`
}

// DiscordConfig holds Discord channel settings.
type DiscordConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allowFrom"`
	// Operators are user ids whose messages count as the bot's own, so they
	// can issue takeover and release commands.
	Operators []string `json:"operators"`
}

// RelayConfig holds the hand-off policy and session settings.
type RelayConfig struct {
	GroupChatsEnabled  bool   `json:"groupChatsEnabled"`
	SkipSelfMessages   bool   `json:"skipSelfMessages"`
	IdleTimeoutSeconds int    `json:"idleTimeoutSeconds"`
	TakeoverCommand    string `json:"takeoverCommand"`
	ReleaseCommand     string `json:"releaseCommand"`
	ResetCommand       string `json:"resetCommand"`
	IdleNotice         string `json:"idleNotice,omitempty"`
	ResetNotice        string `json:"resetNotice,omitempty"`
	MaxInFlight        int    `json:"maxInFlight"`
}

// LoggingConfig controls the log handler.
type LoggingConfig struct {
	Level string `json:"level"`
	Color bool   `json:"color"`
}

// ServicesConfig holds background service configurations.
type ServicesConfig struct {
	Heartbeat HeartbeatConfig `json:"heartbeat"`
}

// HeartbeatConfig holds status reporter settings.
type HeartbeatConfig struct {
	Enabled   bool `json:"enabled"`
	IntervalS int  `json:"intervalSeconds"`
}

const (
	defaultBackendURL     = "http://localhost:8000"
	defaultBackendVersion = "1"
	defaultBridgeURL      = "ws://localhost:3001"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        defaultBackendURL,
			Version:        defaultBackendVersion,
			TimeoutSeconds: 60,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				Enabled:        true,
				BridgeURL:      defaultBridgeURL,
				SendsPerSecond: 1,
			},
		},
		Relay: RelayConfig{
			IdleTimeoutSeconds: 180,
			TakeoverCommand:    "!bot-stop",
			ReleaseCommand:     "!leave",
			ResetCommand:       "!reset",
		},
		Logging: LoggingConfig{
			Level: "info",
			Color: true,
		},
		Services: ServicesConfig{
			Heartbeat: HeartbeatConfig{Enabled: true, IntervalS: 300},
		},
	}
}

// LogPath is where the chat TUI sends its logs.
func LogPath() string {
	return filepath.Join(DataDir(), "relaybot.log")
}
