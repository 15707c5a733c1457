package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides, applied after the config file.
const (
	EnvBackendURL        = "RELAYBOT_BACKEND_URL"
	EnvPDVersion         = "RELAYBOT_PD_VERSION"
	EnvWhatsAppBridgeURL = "RELAYBOT_WHATSAPP_BRIDGE_URL"
	EnvDiscordToken      = "RELAYBOT_DISCORD_TOKEN"
	EnvGroupChatsEnabled = "RELAYBOT_GROUPCHATS_ENABLED"
)

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(homeDir(), ".relaybot", "config.json")
}

// DataDir returns the relaybot data directory, creating it if needed.
func DataDir() string {
	dir := filepath.Join(homeDir(), ".relaybot")
	os.MkdirAll(dir, 0o755)
	return dir
}

// Load reads configuration from the default path.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads configuration from path, applies .env and environment
// overrides, and validates the result. A missing file yields defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
		if unknown := CheckUnknownFields(raw); len(unknown) > 0 {
			slog.Warn("Unknown config fields ignored", "path", path, "fields", strings.Join(unknown, ", "))
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return cfg, fmt.Errorf("apply config: %w", err)
		}
	}

	loadDotEnv(filepath.Dir(path))
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadDotEnv reads .env from the working directory and from dir. Variables
// already set in the process environment win.
func loadDotEnv(dir string) {
	for _, p := range []string{".env", filepath.Join(dir, ".env")} {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Could not read env file", "path", p, "err", err)
		}
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvBackendURL); ok && v != "" {
		cfg.Backend.BaseURL = v
	}
	if v, ok := lookup(EnvPDVersion); ok && v != "" {
		cfg.Backend.Version = v
	}
	if v, ok := lookup(EnvWhatsAppBridgeURL); ok && v != "" {
		cfg.Channels.WhatsApp.BridgeURL = v
	}
	if v, ok := lookup(EnvDiscordToken); ok && v != "" {
		cfg.Channels.Discord.Token = v
		cfg.Channels.Discord.Enabled = true
	}
	if v, ok := lookup(EnvGroupChatsEnabled); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvGroupChatsEnabled, err)
		}
		cfg.Relay.GroupChatsEnabled = b
	}
	return nil
}

func applyDefaults(cfg *Config) {
	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 60
	}
	if cfg.Relay.IdleTimeoutSeconds == 0 {
		cfg.Relay.IdleTimeoutSeconds = 180
	}
	if cfg.Channels.WhatsApp.SendsPerSecond == 0 {
		cfg.Channels.WhatsApp.SendsPerSecond = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Save writes configuration to the default path.
func Save(cfg *Config) error {
	return SaveTo(cfg, ConfigPath())
}

// SaveTo writes configuration to a specific path.
func SaveTo(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o600)
}

// Upgrade reads the existing config file at path, deep-merges it on top of
// DefaultConfig (local values win), and saves the result.
func Upgrade(path string) (*Config, error) {
	defaultData, _ := json.Marshal(DefaultConfig())
	var defaultMap map[string]any
	json.Unmarshal(defaultData, &defaultMap)

	localData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var localMap map[string]any
	if err := json.Unmarshal(localData, &localMap); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	merged, _ := json.Marshal(deepMerge(defaultMap, localMap))
	cfg := DefaultConfig()
	if err := json.Unmarshal(merged, cfg); err != nil {
		return nil, fmt.Errorf("apply merged config: %w", err)
	}

	if err := SaveTo(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// deepMerge recursively merges src into dst. Values from src take priority.
func deepMerge(dst, src map[string]any) map[string]any {
	result := make(map[string]any, len(dst))
	for k, v := range dst {
		result[k] = v
	}
	for k, srcVal := range src {
		dstVal, exists := result[k]
		if !exists {
			result[k] = srcVal
			continue
		}
		dstMap, dstOK := dstVal.(map[string]any)
		srcMap, srcOK := srcVal.(map[string]any)
		if dstOK && srcOK {
			result[k] = deepMerge(dstMap, srcMap)
		} else {
			result[k] = srcVal
		}
	}
	return result
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp"
	}
	return home
}
