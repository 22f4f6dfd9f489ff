package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/codefionn/spacecycle/internal/logger"
)

// Action names accepted in the keybinding map.
const (
	ActionBack    = "back"
	ActionForward = "forward"
	ActionToggle  = "toggle"
	ActionRefresh = "refresh"
	ActionQuit    = "quit"
)

// Config represents application configuration
type Config struct {
	AerospaceBin        string            `json:"aerospace_bin,omitempty"`
	Keybindings         map[string]string `json:"keybindings,omitempty"` // key string -> action
	DebounceMs          int               `json:"debounce_ms"`
	RefreshIntervalMs   int               `json:"refresh_interval_ms"`
	QueryTimeoutSeconds int               `json:"query_timeout_seconds"`
	ToggleSettleMs      int               `json:"toggle_settle_ms"`
	LogLevel            string            `json:"log_level"` // debug, info, warn, error, none
	LogPath             string            `json:"-"`
	OrderPath           string            `json:"-"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "spacecycle")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "spacecycle")
	default:
		if cfgHome := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); cfgHome != "" {
			return filepath.Join(cfgHome, "spacecycle")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "spacecycle")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "spacecycle")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "spacecycle")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "spacecycle")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "spacecycle")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "spacecycle")
	}
}

// GetConfigPath returns the path of the keybinding/settings file
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}

// GetOrderPath returns the path of the persisted workspace order file
func GetOrderPath() string {
	return filepath.Join(defaultConfigDir(), "order.json")
}

// DefaultKeybindings maps the built-in keys to their actions.
func DefaultKeybindings() map[string]string {
	return map[string]string{
		"h":     ActionBack,
		"left":  ActionBack,
		"l":     ActionForward,
		"right": ActionForward,
		"tab":   ActionToggle,
		"r":     ActionRefresh,
		"q":     ActionQuit,
	}
}

// DefaultConfig returns a Config populated with defaults
func DefaultConfig() *Config {
	return &Config{
		AerospaceBin:        "aerospace",
		Keybindings:         DefaultKeybindings(),
		DebounceMs:          40,
		RefreshIntervalMs:   2000,
		QueryTimeoutSeconds: 3,
		ToggleSettleMs:      50,
		LogLevel:            "info",
		LogPath:             filepath.Join(defaultStateDir(), "spacecycle.log"),
		OrderPath:           GetOrderPath(),
	}
}

// Load reads the config file at path. A missing or corrupt file yields the
// defaults, never an error; partial files are filled in with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read config %s: %v", path, err)
		}
		return DefaultConfig(), nil
	}

	// Unmarshal into a zero Config so a user keybinding map replaces the
	// defaults instead of merging with them.
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		logger.Warn("config %s is corrupt, using defaults: %v", path, err)
		return DefaultConfig(), nil
	}

	cfg.applyDefaults()
	return cfg, nil
}

// applyDefaults fills in zero values left by a partial config file.
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.AerospaceBin == "" {
		c.AerospaceBin = d.AerospaceBin
	}
	if len(c.Keybindings) == 0 {
		c.Keybindings = d.Keybindings
	}
	if c.DebounceMs <= 0 {
		c.DebounceMs = d.DebounceMs
	}
	if c.RefreshIntervalMs <= 0 {
		c.RefreshIntervalMs = d.RefreshIntervalMs
	}
	if c.QueryTimeoutSeconds <= 0 {
		c.QueryTimeoutSeconds = d.QueryTimeoutSeconds
	}
	if c.ToggleSettleMs <= 0 {
		c.ToggleSettleMs = d.ToggleSettleMs
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogPath == "" {
		c.LogPath = d.LogPath
	}
	if c.OrderPath == "" {
		c.OrderPath = d.OrderPath
	}
}

// Save writes the config to path, creating the directory if needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
