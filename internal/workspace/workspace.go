// Package workspace locates planner workspaces and manages their
// configuration file (.nlplanner/config.json).
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the hidden directory that marks a workspace root.
const DirName = ".nlplanner"

const configFile = "config.json"

// Settings are the user-tunable knobs stored under "settings".
type Settings struct {
	DashboardPort int `json:"dashboard_port" mapstructure:"dashboard_port"`
	DueSoonDays   int `json:"due_soon_days" mapstructure:"due_soon_days"`
}

// Config is the persisted workspace configuration.
type Config struct {
	WorkspacePath string   `json:"workspace_path" mapstructure:"workspace_path"`
	Settings      Settings `json:"settings" mapstructure:"settings"`
}

// Default returns the configuration a fresh workspace starts with.
func Default(root string) Config {
	return Config{
		WorkspacePath: root,
		Settings: Settings{
			DashboardPort: 8080,
			DueSoonDays:   7,
		},
	}
}

// ConfigPath returns the config file location for a workspace root.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, configFile)
}

// IndexPath returns the search index database location.
func IndexPath(root string) string {
	return filepath.Join(root, DirName, "index.db")
}

// LogPath returns the daemon log file location.
func LogPath(root string) string {
	return filepath.Join(root, DirName, "logs", "daemon.log")
}

// Load reads the workspace configuration, applying defaults for missing
// keys and NLPLANNER_* environment overrides on top. A workspace without
// a config file loads cleanly as the defaults.
func Load(root string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(ConfigPath(root))
	v.SetConfigType("json")

	v.SetDefault("workspace_path", root)
	v.SetDefault("settings.dashboard_port", 8080)
	v.SetDefault("settings.due_soon_days", 7)

	v.SetEnvPrefix("NLPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.WorkspacePath == "" {
		cfg.WorkspacePath = root
	}
	return cfg, nil
}

// Save writes the configuration to its workspace's config file, creating
// the hidden directory when needed.
func Save(cfg Config) error {
	if cfg.WorkspacePath == "" {
		return fmt.Errorf("workspace path is required")
	}

	path := ConfigPath(cfg.WorkspacePath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Find walks up from start (or the working directory when empty) looking
// for a directory that contains the workspace marker. Returns the
// workspace root, or "" when no workspace is found.
func Find(start string) string {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		marker := filepath.Join(dir, DirName)
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// DashboardAddr renders the listen address for the dashboard server.
// Local by default; network exposes it on every interface.
func (c Config) DashboardAddr(network bool) string {
	host := "127.0.0.1"
	if network {
		host = "0.0.0.0"
	}
	return fmt.Sprintf("%s:%d", host, c.Settings.DashboardPort)
}
