// Package config loads and saves user configuration from
// ~/.promptdeck/config.toml.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// FileName is the TOML config file for user preferences.
const FileName = "config.toml"

// EnvDir overrides the promptdeck directory when set.
const EnvDir = "PROMPTDECK_DIR"

// Config represents user-facing configuration in TOML format.
type Config struct {
	// Integration selects which sub-behaviors are active.
	Integration IntegrationSettings `toml:"integration"`

	// Title controls terminal-title updates.
	Title TitleSettings `toml:"title"`

	// History controls command history recording.
	History HistorySettings `toml:"history"`

	// Logs controls debug logging.
	Logs LogSettings `toml:"logs"`

	// Shell configures the wrapped shell for `promptdeck run`.
	Shell ShellSettings `toml:"shell"`
}

// IntegrationSettings selects the enabled sub-behaviors. All use
// pointers to distinguish "not set" (default on) from "explicitly off".
type IntegrationSettings struct {
	// PromptMark emits OSC 133 semantic prompt marks (default: true).
	PromptMark *bool `toml:"prompt_mark"`

	// Cursor switches cursor shape with the input mode (default: true).
	Cursor *bool `toml:"cursor"`

	// Title updates the terminal title (default: true).
	Title *bool `toml:"title"`

	// Completion reserves the completion-loading flag. Parsed and kept
	// so existing config files round-trip; the supervisor does not act
	// on it.
	Completion *bool `toml:"completion"`
}

// GetPromptMark returns whether prompt marks are enabled, defaulting to true.
func (i *IntegrationSettings) GetPromptMark() bool {
	return i.PromptMark == nil || *i.PromptMark
}

// GetCursor returns whether cursor switching is enabled, defaulting to true.
func (i *IntegrationSettings) GetCursor() bool {
	return i.Cursor == nil || *i.Cursor
}

// GetTitle returns whether title updates are enabled, defaulting to true.
func (i *IntegrationSettings) GetTitle() bool {
	return i.Title == nil || *i.Title
}

// TitleSettings controls directory abbreviation in titles.
type TitleSettings struct {
	// HomeTilde collapses the home directory to ~ (default: true).
	HomeTilde *bool `toml:"home_tilde"`

	// MaxComponents keeps only the trailing N path components
	// (default: 3; 0 disables truncation).
	MaxComponents *int `toml:"max_components"`
}

// GetHomeTilde returns the tilde setting, defaulting to true.
func (t *TitleSettings) GetHomeTilde() bool {
	return t.HomeTilde == nil || *t.HomeTilde
}

// GetMaxComponents returns the truncation width, defaulting to 3.
func (t *TitleSettings) GetMaxComponents() int {
	if t.MaxComponents == nil {
		return 3
	}
	return *t.MaxComponents
}

// HistorySettings controls command history recording.
type HistorySettings struct {
	// Enabled records finished commands to the history database
	// (default: true).
	Enabled *bool `toml:"enabled"`

	// DBPath overrides the database location. Default:
	// <promptdeck dir>/history.db.
	DBPath string `toml:"db_path"`

	// MaxAgeDays prunes entries older than this on startup
	// (default: 90; 0 keeps everything).
	MaxAgeDays int `toml:"max_age_days"`
}

// GetEnabled returns whether history recording is on, defaulting to true.
func (h *HistorySettings) GetEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// GetMaxAgeDays returns the retention window, defaulting to 90 days.
func (h *HistorySettings) GetMaxAgeDays() int {
	if h.MaxAgeDays < 0 {
		return 0
	}
	if h.MaxAgeDays == 0 {
		return 90
	}
	return h.MaxAgeDays
}

// LogSettings controls the debug log.
type LogSettings struct {
	// Level is the minimum log level: "debug", "info", "warn", "error"
	// (default: "info").
	Level string `toml:"level"`

	// Format is "json" (default) or "text".
	Format string `toml:"format"`

	// MaxSizeMB is the rotation threshold (default: 5).
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups is rotated files to keep (default: 3).
	MaxBackups int `toml:"max_backups"`

	// MaxAgeDays is days to keep rotated files (default: 14).
	MaxAgeDays int `toml:"max_age_days"`

	// Debug enables file logging even without PROMPTDECK_DEBUG.
	Debug bool `toml:"debug"`
}

// ShellSettings configures the wrapped shell.
type ShellSettings struct {
	// Command overrides $SHELL for `promptdeck run`.
	Command string `toml:"command"`

	// Theme sets the history TUI color scheme: "dark" (default),
	// "light", or "system".
	Theme string `toml:"theme"`
}

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// Dir returns the promptdeck directory (~/.promptdeck unless
// PROMPTDECK_DIR is set), creating it if needed.
func Dir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, os.MkdirAll(dir, 0o700)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: home dir: %w", err)
	}
	dir := filepath.Join(home, ".promptdeck")
	return dir, os.MkdirAll(dir, 0o700)
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load returns the user configuration, reading the file once and
// caching the result. A missing file yields defaults; a malformed file
// yields defaults plus the parse error so the caller can report it.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cache != nil {
		return cache, nil
	}

	path, err := Path()
	if err != nil {
		cache = &Config{}
		return cache, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cache = &Config{}
		return cache, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		cache = &Config{}
		return cache, fmt.Errorf("config.toml parse error: %w", err)
	}
	cache = &cfg
	return cache, nil
}

// Reload drops the cache and reads the file again.
func Reload() (*Config, error) {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
	return Load()
}

// Save writes cfg to config.toml with an atomic
// write-temp/fsync/rename so a crash cannot leave a torn file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("config: resolve path: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# promptdeck configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("config: write temp: %w", err)
	}
	if f, err := os.Open(tmp); err == nil {
		_ = f.Sync()
		f.Close()
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("config: finalize: %w", err)
	}

	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
	return nil
}

// ClearCache drops the cached config; the next Load reads from disk.
// Exposed for tests.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

// CreateExample writes a commented example config if none exists.
func CreateExample() error {
	path, err := Path()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	example := `# promptdeck configuration
# Delete or comment out a line to fall back to its default.

# Sub-behaviors. All default to true.
[integration]
# prompt_mark = true   # OSC 133 semantic prompt marks
# cursor = true        # cursor shape follows input mode
# title = true         # terminal title updates
# completion = true    # reserved

# Terminal title directory display
[title]
# home_tilde = true    # show the home directory as ~
# max_components = 3   # trailing path components to keep (0 = all)

# Command history recording
[history]
# enabled = true
# db_path = ""         # default: ~/.promptdeck/history.db
# max_age_days = 90    # prune older entries on startup (0 = keep all)

# Debug log (written under ~/.promptdeck, never to the terminal)
[logs]
# level = "info"       # debug, info, warn, error
# format = "json"      # json or text
# debug = false

[shell]
# command = ""         # override $SHELL for 'promptdeck run'
# theme = "dark"       # history TUI: dark, light, system
`
	return os.WriteFile(path, []byte(example), 0o600)
}
