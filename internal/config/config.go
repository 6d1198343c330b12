// Package config handles the XDG configuration directory, its files and
// run settings.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"srtask/internal/schedule"
)

const (
	// AppName is the application directory name.
	AppName = "srtask"

	// SettingsFile is the YAML settings filename.
	SettingsFile = "config.yaml"

	// OAuthClientFile is the Google OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored Google OAuth token filename.
	TokenFile = "token.json"

	// DefaultBackend is used when neither flag, env nor file selects one.
	DefaultBackend = "googletasks"

	// DefaultRequestsPerSecond paces calls to a backend.
	DefaultRequestsPerSecond = 2.0
)

// Environment variables that override the settings file.
const (
	EnvBackend          = "SRTASK_BACKEND"
	EnvHabiticaUserID   = "HABITICA_USER_ID"
	EnvHabiticaAPIToken = "HABITICA_API_TOKEN"
	EnvTodoistAPIToken  = "TODOIST_API_TOKEN"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are read from config.yaml and the environment by Load.
	Settings Settings

	// Logger is set by the dispatcher. Use Log to read it.
	Logger *slog.Logger
}

// Settings is the content of config.yaml.
type Settings struct {
	Backend           string        `yaml:"backend"`
	Offsets           []int         `yaml:"offsets"`
	TimeOfDay         string        `yaml:"time_of_day"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Concurrency       int           `yaml:"concurrency"`
	LogFormat         string        `yaml:"log_format"`
	LogFile           string        `yaml:"log_file"`

	Habitica HabiticaSettings `yaml:"habitica"`
	Todoist  TodoistSettings  `yaml:"todoist"`
}

// HabiticaSettings holds the Habitica API credentials.
type HabiticaSettings struct {
	UserID   string `yaml:"user_id"`
	APIToken string `yaml:"api_token"`
	Client   string `yaml:"client"`
}

// TodoistSettings holds the Todoist API token.
type TodoistSettings struct {
	APIToken string `yaml:"api_token"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/srtask or $HOME/.config/srtask.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads config.yaml (a missing file is not an error), applies
// environment overrides and fills defaults.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	default:
		if err := yaml.Unmarshal(data, &c.Settings); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	}

	c.applyEnv()
	c.Settings.applyDefaults()
	return c.Settings.Validate()
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Settings.Backend, EnvBackend)
	override(&c.Settings.Habitica.UserID, EnvHabiticaUserID)
	override(&c.Settings.Habitica.APIToken, EnvHabiticaAPIToken)
	override(&c.Settings.Todoist.APIToken, EnvTodoistAPIToken)
}

func (s *Settings) applyDefaults() {
	if s.Backend == "" {
		s.Backend = DefaultBackend
	}
	if len(s.Offsets) == 0 {
		s.Offsets = append([]int(nil), schedule.DefaultOffsets...)
	}
	if s.TimeOfDay == "" {
		s.TimeOfDay = schedule.DefaultTimeOfDay.String()
	}
	if s.RequestsPerSecond == 0 {
		s.RequestsPerSecond = DefaultRequestsPerSecond
	}
}

// Validate checks the settings that can be checked without a backend.
func (s Settings) Validate() error {
	if _, err := s.Cadence(); err != nil {
		return err
	}
	for _, o := range s.Offsets {
		if o < 0 {
			return fmt.Errorf("invalid offsets: %w", schedule.ErrNegativeOffset)
		}
	}
	if s.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s", s.Timeout)
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid requests_per_second: %v", s.RequestsPerSecond)
	}
	return nil
}

// Cadence returns the configured time of day.
func (s Settings) Cadence() (schedule.TimeOfDay, error) {
	return schedule.ParseTimeOfDay(s.TimeOfDay)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

// Log returns the configured logger, or one that discards everything.
func (c *Config) Log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	return c.Logger
}
