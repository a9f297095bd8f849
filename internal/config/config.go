// Package config handles the XDG configuration directory, the optional
// settings file and the logger built from command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "taskmate"

	// SettingsFile is the optional settings filename.
	SettingsFile = "config.yaml"

	// TokenFile is the stored credential filename.
	TokenFile = "token.json"

	// DefaultAPIURL is used when neither the settings file nor the
	// environment names an API.
	DefaultAPIURL = "http://localhost:5000/api"

	// DefaultTimeout bounds every API call.
	DefaultTimeout = 10 * time.Second

	apiURLEnvVar  = "TASKMATE_API_URL"
	timeoutEnvVar = "TASKMATE_TIMEOUT"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// APIURL is the base URL of the task service.
	APIURL string

	// Timeout bounds each API call.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// settings mirrors config.yaml.
type settings struct {
	APIURL  string `yaml:"api_url"`
	Timeout string `yaml:"timeout"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskmate or $HOME/.config/taskmate.
// Settings are read from config.yaml when present, then overridden by
// TASKMATE_API_URL and TASKMATE_TIMEOUT.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:     dir,
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
	}

	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return cfg, nil
}

func (c *Config) loadSettings() error {
	data, err := os.ReadFile(c.SettingsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	var s settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}
	if s.APIURL != "" {
		c.APIURL = s.APIURL
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: timeout: %q", SettingsFile, s.Timeout)
		}
		c.Timeout = d
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(apiURLEnvVar); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(timeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", timeoutEnvVar, v)
		}
		c.Timeout = d
	}
	return nil
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

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// TokenPath returns the path to the stored credential file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// Logger returns a console logger writing to w.
// Level is warn by default, debug with Debug and error with Quiet.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	level := zerolog.WarnLevel
	switch {
	case c.Debug:
		level = zerolog.DebugLevel
	case c.Quiet:
		level = zerolog.ErrorLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
