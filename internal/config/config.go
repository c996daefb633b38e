// Package config loads the CLI settings file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leandrodaf/midistream/sdk/contracts"
)

// Config holds the settings shared by the midistream commands.
type Config struct {
	DeviceID   int    `json:"deviceId"`
	Division   int    `json:"division,omitempty"`
	Tempo      int    `json:"tempo,omitempty"`
	NoOpBuffer int    `json:"noOpBuffer"`
	MetaNoOps  bool   `json:"metaNoOps,omitempty"`
	LogLevel   string `json:"logLevel"`
	LogFile    string `json:"logFile,omitempty"`
	APIPort    int    `json:"apiPort"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		DeviceID:   0,
		NoOpBuffer: 64,
		LogLevel:   "info",
		APIPort:    8080,
	}
}

// ConfigDir returns the directory holding the settings file.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "midistream"), nil
}

// ConfigPath returns the default settings file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the settings at path, or at ConfigPath when path is empty.
// A missing file yields DefaultConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the settings to path, or to ConfigPath when path is empty.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects values the stream would refuse at open time.
func (c *Config) Validate() error {
	switch {
	case c.DeviceID < 0:
		return fmt.Errorf("%w: negative deviceId %d", contracts.ErrInvalidArgument, c.DeviceID)
	case c.Division < 0:
		return fmt.Errorf("%w: negative division %d", contracts.ErrInvalidArgument, c.Division)
	case c.Tempo < 0:
		return fmt.Errorf("%w: negative tempo %d", contracts.ErrInvalidArgument, c.Tempo)
	case c.NoOpBuffer < 0:
		return fmt.Errorf("%w: negative noOpBuffer %d", contracts.ErrInvalidArgument, c.NoOpBuffer)
	}
	_, err := ParseLogLevel(c.LogLevel)
	return err
}

// ParseLogLevel maps a level name to a contracts.LogLevel. Empty means info.
func ParseLogLevel(name string) (contracts.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return contracts.InfoLevel, nil
	case "debug":
		return contracts.DebugLevel, nil
	case "warn", "warning":
		return contracts.WarnLevel, nil
	case "error":
		return contracts.ErrorLevel, nil
	case "fatal":
		return contracts.FatalLevel, nil
	}
	return contracts.InfoLevel, fmt.Errorf("%w: unknown log level %q", contracts.ErrInvalidArgument, name)
}

// StreamOptions translates the settings into stream options. The caller adds
// the logger and the notification channel.
func (c *Config) StreamOptions() []contracts.Option {
	level, _ := ParseLogLevel(c.LogLevel)
	opts := []contracts.Option{
		contracts.WithDeviceID(c.DeviceID),
		contracts.WithLogLevel(level),
	}
	if c.Division > 0 {
		opts = append(opts, contracts.WithDivision(c.Division))
	}
	if c.Tempo > 0 {
		opts = append(opts, contracts.WithTempo(c.Tempo))
	}
	if c.MetaNoOps {
		opts = append(opts, contracts.WithMetaNoOps())
	}
	return opts
}
