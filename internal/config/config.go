package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/dhavalsavalia/imgflash/internal/checksum"
	"github.com/dhavalsavalia/imgflash/internal/history"
)

// Duration wraps time.Duration for TOML string parsing.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ByteSize parses human sizes such as "4 MiB" or "512KB".
type ByteSize uint64

func (b *ByteSize) UnmarshalText(text []byte) error {
	n, err := humanize.ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(humanize.IBytes(uint64(b))), nil
}

// Config represents the complete imgflash configuration.
type Config struct {
	Write    WriteConfig    `toml:"write"`
	Checksum ChecksumConfig `toml:"checksum"`
	Device   DeviceConfig   `toml:"device"`
	History  HistoryConfig  `toml:"history"`
	Log      LogConfig      `toml:"log"`
}

// WriteConfig controls the write engine.
type WriteConfig struct {
	Verify    bool     `toml:"verify"`
	AutoEject bool     `toml:"auto_eject"`
	BlockSize ByteSize `toml:"block_size"`
}

// ChecksumConfig selects the default digest.
type ChecksumConfig struct {
	Algorithm string `toml:"algorithm"`
}

// DeviceConfig defines device detection settings.
type DeviceConfig struct {
	PollInterval Duration `toml:"poll_interval"`
}

// HistoryConfig controls the write log.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig sets the log level and, for the TUI, a log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Write:   WriteConfig{Verify: true},
		History: HistoryConfig{Enabled: true},
	}
	applyDefaults(cfg)
	return cfg
}

// DefaultPath returns the default config file path following XDG conventions.
// On Unix, checks $XDG_CONFIG_HOME first, then falls back to ~/.config.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "imgflash", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "imgflash", "config.toml"), nil
}

// Load reads and parses a config file from the given path.
// If path is empty, it uses the default XDG path.
// Keys missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}

	return finish(cfg)
}

// LoadOrDefault is Load for the CLI: an empty path whose default file does
// not exist yields Default. An explicit path must exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	defaultPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(defaultPath); errors.Is(err, os.ErrNotExist) {
		return finish(Default())
	}
	return Load(defaultPath)
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Write.BlockSize == 0 {
		cfg.Write.BlockSize = DefaultBlockSize
	}
	if cfg.Checksum.Algorithm == "" {
		cfg.Checksum.Algorithm = DefaultAlgorithm
	}
	if cfg.Device.PollInterval == 0 {
		cfg.Device.PollInterval = DefaultPollInterval
	}
	if cfg.History.Path == "" {
		cfg.History.Path = history.DefaultPath()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

// validate checks value ranges.
func validate(cfg *Config) error {
	var errs []error

	bs := uint64(cfg.Write.BlockSize)
	if bs < MinBlockSize || bs > MaxBlockSize || bs%MinBlockSize != 0 {
		errs = append(errs, fmt.Errorf("write.block_size must be a multiple of 512 B between %s and %s",
			humanize.IBytes(MinBlockSize), humanize.IBytes(MaxBlockSize)))
	}
	if _, err := checksum.ParseAlgorithm(cfg.Checksum.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("checksum.algorithm: %w", err))
	}
	if time.Duration(cfg.Device.PollInterval) < MinPollInterval {
		errs = append(errs, fmt.Errorf("device.poll_interval must be at least %s", MinPollInterval))
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
