package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/joshuapare/xmlstore/internal/logger"
	"github.com/joshuapare/xmlstore/store/journal"
)

// Config is the YAML form of a store's settings.
//
//	dir: ./data
//	sync: auto            # auto | none | full
//	lock_timeout: 5s
//	checkpoint_bytes: 4194304
//	case_insensitive_strings: false
//	read_only: false
//	log:
//	  enabled: true
//	  level: info
//	  json: false
//	  dir: ./logs
type Config struct {
	Dir             string    `yaml:"dir"`
	Sync            string    `yaml:"sync"`
	LockTimeout     string    `yaml:"lock_timeout"`
	CheckpointBytes int64     `yaml:"checkpoint_bytes"`
	CaseInsensitive bool      `yaml:"case_insensitive_strings"`
	ReadOnly        bool      `yaml:"read_only"`
	Log             LogConfig `yaml:"log"`
}

// LogConfig selects where store logs go.
type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	JSON    bool   `yaml:"json"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() Config {
	return Config{
		Dir:             "./data",
		Sync:            journal.SyncAuto.String(),
		LockTimeout:     "5s",
		CheckpointBytes: 4 << 20,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML config from path. Fields missing from the file
// keep their DefaultConfig values; a missing file yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("store: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("store: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("store: config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that Options would otherwise reject.
func (c Config) Validate() error {
	var errs []error
	if c.Dir == "" {
		errs = append(errs, errors.New("dir is required"))
	}
	if _, err := journal.ParseSyncMode(c.Sync); err != nil {
		errs = append(errs, err)
	}
	if c.LockTimeout != "" {
		if d, err := time.ParseDuration(c.LockTimeout); err != nil {
			errs = append(errs, fmt.Errorf("lock_timeout: %w", err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("lock_timeout %s is negative", c.LockTimeout))
		}
	}
	if c.CheckpointBytes < 0 {
		errs = append(errs, fmt.Errorf("checkpoint_bytes %d is negative", c.CheckpointBytes))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error", "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Options converts the config into open options. The logger is not set;
// OpenConfig builds it from c.Log.
func (c Config) Options() (Options, error) {
	if err := c.Validate(); err != nil {
		return Options{}, err
	}
	mode, _ := journal.ParseSyncMode(c.Sync)
	var timeout time.Duration
	if c.LockTimeout != "" {
		timeout, _ = time.ParseDuration(c.LockTimeout)
	}
	return Options{
		Sync:            mode,
		LockTimeout:     timeout,
		CheckpointBytes: c.CheckpointBytes,
		CaseInsensitive: c.CaseInsensitive,
		ReadOnly:        c.ReadOnly,
	}, nil
}

func (c LogConfig) loggerOptions() logger.Options {
	return logger.Options{
		Enabled: c.Enabled,
		LogDir:  c.Dir,
		Level:   logger.ParseLevel(c.Level),
		JSON:    c.JSON,
	}
}
