// Package config holds user defaults for the jsheet CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/witanlabs/jsheet/internal/fsutil"
)

const (
	DefaultAddr           = "127.0.0.1:7431"
	DefaultMaxColumnWidth = 24
)

type Config struct {
	Addr           string `json:"addr,omitempty"`
	Autosave       string `json:"autosave,omitempty"`
	Watch          bool   `json:"watch,omitempty"`
	MaxColumnWidth int    `json:"max_column_width,omitempty"`
}

// Keys lists the settings accepted by Set, in display order.
var Keys = []string{"addr", "autosave", "watch", "max_column_width"}

func dir() (string, error) {
	if v := os.Getenv("JSHEET_CONFIG_DIR"); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "jsheet"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "jsheet"), nil
}

// Path is the location of the config file.
func Path() (string, error) {
	d, err := dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.json"), nil
}

// Load reads the config file. Returns a zero-value Config if the file does not exist.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", p, err)
	}
	return cfg, nil
}

// Resolved returns cfg with environment overrides and defaults applied.
func (cfg Config) Resolved() Config {
	if v := strings.TrimSpace(os.Getenv("JSHEET_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v, ok := os.LookupEnv("JSHEET_AUTOSAVE"); ok {
		cfg.Autosave = strings.TrimSpace(v)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxColumnWidth <= 0 {
		cfg.MaxColumnWidth = DefaultMaxColumnWidth
	}
	return cfg
}

// Set assigns one setting by key from its text form.
func (cfg *Config) Set(key, raw string) error {
	raw = strings.TrimSpace(raw)
	switch key {
	case "addr":
		cfg.Addr = raw
	case "autosave":
		cfg.Autosave = raw
	case "watch":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("watch must be true or false, got %q", raw)
		}
		cfg.Watch = b
	case "max_column_width":
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("max_column_width must be a non-negative integer, got %q", raw)
		}
		cfg.MaxColumnWidth = n
	default:
		return fmt.Errorf("unknown config key %q (expected one of %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Get returns the text form of one setting.
func (cfg Config) Get(key string) (string, bool) {
	switch key {
	case "addr":
		return cfg.Addr, true
	case "autosave":
		return cfg.Autosave, true
	case "watch":
		return strconv.FormatBool(cfg.Watch), true
	case "max_column_width":
		return strconv.Itoa(cfg.MaxColumnWidth), true
	}
	return "", false
}

// Save writes the config to disk atomically.
func Save(cfg Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return fsutil.WriteFileAtomic(p, data, 0o600)
}

// Delete removes the config file.
func Delete() error {
	p, err := Path()
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
