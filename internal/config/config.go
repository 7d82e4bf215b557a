package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the launch configuration for workclock, stored in
// ~/.workclock/config.yaml. The file is created with defaults on first
// run so users can discover the options.
type Config struct {
	// ListenAddr is the loopback endpoint the daemon binds to and the
	// CLI connects to.
	ListenAddr string
	// DataDir holds the database and any exported files.
	DataDir string
	// Database is the SQLite file path. Empty means DataDir/workclock.db.
	Database string
	// TickInterval is the cadence of the daemon's persistence tick.
	TickInterval time.Duration
}

const (
	// DefaultListenAddr binds to localhost only.
	DefaultListenAddr = "127.0.0.1:7395"

	databaseFile = "workclock.db"
)

// Dir returns the workclock home directory (~/.workclock).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".workclock"), nil
}

// Load reads the config from the workclock home directory, writing a
// default file on first run.
func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return LoadFrom(dir)
}

// LoadFrom reads dir/config.yaml. Missing keys fall back to defaults.
func LoadFrom(dir string) (Config, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Config{}, fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("data_dir", dir)
	v.SetDefault("database", "")
	v.SetDefault("tick_interval_seconds", 1)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			if err := v.WriteConfigAs(path); err != nil {
				return Config{}, fmt.Errorf("writing default config: %w", err)
			}
		} else {
			return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := Config{
		ListenAddr:   v.GetString("listen_addr"),
		DataDir:      v.GetString("data_dir"),
		Database:     v.GetString("database"),
		TickInterval: time.Duration(v.GetInt("tick_interval_seconds")) * time.Second,
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.DataDir == "" {
		cfg.DataDir = dir
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(cfg.DataDir, databaseFile)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return cfg, nil
}
