// Package config loads the daemon's yaml configuration file, grounded on
// sdn-server/internal/config's Config/Default/Load/Save trio. Unlike the
// teacher, Config here is not read through a global singleton: callers
// load it once in main and thread the value down to the rpc/launcher
// packages explicitly, per SPEC_FULL.md's Configuration paragraph.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cicero-ai/nyx/internal/nyxerr"
)

// Config is the daemon's full yaml-backed configuration, the analogue of
// original_source's rpc::config::Config.
type Config struct {
	Host            string `yaml:"host"`
	Port            uint16 `yaml:"port"`
	Timeout         string `yaml:"timeout"`
	ClipboardTimeout uint64 `yaml:"clipboard_timeout"`
	MountDir        string `yaml:"mount_dir"`
	Dbfile          string `yaml:"dbfile"`
}

// Default returns the configuration used when no file exists yet, the
// analogue of config.rs's Default impl.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Host:             "127.0.0.1",
		Port:             7924,
		Timeout:          "15m",
		ClipboardTimeout: 20,
		MountDir:         filepath.Join(home, ".nyx", "mnt"),
		Dbfile:           filepath.Join(home, ".nyx", "container.nyx"),
	}
}

// DefaultPath returns the standard configuration file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nyx", "config.yaml")
}

// Load reads path (or DefaultPath if empty), falling back to Default
// when the file does not yet exist, the analogue of config.rs's load().
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, nyxerr.Wrap(nyxerr.Io, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nyxerr.Wrap(nyxerr.Generic, err)
	}
	return cfg, nil
}

// Save writes cfg to path (or DefaultPath if empty), creating its parent
// directory if necessary.
func Save(path string, cfg *Config) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nyxerr.Wrap(nyxerr.Io, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nyxerr.Wrap(nyxerr.Generic, err)
	}
	return os.WriteFile(path, data, 0600)
}
