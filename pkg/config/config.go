/*
Package config persists the user's known secrets stores: their block
store URL, the client id to present during synchronization, and their
autolock timeout, as a single YAML file under the user's config
directory.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".trustless"
	configFileName = "config.yaml"

	// DefaultAutolockTimeout is applied to a store whose config omits
	// autolock_timeout_secs.
	DefaultAutolockTimeout = 5 * time.Minute

	// DefaultSyncInterval is applied to a store whose config omits
	// sync_interval_secs but does name a remote_store_url.
	DefaultSyncInterval = 5 * time.Minute
)

// StoreConfig is one registered store's connection and policy
// settings. RemoteStoreURL is optional: when set, Open wraps the local
// store named by StoreURL and the remote store named by RemoteStoreURL
// in a syncstore.Store, and a background synchronizer reconciles the
// two on SyncIntervalSecs.
type StoreConfig struct {
	Name                string `yaml:"name"`
	StoreURL            string `yaml:"store_url"`
	ClientID            string `yaml:"client_id"`
	RemoteStoreURL      string `yaml:"remote_store_url,omitempty"`
	SyncIntervalSecs    int    `yaml:"sync_interval_secs,omitempty"`
	AutolockTimeoutSecs int    `yaml:"autolock_timeout_secs,omitempty"`
	DefaultIdentityID   string `yaml:"default_identity_id,omitempty"`
}

// AutolockTimeout returns the configured timeout, or
// DefaultAutolockTimeout if unset.
func (c StoreConfig) AutolockTimeout() time.Duration {
	if c.AutolockTimeoutSecs <= 0 {
		return DefaultAutolockTimeout
	}
	return time.Duration(c.AutolockTimeoutSecs) * time.Second
}

// SyncInterval returns the configured synchronization interval, or
// DefaultSyncInterval if unset. Meaningless when RemoteStoreURL is
// empty.
func (c StoreConfig) SyncInterval() time.Duration {
	if c.SyncIntervalSecs <= 0 {
		return DefaultSyncInterval
	}
	return time.Duration(c.SyncIntervalSecs) * time.Second
}

// Config is the full persisted configuration: every known store, and
// which one to open when none is named explicitly.
type Config struct {
	Stores       map[string]StoreConfig `yaml:"stores"`
	DefaultStore string                 `yaml:"default_store,omitempty"`
}

// Dir returns the directory config.yaml lives in.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: get home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// File returns the full path to config.yaml.
func File() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads config.yaml, returning an empty Config if it does not yet
// exist.
func Load() (Config, error) {
	path, err := File()
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{Stores: map[string]StoreConfig{}}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Stores == nil {
		cfg.Stores = map[string]StoreConfig{}
	}
	return cfg, nil
}

// Save writes cfg to config.yaml, creating its directory if needed.
func Save(cfg Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	path, err := File()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
