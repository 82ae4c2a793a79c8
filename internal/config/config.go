// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads ubl-core's configuration from a single YAML
// file, the same way the teacher's lib/config does: one file, named
// by the UBL_CONFIG environment variable or a --config flag, no
// fallback search path and no automatic discovery. Deterministic,
// auditable configuration beats convenience defaults spread across
// several candidate locations.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is ubl-core's complete runtime configuration. Only
// ContainerID, ListenPort, and StorageURL affect the core's
// semantics (spec.md §6); the remaining fields are operational knobs
// (log verbosity, pool sizing, seed data) that never change what a
// commit or a query means.
type Config struct {
	// ContainerID, if non-empty, pins this instance to single-container
	// mode: every request implicitly targets this container and the
	// container_id path/body field is optional.
	ContainerID string `yaml:"container_id"`

	// ListenPort is the TCP port the transport binds to, on all
	// interfaces.
	ListenPort int `yaml:"listen_port"`

	// StorageURL selects the storage.Store backend: "memory://" for
	// the in-memory store, or "sqlite:///path/to.db" for the durable
	// SQLite store. Empty means "memory://".
	StorageURL string `yaml:"storage_url"`

	// StoragePoolSize is the SQLite connection pool size. Defaults to
	// 4 if zero. Ignored for the memory backend.
	StoragePoolSize int `yaml:"storage_pool_size"`

	// GenesisSeedPath optionally names a JSONC file of pacts to
	// register at startup (internal/seed).
	GenesisSeedPath string `yaml:"genesis_seed_path"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is supplied:
// in-memory storage on the default port, suitable for a single
// developer's machine and for tests.
func Default() Config {
	return Config{
		ListenPort:      8443,
		StorageURL:      "memory://",
		StoragePoolSize: 4,
		LogLevel:        "info",
	}
}

// Load reads and parses the YAML configuration file at path, applying
// Default() for any field the file omits.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve loads the config named by explicitFlag if non-empty,
// otherwise by the UBL_CONFIG environment variable if set, otherwise
// returns Default(). This mirrors the teacher's precedence: an
// explicit flag beats the environment, and there is no further
// fallback search.
func Resolve(explicitFlag string) (Config, error) {
	path := explicitFlag
	if path == "" {
		path = os.Getenv("UBL_CONFIG")
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks invariants Load cannot express in YAML tags alone.
func (c Config) Validate() error {
	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port must be between 1 and 65535, got %d", c.ListenPort)
	}
	if _, _, err := c.StorageBackend(); err != nil {
		return err
	}
	return nil
}

// ListenAddress renders ListenPort as the address net.Listen expects.
func (c Config) ListenAddress() string {
	return ":" + strconv.Itoa(c.ListenPort)
}

// StorageBackend parses StorageURL into a driver ("memory" or
// "sqlite") and a driver-specific path, empty for "memory".
func (c Config) StorageBackend() (driver, path string, err error) {
	raw := c.StorageURL
	if raw == "" {
		raw = "memory://"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("storage_url: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return "memory", "", nil
	case "sqlite":
		path = u.Opaque
		if path == "" {
			path = u.Path
		}
		if path == "" {
			return "", "", fmt.Errorf("storage_url: sqlite backend requires a path, got %q", raw)
		}
		return "sqlite", path, nil
	default:
		return "", "", fmt.Errorf("storage_url: unrecognized scheme %q, want \"memory\" or \"sqlite\"", u.Scheme)
	}
}
