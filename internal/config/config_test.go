// Copyright 2026 The UBL Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate, got %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ubl.yaml")
	contents := "container_id: wallet_alice\nlisten_port: 9999\nstorage_url: \"sqlite:///var/lib/ubl/core.db\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ContainerID != "wallet_alice" || cfg.ListenPort != 9999 || cfg.StorageURL != "sqlite:///var/lib/ubl/core.db" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ListenAddress() != ":9999" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress())
	}
	driver, dbPath, err := cfg.StorageBackend()
	if err != nil {
		t.Fatal(err)
	}
	if driver != "sqlite" || dbPath != "/var/lib/ubl/core.db" {
		t.Fatalf("unexpected storage backend: driver=%q path=%q", driver, dbPath)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log_level to survive partial override, got %q", cfg.LogLevel)
	}
}

func TestLoadRejectsSqliteWithoutPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ubl.yaml")
	if err := os.WriteFile(path, []byte("storage_url: \"sqlite://\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for sqlite backend without a path")
	}
}

func TestLoadRejectsUnrecognizedStorageScheme(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ubl.yaml")
	if err := os.WriteFile(path, []byte("storage_url: \"postgres://localhost/ubl\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unrecognized storage_url scheme")
	}
}

func TestResolveFallsBackToDefault(t *testing.T) {
	t.Setenv("UBL_CONFIG", "")
	cfg, err := Resolve("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Fatalf("expected Default() with no flag or env var set")
	}
}
