package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, notifyCfg := loadConfig(dir)
	if cfg.ProviderBins == nil {
		t.Fatal("expected a default, non-nil ProviderBins map")
	}
	if notifyCfg.NATS.Enabled || notifyCfg.Toast.Enabled {
		t.Fatal("expected notifications disabled by default")
	}
}

func TestLoadConfigParsesNotifications(t *testing.T) {
	dir := t.TempDir()
	localDir := filepath.Join(dir, ".local")
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := "schema_version: 1\ntype: machine\nprovider_bins: {}\nnotifications:\n  nats:\n    enabled: true\n    url: nats://127.0.0.1:4222\n"
	if err := os.WriteFile(filepath.Join(localDir, "machine.yaml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, notifyCfg := loadConfig(dir)
	if !notifyCfg.NATS.Enabled {
		t.Fatal("expected NATS leg enabled from machine.yaml")
	}
}
