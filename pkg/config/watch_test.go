package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnChange(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("pnfs:\n  data_servers: [\"10.0.0.1:2049\"]\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	changes := make(chan *Config, 4)
	cfg, err := Watch(configPath, func(c *Config) { changes <- c })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if len(cfg.PNFS.DataServers) != 1 {
		t.Fatalf("Expected 1 data server, got %v", cfg.PNFS.DataServers)
	}

	if err := os.WriteFile(configPath, []byte("pnfs:\n  data_servers: [\"10.0.0.1:2049\", \"10.0.0.2:2049\"]\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config file: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case next := <-changes:
			if len(next.PNFS.DataServers) == 2 {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for configuration reload")
		}
	}
}

func TestWatch_InvalidInitialConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("metadata:\n  type: etcd\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Watch(configPath, func(*Config) {}); err == nil {
		t.Fatal("Expected validation error")
	}
}
