package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestReloader_Current(t *testing.T) {
	cfg := &Config{}
	cfg.Gateway.Port = 9999

	r := NewReloader("", "", cfg)
	if got := r.Current(); got.Gateway.Port != 9999 {
		t.Errorf("Current().Gateway.Port = %d, want 9999", got.Gateway.Port)
	}
}

func TestReloader_Reload(t *testing.T) {
	dir := t.TempDir()
	dotenvPath := filepath.Join(dir, ".env")
	configPath := filepath.Join(dir, "config.jsonc")
	t.Setenv("CODEPILOT_TEST_PROMPT", "initial")

	if err := os.WriteFile(dotenvPath, []byte("CODEPILOT_TEST_PROMPT=reloaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configPath, []byte(`{"gateway": {"system_prompt": "${{ .Env.CODEPILOT_TEST_PROMPT }}"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	initial := Default()
	r := NewReloader(configPath, dotenvPath, initial)

	var calls atomic.Int32
	r.OnReload(func(*Config) { calls.Add(1) })

	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("listener called %d times, want 1", calls.Load())
	}
	got := r.Current()
	if got == initial {
		t.Fatal("Current() still returns initial config after reload")
	}
	if got.Gateway.SystemPrompt != "reloaded" {
		t.Errorf("system_prompt = %q, want dotenv value expanded", got.Gateway.SystemPrompt)
	}
}

func TestReloader_ReloadKeepsConfigOnError(t *testing.T) {
	configPath := writeFile(t, "config.jsonc", `{"gateway": `)

	initial := Default()
	r := NewReloader(configPath, filepath.Join(t.TempDir(), ".env"), initial)

	if err := r.Reload(); err == nil {
		t.Fatal("expected error for invalid config")
	}
	if r.Current() != initial {
		t.Error("config swapped despite reload failure")
	}
}

func TestReloader_Watch(t *testing.T) {
	configPath := writeFile(t, "config.jsonc", `{"gateway": {"port": 8123}}`)
	r := NewReloader(configPath, filepath.Join(t.TempDir(), ".env"), Default())

	reloaded := make(chan *Config, 1)
	r.OnReload(func(c *Config) { reloaded <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	go r.Watch(ctx, signals)

	signals <- syscall.SIGHUP
	select {
	case c := <-reloaded:
		if c.Gateway.Port != 8123 {
			t.Errorf("port = %d, want 8123", c.Gateway.Port)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for reload")
	}
}
