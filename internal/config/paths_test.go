package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCodepilotPath_Default(t *testing.T) {
	t.Setenv("CODEPILOT_PATH", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}

	got := CodepilotPath()
	want := filepath.Join(home, ".codepilot")
	if got != want {
		t.Errorf("CodepilotPath() = %q, want %q", got, want)
	}
}

func TestCodepilotPath_EnvOverride(t *testing.T) {
	t.Setenv("CODEPILOT_PATH", "/tmp/custom-codepilot")

	if got := CodepilotPath(); got != "/tmp/custom-codepilot" {
		t.Errorf("CodepilotPath() = %q, want %q", got, "/tmp/custom-codepilot")
	}
}

func TestDerivedPaths(t *testing.T) {
	t.Setenv("CODEPILOT_PATH", "/tmp/test-codepilot")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"config", ConfigPath(), "/tmp/test-codepilot/config.jsonc"},
		{"dotenv", DotenvPath(), "/tmp/test-codepilot/.env"},
		{"log", LogPath(), "/tmp/test-codepilot/codepilot.log"},
		{"heartbeat", HeartbeatPath(), "/tmp/test-codepilot/gateway.heartbeat.json"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s path = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
