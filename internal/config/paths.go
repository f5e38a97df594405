package config

import (
	"os"
	"path/filepath"
)

// CodepilotPath returns the root directory for Codepilot data.
// It uses $CODEPILOT_PATH if set, otherwise defaults to ~/.codepilot.
func CodepilotPath() string {
	if v := os.Getenv("CODEPILOT_PATH"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".codepilot")
	}
	return filepath.Join(home, ".codepilot")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(CodepilotPath(), "config.jsonc")
}

// DotenvPath returns the path to the .env file.
func DotenvPath() string {
	return filepath.Join(CodepilotPath(), ".env")
}

// LogPath returns the log file used while the TUI owns the terminal.
func LogPath() string {
	return filepath.Join(CodepilotPath(), "codepilot.log")
}

// HeartbeatPath returns the liveness file written by a running gateway.
func HeartbeatPath() string {
	return filepath.Join(CodepilotPath(), "gateway.heartbeat.json")
}
