package config

import (
	"strings"
	"time"
)

// Config is the root configuration for Codepilot.
type Config struct {
	Client  ClientConfig  `json:"client"`
	Gateway GatewayConfig `json:"gateway"`
	Events  EventsConfig  `json:"events"`
	Log     LogConfig     `json:"log"`
}

// ClientConfig configures the chat client side (TUI and ask).
type ClientConfig struct {
	BaseURL     string    `json:"base_url"`               // backend root URL (default: $CODEPILOT_URL or http://127.0.0.1:8000)
	TurnTimeout *Duration `json:"turn_timeout,omitempty"` // whole-turn bound, "0s" disables (default: 5m)
	DefaultTask string    `json:"default_task,omitempty"` // initial task mode (default: general)
}

// Timeout returns the configured turn timeout; zero means unbounded.
func (c ClientConfig) Timeout() time.Duration {
	if c.TurnTimeout == nil {
		return DefaultTurnTimeout
	}
	return c.TurnTimeout.Duration()
}

// GatewayConfig holds the relay server settings.
type GatewayConfig struct {
	Host         string      `json:"host"`
	Port         int         `json:"port"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
	Model        ModelConfig `json:"model"`
	// EventLogDir receives one JSONL file per request. Empty disables it.
	EventLogDir string `json:"event_log_dir,omitempty"`
}

// ModelConfig configures the Ollama model the gateway relays to.
type ModelConfig struct {
	BaseURL string         `json:"base_url"` // Ollama root, e.g. http://127.0.0.1:11434
	Model   string         `json:"model"`
	Timeout Duration       `json:"timeout,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `json:"level"` // debug, info, warn, error
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
