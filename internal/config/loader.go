package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

const (
	DefaultBaseURL      = "http://127.0.0.1:8000"
	DefaultOllamaURL    = "http://127.0.0.1:11434"
	DefaultModelName    = "codepilot"
	DefaultTurnTimeout  = 5 * time.Minute
	DefaultModelTimeout = 2 * time.Minute
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates, strips
// comments and trailing commas, unmarshals it into Config and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes JSONC config bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	// Templates live inside strings, so expand before standardizing.
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		return Default(), nil
	}
	return cfg, err
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Client.BaseURL == "" {
		if v := os.Getenv("CODEPILOT_URL"); v != "" {
			cfg.Client.BaseURL = v
		} else {
			cfg.Client.BaseURL = DefaultBaseURL
		}
	}
	if cfg.Client.TurnTimeout == nil {
		d := Duration(DefaultTurnTimeout)
		cfg.Client.TurnTimeout = &d
	}
	if cfg.Client.DefaultTask == "" {
		cfg.Client.DefaultTask = "general"
	}

	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8000
	}
	if cfg.Gateway.Model.BaseURL == "" {
		if v := os.Getenv("OLLAMA_URL"); v != "" {
			cfg.Gateway.Model.BaseURL = v
		} else {
			cfg.Gateway.Model.BaseURL = DefaultOllamaURL
		}
	}
	// OLLAMA_URL historically pointed at the chat endpoint itself.
	cfg.Gateway.Model.BaseURL = strings.TrimSuffix(strings.TrimSuffix(cfg.Gateway.Model.BaseURL, "/"), "/api/chat")
	if cfg.Gateway.Model.Model == "" {
		if v := os.Getenv("MODEL_NAME"); v != "" {
			cfg.Gateway.Model.Model = v
		} else {
			cfg.Gateway.Model.Model = DefaultModelName
		}
	}
	if cfg.Gateway.Model.Timeout == 0 {
		cfg.Gateway.Model.Timeout = Duration(DefaultModelTimeout)
	}

	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}
