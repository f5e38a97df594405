package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/codepilot/internal/config"
)

// loadConfig reads the config named by --config, falling back to defaults
// when the file is missing, and applies CLI overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if cmd.IsSet("url") {
		cfg.Client.BaseURL = cmd.String("url")
	}
	return cfg, nil
}

// setupLogging installs the default slog logger writing to w. --debug wins
// over log.level.
func setupLogging(cmd *cli.Command, cfg *config.Config, w io.Writer) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		slog.Warn("invalid log level, using info", "level", cfg.Log.Level)
		level = slog.LevelInfo
	}
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// openLogFile opens the log file used while the TUI owns the terminal.
func openLogFile() (*os.File, error) {
	path := config.LogPath()
	if err := os.MkdirAll(config.CodepilotPath(), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
