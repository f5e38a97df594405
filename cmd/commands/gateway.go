package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/codepilot/internal/config"
	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/gateway"
	"github.com/dohr-michael/codepilot/internal/heartbeat"
	"github.com/dohr-michael/codepilot/internal/models"
	"github.com/dohr-michael/codepilot/internal/storage"
)

// NewGatewayCommand returns the gateway subcommand.
func NewGatewayCommand() *cli.Command {
	return &cli.Command{
		Name:  "gateway",
		Usage: "Serve the chat backend, relaying to Ollama",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "Ollama model name (overrides gateway.model.model)",
			},
			&cli.StringFlag{
				Name:  "event-log",
				Usage: "Directory for per-request JSONL event logs (overrides gateway.event_log_dir)",
			},
		},
		Action: runGateway,
	}
}

func runGateway(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cmd, cfg, os.Stderr)

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("model") {
		cfg.Gateway.Model.Model = cmd.String("model")
	}
	if cmd.IsSet("event-log") {
		cfg.Gateway.EventLogDir = cmd.String("event-log")
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	if dir := cfg.Gateway.EventLogDir; dir != "" {
		el := storage.NewEventLogger(dir, bus)
		defer el.Close()
		slog.Info("event log enabled", "dir", dir)
	}

	chatModel, err := models.NewOllama(ctx, cfg.Gateway.Model)
	if err != nil {
		return fmt.Errorf("init model: %w", err)
	}

	server := gateway.NewServer(gateway.Options{
		Host:         cfg.Gateway.Host,
		Port:         cfg.Gateway.Port,
		Model:        chatModel,
		ModelName:    cfg.Gateway.Model.Model,
		ModelURL:     cfg.Gateway.Model.BaseURL,
		SystemPrompt: cfg.Gateway.SystemPrompt,
		Bus:          bus,
	})

	// SIGHUP reloads .env and the config; only the system prompt is live.
	reloader := config.NewReloader(cmd.String("config"), config.DotenvPath(), cfg)
	reloader.OnReload(func(c *config.Config) {
		server.SetSystemPrompt(c.Gateway.SystemPrompt)
	})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reloader.Watch(ctx, hup)

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	hb := heartbeat.NewWriter(config.HeartbeatPath(), addr, cfg.Gateway.Model.Model)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	hb.Start()
	defer hb.Stop()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
