package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/codepilot/clients/tui"
	"github.com/dohr-michael/codepilot/internal/config"
	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/session"
	"github.com/dohr-michael/codepilot/internal/stream"
	"github.com/dohr-michael/codepilot/internal/taskmode"
)

// NewChatCommand returns the chat subcommand.
func NewChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Open the interactive chat",
		Flags: []cli.Flag{
			taskFlag(),
			&cli.BoolFlag{
				Name:  "no-markdown",
				Usage: "Show replies as plain text",
			},
		},
		Action: runChat,
	}
}

func taskFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "task",
		Aliases: []string{"t"},
		Usage:   "Task mode (see `codepilot tasks`)",
	}
}

// selectedTask resolves --task, falling back to client.default_task.
func selectedTask(cmd *cli.Command, cfg *config.Config) (taskmode.Mode, error) {
	raw := cfg.Client.DefaultTask
	if cmd.IsSet("task") {
		raw = cmd.String("task")
	}
	return taskmode.Parse(raw)
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The TUI owns the terminal; logs go to a file.
	logFile, err := openLogFile()
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	setupLogging(cmd, cfg, logFile)

	task, err := selectedTask(cmd, cfg)
	if err != nil {
		return err
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	client := stream.NewClient(cfg.Client.BaseURL)
	ctrl := session.New(session.Config{
		Streamer:    client,
		Bus:         bus,
		Task:        task,
		Greeting:    session.Greeting,
		TurnTimeout: cfg.Client.Timeout(),
	})
	slog.Info("chat started", "session", ctrl.ID(), "backend", client.BaseURL(), "task", task)

	err = tui.Run(ctx, ctrl, bus, tui.Options{
		Markdown: !cmd.Bool("no-markdown"),
		Endpoint: client.BaseURL(),
	})

	// Let an in-flight turn resolve before the bus closes.
	ctrl.Cancel()
	ctrl.Wait()
	return err
}
