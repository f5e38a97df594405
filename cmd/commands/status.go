package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/codepilot/internal/config"
	"github.com/dohr-michael/codepilot/internal/heartbeat"
	"github.com/dohr-michael/codepilot/internal/stream"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show backend and local gateway status",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			status, hb, err := heartbeat.Check(config.HeartbeatPath(), 2*heartbeat.DefaultInterval)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}
			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Gateway: ALIVE (PID %d, %s, model %s, uptime %s)\n", hb.PID, hb.Addr, hb.Model, hb.Uptime)
			case heartbeat.StatusStale:
				fmt.Printf("Gateway: STALE (PID %d, last heartbeat %s ago)\n",
					hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Gateway: NOT RUNNING (local)")
			}

			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			client := stream.NewClient(cfg.Client.BaseURL)
			health, err := client.Health(ctx)
			if err != nil {
				fmt.Printf("Backend: UNREACHABLE (%s): %s\n", client.BaseURL(), stream.Diagnostic(err))
				return nil
			}
			state := "OK"
			if !health.OK {
				state = "DEGRADED"
			}
			fmt.Printf("Backend: %s (%s, model %s, ollama %s)\n", state, client.BaseURL(), health.Model, health.Ollama)
			return nil
		},
	}
}
