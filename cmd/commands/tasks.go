package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/codepilot/internal/gateway"
	"github.com/dohr-michael/codepilot/internal/taskmode"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "List task modes",
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			current, err := taskmode.Parse(cfg.Client.DefaultTask)
			if err != nil {
				current = taskmode.Default
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, m := range taskmode.All() {
				marker := " "
				if m == current {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s\t%s\n", marker, m, gateway.TaskPrompt(m))
			}
			return w.Flush()
		},
	}
}
