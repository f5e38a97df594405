package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/codepilot/internal/config"
)

// NewRootCommand returns the top-level CLI command. Without a subcommand it
// opens the interactive chat.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "codepilot",
		Usage: "Offline coding assistant for your terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Backend base URL (overrides client.base_url)",
				Sources: cli.EnvVars("CODEPILOT_URL"),
			},
		},
		Action: runChat,
		Commands: []*cli.Command{
			NewChatCommand(),
			NewAskCommand(),
			NewTasksCommand(),
			NewStatusCommand(),
			NewGatewayCommand(),
		},
	}
}
