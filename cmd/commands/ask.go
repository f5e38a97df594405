package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/session"
	"github.com/dohr-michael/codepilot/internal/stream"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send one prompt and print the reply",
		ArgsUsage: "<prompt>",
		Description: "The prompt is read from the arguments. When stdin is not a terminal its\n" +
			"content is appended, so `cat main.go | codepilot ask -t explain` works.",
		Flags: []cli.Flag{
			taskFlag(),
			&cli.BoolFlag{
				Name:  "no-stream",
				Usage: "Wait for the whole reply instead of streaming it",
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogging(cmd, cfg, os.Stderr)

	prompt, err := readPrompt(strings.Join(cmd.Args().Slice(), " "), os.Stdin)
	if err != nil {
		return err
	}
	if prompt == "" {
		return fmt.Errorf("usage: codepilot ask <prompt>")
	}

	task, err := selectedTask(cmd, cfg)
	if err != nil {
		return err
	}
	client := stream.NewClient(cfg.Client.BaseURL)

	if cmd.Bool("no-stream") {
		if timeout := cfg.Client.Timeout(); timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		content, err := client.Chat(ctx, stream.Request{
			Prompt:  prompt,
			Task:    task,
			History: []transcript.Turn{{Role: transcript.RoleUser, Content: prompt}},
		})
		if err != nil {
			return errors.New(stream.Diagnostic(err))
		}
		fmt.Fprintln(os.Stdout, content)
		return nil
	}

	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()
	bus.Subscribe(func(e events.Event) {
		if p, ok := events.GetAssistantStreamPayload(e); ok && p.Phase == events.StreamPhaseDelta {
			fmt.Fprint(os.Stdout, p.Content)
		}
	}, events.EventAssistantStream)

	ctrl := session.New(session.Config{
		Streamer:    client,
		Bus:         bus,
		Task:        task,
		TurnTimeout: cfg.Client.Timeout(),
	})
	ctrl.Submit(ctx, prompt)
	turnErr := ctrl.Wait()

	// Flush pending deltas before printing the trailing newline.
	bus.Close()
	fmt.Fprintln(os.Stdout)

	if turnErr != nil {
		return errors.New(stream.Diagnostic(turnErr))
	}
	return nil
}

// readPrompt combines the argument prompt with piped stdin.
func readPrompt(arg string, stdin *os.File) (string, error) {
	prompt := strings.TrimSpace(arg)
	if stdin == nil || term.IsTerminal(int(stdin.Fd())) {
		return prompt, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	piped := strings.TrimSpace(string(data))
	switch {
	case piped == "":
		return prompt, nil
	case prompt == "":
		return piped, nil
	default:
		return prompt + "\n\n" + piped, nil
	}
}
