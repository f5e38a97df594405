// Command chat_flow exercises a full chat turn against a running backend.
//
// It checks /health, streams one reply through a session controller, and
// verifies that the transcript holds the greeting, the prompt and a non-empty
// reply that is not an error block.
//
// Usage: chat_flow -url http://127.0.0.1:8000 -prompt "say hi" -task general
//
// Exit codes:
//
//	0 = all checks passed
//	1 = a check failed
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/session"
	"github.com/dohr-michael/codepilot/internal/stream"
	"github.com/dohr-michael/codepilot/internal/taskmode"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

func main() {
	baseURL := flag.String("url", stream.DefaultBaseURL, "Backend base URL")
	prompt := flag.String("prompt", "Reply with the single word: pong", "Prompt to send")
	task := flag.String("task", string(taskmode.General), "Task mode")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, *baseURL, *prompt, *task); err != nil {
		fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("PASS")
}

func run(ctx context.Context, baseURL, prompt, rawTask string) error {
	task, err := taskmode.Parse(rawTask)
	if err != nil {
		return err
	}
	client := stream.NewClient(baseURL)

	// ── Step 1: backend is up ───────────────────────────────────────────
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health: %s", stream.Diagnostic(err))
	}
	if !health.OK {
		return fmt.Errorf("health: backend reports not ok")
	}
	fmt.Printf("CHECK backend healthy: model=%s\n", health.Model)

	// ── Step 2: stream one turn ─────────────────────────────────────────
	bus := events.NewBus(256)
	defer bus.Close()

	deltas := 0
	bus.Subscribe(func(e events.Event) {
		if p, ok := events.GetAssistantStreamPayload(e); ok && p.Phase == events.StreamPhaseDelta {
			deltas++
		}
	}, events.EventAssistantStream)

	ctrl := session.New(session.Config{
		Streamer: client,
		Bus:      bus,
		Task:     task,
		Greeting: session.Greeting,
	})
	if !ctrl.Submit(ctx, prompt) {
		return fmt.Errorf("submit rejected")
	}
	if err := ctrl.Wait(); err != nil {
		return fmt.Errorf("turn failed: %s", stream.Diagnostic(err))
	}
	bus.Close()
	fmt.Printf("CHECK turn completed: %d deltas\n", deltas)

	// ── Step 3: transcript shape ────────────────────────────────────────
	msgs := ctrl.Snapshot()
	if len(msgs) != 3 {
		return fmt.Errorf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[1].Role != transcript.RoleUser || msgs[1].Content != strings.TrimSpace(prompt) {
		return fmt.Errorf("unexpected user message %+v", msgs[1])
	}
	reply := msgs[2].Content
	if reply == "" || strings.HasPrefix(reply, "> **Request failed**") {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	fmt.Printf("CHECK reply received: %d bytes\n", len(reply))
	return nil
}
