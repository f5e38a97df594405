// Package session drives chat turns: it validates input, records messages in
// the transcript, streams the assistant reply into a placeholder message and
// resolves the turn to success or failure.
//
// Observers follow a session through the events bus; the only write paths
// into a Controller are Submit, Cancel and SetTask.
package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/stream"
	"github.com/dohr-michael/codepilot/internal/taskmode"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

// Greeting is the assistant message every session starts with.
const Greeting = "Hi! I'm Codepilot. Paste code or ask me to explain, refactor, or fix it."

// State is the phase of the turn state machine.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Streamer opens one streaming exchange with the backend.
type Streamer interface {
	Open(ctx context.Context, req stream.Request) (stream.Reader, error)
}

// Config holds the dependencies of a Controller.
type Config struct {
	Streamer Streamer
	// Bus receives transcript and state events. Optional.
	Bus *events.Bus
	// Task is the initial task mode (default: general).
	Task taskmode.Mode
	// Greeting overrides the seeded assistant message. Use Greeting for the default.
	Greeting string
	// TurnTimeout bounds a whole turn; zero means no limit.
	TurnTimeout time.Duration
	Logger      *slog.Logger
}

// Controller owns the transcript and the pending flag of one chat session.
// Only one turn may be in flight; submissions made meanwhile are dropped.
type Controller struct {
	id         string
	streamer   Streamer
	bus        *events.Bus
	transcript *transcript.Transcript
	selector   *taskmode.Selector
	timeout    time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	state     State
	lastState State
	pending   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
}

// New creates a controller with a transcript seeded by cfg.Greeting.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := "sess_" + strings.ReplaceAll(uuid.New().String()[:8], "-", "")

	return &Controller{
		id:         id,
		streamer:   cfg.Streamer,
		bus:        cfg.Bus,
		transcript: transcript.New(cfg.Greeting),
		selector:   taskmode.NewSelector(cfg.Task),
		timeout:    cfg.TurnTimeout,
		logger:     logger.With("session", id),
		state:      StateIdle,
	}
}

// ID returns the session identifier attached to published events.
func (c *Controller) ID() string { return c.id }

// Snapshot returns the current transcript in order.
func (c *Controller) Snapshot() []transcript.Message {
	return c.transcript.Snapshot()
}

// Pending reports whether a turn is in flight.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// State returns the current phase of the turn state machine.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastOutcome returns how the most recent turn ended: StateCompleted,
// StateFailed, or StateIdle if no turn has finished yet.
func (c *Controller) LastOutcome() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastState == "" {
		return StateIdle
	}
	return c.lastState
}

// Task returns the selected task mode.
func (c *Controller) Task() taskmode.Mode {
	return c.selector.Get()
}

// SetTask selects the task mode used by the next submission. It has no
// effect on a turn already in flight.
func (c *Controller) SetTask(m taskmode.Mode) error {
	prev := c.selector.Get()
	changed, err := c.selector.Set(m)
	if err != nil {
		return err
	}
	if changed {
		c.publish(events.TaskSelectedPayload{Task: string(m), Previous: string(prev)})
	}
	return nil
}

// Submit starts a turn for input. It returns false without touching any
// state when the trimmed input is empty or a turn is already pending. On
// acceptance the user message and an empty assistant placeholder are in the
// transcript before Submit returns, and the reply streams in the background.
func (c *Controller) Submit(ctx context.Context, input string) bool {
	text := strings.TrimSpace(input)
	if text == "" {
		c.logger.Debug("submit ignored", "reason", "empty input")
		return false
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		c.logger.Debug("submit ignored", "reason", "turn already pending")
		return false
	}
	c.state = StateSubmitting

	userMsg := transcript.NewMessage(transcript.RoleUser, text)
	c.transcript.Append(userMsg)
	req := stream.Request{
		Prompt:  text,
		Task:    c.selector.Get(),
		History: c.transcript.History(),
	}
	assistant := transcript.NewMessage(transcript.RoleAssistant, "")
	c.transcript.Append(assistant)

	var turnCtx context.Context
	var cancel context.CancelFunc
	if c.timeout > 0 {
		turnCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		turnCtx, cancel = context.WithCancel(ctx)
	}
	done := make(chan struct{})

	c.pending = true
	c.cancel = cancel
	c.done = done
	c.lastErr = nil
	c.state = StateStreaming
	c.mu.Unlock()

	c.publish(events.UserMessagePayload{MessageID: userMsg.ID, Content: text})
	c.publish(events.AssistantStreamPayload{MessageID: assistant.ID, Phase: events.StreamPhaseStart})
	c.publish(events.TurnPendingPayload{Pending: true})

	c.logger.Info("turn started", "task", req.Task, "history", len(req.History))
	go c.run(turnCtx, cancel, req, assistant.ID, done)
	return true
}

// Cancel aborts the turn in flight, which then fails with "request cancelled".
// It reports whether there was a turn to cancel.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending || c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// Wait blocks until no turn is pending and returns the failure of the most
// recent turn, or nil if it completed.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, req stream.Request, assistantID string, done chan struct{}) {
	defer cancel()
	start := time.Now()

	err := c.consume(ctx, req, assistantID)
	outcome := StateCompleted
	if err != nil {
		outcome = StateFailed
		c.fail(assistantID, err)
	} else {
		c.complete(assistantID)
	}

	// Published while still pending so no later turn's events can precede it.
	c.publish(events.TurnPendingPayload{Pending: false, Duration: time.Since(start)})

	c.mu.Lock()
	c.pending = false
	c.cancel = nil
	c.lastErr = err
	c.lastState = outcome
	c.state = StateIdle
	close(done)
	c.mu.Unlock()
}

// consume drains the stream into the placeholder message, in receipt order.
func (c *Controller) consume(ctx context.Context, req stream.Request, assistantID string) error {
	r, err := c.streamer.Open(ctx, req)
	if err != nil {
		return err
	}
	defer r.Close()

	for i := 0; ; {
		inc, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if inc == "" {
			continue
		}
		c.transcript.Mutate(assistantID, func(content string) string { return content + inc })
		c.publish(events.AssistantStreamPayload{
			MessageID: assistantID,
			Phase:     events.StreamPhaseDelta,
			Content:   inc,
			Index:     i,
		})
		i++
	}
}

func (c *Controller) complete(assistantID string) {
	msg, _ := c.transcript.Get(assistantID)
	c.publish(events.AssistantStreamPayload{MessageID: assistantID, Phase: events.StreamPhaseEnd})
	c.publish(events.AssistantMessagePayload{MessageID: assistantID, Content: msg.Content})
	c.logger.Info("turn completed", "bytes", len(msg.Content))
}

// fail discards any partial reply and replaces it with the error block.
func (c *Controller) fail(assistantID string, err error) {
	diag := stream.Diagnostic(err)
	block := FormatError(diag)
	c.transcript.Mutate(assistantID, func(string) string { return block })
	c.publish(events.AssistantMessagePayload{MessageID: assistantID, Content: block, Error: diag})
	c.logger.Warn("turn failed", "error", err)
}

func (c *Controller) publish(payload events.EventPayload) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.NewTypedEventWithSession(events.SourceSession, payload, c.id))
}

// FormatError renders a failure diagnostic as a quoted block.
func FormatError(diagnostic string) string {
	lines := strings.Split(diagnostic, "\n")
	return "> **Request failed**\n>\n> " + strings.Join(lines, "\n> ")
}
