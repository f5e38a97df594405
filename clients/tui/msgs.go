package tui

import (
	"time"

	"github.com/dohr-michael/codepilot/internal/events"
)

// eventMsg wraps a bus event delivered to the program.
type eventMsg struct {
	event events.Event
}

// busClosedMsg signals the subscription channel was closed.
type busClosedMsg struct{}

// TranscriptChangedMsg signals the transcript gained or changed a message.
type TranscriptChangedMsg struct {
	MessageID string
}

// TurnPendingMsg reports a change of the pending flag.
type TurnPendingMsg struct {
	Pending  bool
	Duration time.Duration
}

// AssistantMessageMsg carries the terminal content of a turn.
type AssistantMessageMsg struct {
	MessageID string
	Content   string
	Error     string
}

// TaskSelectedMsg reports a task mode change.
type TaskSelectedMsg struct {
	Task string
}
