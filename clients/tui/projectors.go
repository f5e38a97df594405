package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/codepilot/internal/events"
)

// Project converts a bus event into a typed tea.Msg.
// Returns nil for events that don't map to a TUI message.
func Project(e events.Event) tea.Msg {
	switch e.Type {
	case events.EventUserMessage:
		p, ok := events.GetUserMessagePayload(e)
		if !ok {
			return nil
		}
		return TranscriptChangedMsg{MessageID: p.MessageID}
	case events.EventAssistantStream:
		p, ok := events.GetAssistantStreamPayload(e)
		if !ok {
			return nil
		}
		return TranscriptChangedMsg{MessageID: p.MessageID}
	case events.EventAssistantMessage:
		p, ok := events.GetAssistantMessagePayload(e)
		if !ok {
			return nil
		}
		return AssistantMessageMsg{MessageID: p.MessageID, Content: p.Content, Error: p.Error}
	case events.EventTurnPending:
		p, ok := events.GetTurnPendingPayload(e)
		if !ok {
			return nil
		}
		return TurnPendingMsg{Pending: p.Pending, Duration: p.Duration}
	case events.EventTaskSelected:
		p, ok := events.GetTaskSelectedPayload(e)
		if !ok {
			return nil
		}
		return TaskSelectedMsg{Task: p.Task}
	default:
		return nil
	}
}

// waitForEvent blocks on the subscription channel and delivers the next event.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return busClosedMsg{}
		}
		return eventMsg{event: e}
	}
}
