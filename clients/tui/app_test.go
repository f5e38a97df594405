package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/taskmode"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

// fakeSession records calls and mimics the controller's bookkeeping.
type fakeSession struct {
	mu        sync.Mutex
	messages  []transcript.Message
	pending   bool
	task      taskmode.Mode
	submitted []string
	cancels   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		messages: []transcript.Message{transcript.NewMessage(transcript.RoleAssistant, "Hi there")},
		task:     taskmode.Default,
	}
}

func (f *fakeSession) Snapshot() []transcript.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcript.Message(nil), f.messages...)
}

func (f *fakeSession) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeSession) Task() taskmode.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.task
}

func (f *fakeSession) SetTask(m taskmode.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.task = m
	return nil
}

func (f *fakeSession) Submit(_ context.Context, input string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	text := strings.TrimSpace(input)
	if text == "" || f.pending {
		return false
	}
	f.submitted = append(f.submitted, text)
	f.messages = append(f.messages,
		transcript.NewMessage(transcript.RoleUser, text),
		transcript.NewMessage(transcript.RoleAssistant, ""))
	f.pending = true
	return true
}

func (f *fakeSession) Cancel() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return f.pending
}

func (f *fakeSession) finish(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[len(f.messages)-1].Content = reply
	f.pending = false
}

func typeText(a *App, s string) {
	a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func newTestApp(s Session) *App {
	a := NewApp(context.Background(), s, Options{})
	a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return a
}

func TestApp_RendersGreeting(t *testing.T) {
	a := newTestApp(newFakeSession())

	view := a.View()
	if !strings.Contains(view, "Hi there") {
		t.Errorf("expected greeting in view, got:\n%s", view)
	}
	if !strings.Contains(view, "task: general") {
		t.Errorf("expected task in status bar, got:\n%s", view)
	}
}

func TestApp_SubmitClearsInputAndDisables(t *testing.T) {
	s := newFakeSession()
	a := newTestApp(s)

	typeText(a, "explain this")
	if got := a.input.Value(); got != "explain this" {
		t.Fatalf("input = %q", got)
	}

	a.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(s.submitted) != 1 || s.submitted[0] != "explain this" {
		t.Fatalf("submitted = %v", s.submitted)
	}
	if a.input.Value() != "" {
		t.Errorf("input not cleared: %q", a.input.Value())
	}
	if !a.pending || a.input.Placeholder != placeholderStreaming {
		t.Errorf("expected pending state, placeholder %q", a.input.Placeholder)
	}

	// Typing while pending is ignored.
	typeText(a, "more")
	if a.input.Value() != "" {
		t.Errorf("input accepted keys while pending: %q", a.input.Value())
	}
}

func TestApp_EmptySubmitKeepsIdle(t *testing.T) {
	s := newFakeSession()
	a := newTestApp(s)

	typeText(a, "   ")
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(s.submitted) != 0 {
		t.Fatalf("expected no submission, got %v", s.submitted)
	}
	if a.pending || a.input.Placeholder != placeholderIdle {
		t.Error("expected idle state")
	}
}

func TestApp_AltEnterInsertsNewline(t *testing.T) {
	s := newFakeSession()
	a := newTestApp(s)

	typeText(a, "line one")
	a.Update(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	typeText(a, "line two")

	if got := a.input.Value(); got != "line one\nline two" {
		t.Errorf("input = %q", got)
	}
	if len(s.submitted) != 0 {
		t.Error("alt+enter must not submit")
	}
}

func TestApp_PendingClearedByEvent(t *testing.T) {
	s := newFakeSession()
	a := newTestApp(s)

	typeText(a, "hi")
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	s.finish("Hello!")

	evt := events.NewTypedEvent(events.SourceSession, events.TurnPendingPayload{Pending: false, Duration: time.Second})
	a.Update(eventMsg{event: evt})

	if a.pending || a.input.Placeholder != placeholderIdle {
		t.Error("expected idle after turn.pending=false")
	}
	if !strings.Contains(a.View(), "Hello!") {
		t.Errorf("expected reply in view, got:\n%s", a.View())
	}
}

func TestApp_SpinnerTickRecoversDroppedEvent(t *testing.T) {
	s := newFakeSession()
	a := newTestApp(s)

	typeText(a, "hi")
	a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	s.finish("done")

	a.Update(a.spinner.Tick())

	if a.pending {
		t.Error("expected spinner tick to observe the finished turn")
	}
}

func TestApp_CycleTaskAndCancel(t *testing.T) {
	s := newFakeSession()
	a := newTestApp(s)

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	if s.Task() != taskmode.Explain {
		t.Errorf("task = %s, want explain", s.Task())
	}

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	if s.cancels != 1 {
		t.Errorf("cancels = %d, want 1", s.cancels)
	}
}

func TestApp_CtrlCQuits(t *testing.T) {
	a := newTestApp(newFakeSession())

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  tea.Msg
	}{
		{
			name:  "user message",
			event: events.NewTypedEvent(events.SourceSession, events.UserMessagePayload{MessageID: "u1", Content: "hi"}),
			want:  TranscriptChangedMsg{MessageID: "u1"},
		},
		{
			name:  "stream delta",
			event: events.NewTypedEvent(events.SourceSession, events.AssistantStreamPayload{MessageID: "a1", Phase: events.StreamPhaseDelta, Content: "x"}),
			want:  TranscriptChangedMsg{MessageID: "a1"},
		},
		{
			name:  "assistant message",
			event: events.NewTypedEvent(events.SourceSession, events.AssistantMessagePayload{MessageID: "a1", Content: "block", Error: "HTTP 500"}),
			want:  AssistantMessageMsg{MessageID: "a1", Content: "block", Error: "HTTP 500"},
		},
		{
			name:  "pending",
			event: events.NewTypedEvent(events.SourceSession, events.TurnPendingPayload{Pending: true}),
			want:  TurnPendingMsg{Pending: true},
		},
		{
			name:  "task",
			event: events.NewTypedEvent(events.SourceSession, events.TaskSelectedPayload{Task: "fix"}),
			want:  TaskSelectedMsg{Task: "fix"},
		},
		{
			name:  "unknown",
			event: events.NewEvent("other.thing", events.SourceSession, nil),
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Project(tt.event); got != tt.want {
				t.Errorf("Project() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestWaitForEvent_Closed(t *testing.T) {
	ch := make(chan events.Event)
	close(ch)
	if _, ok := waitForEvent(ch)().(busClosedMsg); !ok {
		t.Error("expected busClosedMsg for closed channel")
	}
}

func TestMarkdownRenderer_EmptyAndFallback(t *testing.T) {
	var r markdownRenderer
	if got := r.Render("", 40); got != "" {
		t.Errorf("empty content rendered as %q", got)
	}
	if got := r.Render("**bold**", 40); !strings.Contains(got, "bold") {
		t.Errorf("rendered = %q", got)
	}
}
