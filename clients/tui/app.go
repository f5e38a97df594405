package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/taskmode"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

const (
	placeholderIdle      = "Enter to send · Alt+Enter for newline"
	placeholderStreaming = "Streaming…"

	inputHeight  = 3
	chromeHeight = inputHeight + 2 + 1 // input + border + status bar
)

// Session is the controller surface the TUI drives. The TUI never writes
// the transcript itself.
type Session interface {
	Snapshot() []transcript.Message
	Pending() bool
	Task() taskmode.Mode
	SetTask(taskmode.Mode) error
	Submit(ctx context.Context, input string) bool
	Cancel() bool
}

// Options configures an App.
type Options struct {
	// Events feeds re-renders. Optional; without it the view refreshes on
	// spinner ticks only.
	Events <-chan events.Event
	// Markdown renders assistant replies with glamour.
	Markdown bool
	// Endpoint is shown in the status bar.
	Endpoint string
}

// App is the main TUI application model.
// Layout: TRANSCRIPT | INPUT | STATUS BAR
type App struct {
	ctx     context.Context
	session Session
	events  <-chan events.Event

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	markdown *markdownRenderer

	useMarkdown bool
	endpoint    string

	width    int
	height   int
	pending  bool
	notice   string
	quitting bool
}

// NewApp creates the TUI model for a session. Turns submitted from the TUI
// are bound to ctx.
func NewApp(ctx context.Context, s Session, opts Options) *App {
	ta := textarea.New()
	ta.Placeholder = placeholderIdle
	ta.ShowLineNumbers = false
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorAssistant)

	a := &App{
		ctx:         ctx,
		session:     s,
		events:      opts.Events,
		viewport:    viewport.New(80, 24-chromeHeight),
		input:       ta,
		spinner:     sp,
		markdown:    &markdownRenderer{},
		useMarkdown: opts.Markdown,
		endpoint:    opts.Endpoint,
		width:       80,
		height:      24,
	}
	a.layout()
	a.refresh(true)
	return a
}

// Init starts the event loop, cursor blink and, if a turn is already in
// flight, the spinner.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if a.events != nil {
		cmds = append(cmds, waitForEvent(a.events))
	}
	cmds = append(cmds, a.setPending(a.session.Pending()))
	return tea.Batch(cmds...)
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		a.refresh(true)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd

	case eventMsg:
		cmd := a.apply(Project(msg.event))
		return a, tea.Batch(cmd, waitForEvent(a.events))

	case busClosedMsg:
		a.events = nil
		return a, nil

	case spinner.TickMsg:
		if !a.pending {
			return a, nil
		}
		// Recover from a dropped turn.pending event.
		if !a.session.Pending() {
			cmd := a.setPending(false)
			a.refresh(false)
			return a, cmd
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.refresh(false)
		return a, cmd

	default:
		if cmd := a.apply(msg); cmd != nil {
			return a, cmd
		}
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// apply folds a projected event into the view.
func (a *App) apply(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case TranscriptChangedMsg:
		a.refresh(false)
	case AssistantMessageMsg:
		if msg.Error != "" {
			a.notice = ErrorStyle.Render("request failed")
		}
		a.refresh(false)
	case TurnPendingMsg:
		if !msg.Pending && a.notice == "" && msg.Duration > 0 {
			a.notice = MutedStyle.Render("replied in " + msg.Duration.Round(100*time.Millisecond).String())
		}
		cmd := a.setPending(msg.Pending)
		a.refresh(false)
		return cmd
	case TaskSelectedMsg:
		a.notice = MutedStyle.Render("task: " + msg.Task)
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c":
		a.quitting = true
		a.session.Cancel()
		return tea.Quit
	case "ctrl+t":
		if err := a.session.SetTask(a.session.Task().Next()); err != nil {
			slog.Warn("select task", "error", err)
		}
		return nil
	case "ctrl+x":
		if a.session.Cancel() {
			a.notice = MutedStyle.Render("cancelling…")
		}
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return cmd
	case "enter":
		return a.submit()
	}

	if a.pending {
		return nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

func (a *App) submit() tea.Cmd {
	if a.pending {
		return nil
	}
	if !a.session.Submit(a.ctx, a.input.Value()) {
		return nil
	}
	a.input.Reset()
	a.notice = ""
	cmd := a.setPending(true)
	a.refresh(true)
	return cmd
}

func (a *App) setPending(p bool) tea.Cmd {
	if a.pending == p {
		return nil
	}
	a.pending = p
	if p {
		a.input.Blur()
		a.input.Placeholder = placeholderStreaming
		return a.spinner.Tick
	}
	a.input.Placeholder = placeholderIdle
	return a.input.Focus()
}

func (a *App) layout() {
	h := a.height - chromeHeight
	if h < 3 {
		h = 3
	}
	a.viewport.Width = a.width
	a.viewport.Height = h
	a.input.SetWidth(max(a.width-2, 10))
}

// refresh re-renders the transcript, following the tail when asked or when
// the view was already at the bottom.
func (a *App) refresh(follow bool) {
	atBottom := a.viewport.AtBottom()
	a.viewport.SetContent(a.renderTranscript())
	if follow || atBottom {
		a.viewport.GotoBottom()
	}
}

func (a *App) renderTranscript() string {
	width := max(a.viewport.Width, 20)
	plain := lipgloss.NewStyle().Width(width)

	msgs := a.session.Snapshot()
	blocks := make([]string, 0, len(msgs))
	for i, m := range msgs {
		var label, body string
		switch m.Role {
		case transcript.RoleUser:
			label = UserStyle.Render("You")
			body = plain.Render(m.Content)
		default:
			label = AssistantStyle.Render("Codepilot")
			switch {
			case m.Content == "" && a.pending && i == len(msgs)-1:
				body = a.spinner.View() + MutedStyle.Render(" thinking…")
			case a.useMarkdown:
				body = a.markdown.Render(m.Content, width)
			default:
				body = plain.Render(m.Content)
			}
		}
		blocks = append(blocks, label+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

// View renders the application.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	border := InputBorderActiveStyle
	if a.pending {
		border = InputBorderStyle
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		border.Width(max(a.width-2, 10)).Render(a.input.View()),
		a.statusBar(),
	)
}

func (a *App) statusBar() string {
	left := TaskStyle.Render("task: " + a.session.Task().String())
	if a.pending {
		left += " " + a.spinner.View()
	}
	if a.notice != "" {
		left += "  " + a.notice
	}
	right := "ctrl+t task · ctrl+x cancel · ctrl+c quit"
	if a.endpoint != "" {
		right = a.endpoint + " · " + right
	}
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return StatusBarStyle.Width(a.width).Render(left + strings.Repeat(" ", gap) + MutedStyle.Render(right))
}

// Run subscribes to bus and runs the TUI until the user quits or ctx ends.
func Run(ctx context.Context, s Session, bus *events.Bus, opts Options) error {
	if bus != nil {
		ch, unsubscribe := bus.SubscribeChan(256)
		defer unsubscribe()
		opts.Events = ch
	}

	p := tea.NewProgram(
		NewApp(ctx, s, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}
