package gateway

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dohr-michael/codepilot/internal/stream"
	"github.com/dohr-michael/codepilot/internal/taskmode"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

// DefaultSystemPrompt is sent as the system message when none is configured.
const DefaultSystemPrompt = "You are Offline Copilot."

var taskPrompts = map[taskmode.Mode]string{
	taskmode.General:   "You are assisting with coding tasks.",
	taskmode.Explain:   "Explain the code briefly and point out pitfalls.",
	taskmode.Fix:       "Find bugs and propose a minimal fix. Return fixed code only.",
	taskmode.Refactor:  "Refactor for clarity and performance. Keep public API.",
	taskmode.Docstring: "Add/improve docstrings and type hints. Return full updated code.",
	taskmode.Review:    "Review the code like a senior engineer. List issues by severity with concrete suggestions.",
	taskmode.Optimize:  "Optimize the code for speed and memory. Keep behavior identical and explain each change briefly.",
	taskmode.Testgen:   "Write unit tests covering normal cases, edge cases and failures. Return test code only.",
	taskmode.Translate: "Translate the code to the requested language idiomatically. Return translated code only.",
	taskmode.Generate:  "Write new code that fulfils the request. Return complete, runnable code only.",
}

// TaskPrompt returns the instruction for a task, falling back to the general
// one for unknown values.
func TaskPrompt(task taskmode.Mode) string {
	if p, ok := taskPrompts[task]; ok {
		return p
	}
	return taskPrompts[taskmode.General]
}

// BuildUserPrompt renders the final user message sent to the model.
func BuildUserPrompt(task taskmode.Mode, prompt string, code, filename *string) string {
	file := "unknown"
	if filename != nil && *filename != "" {
		file = *filename
	}
	var codeBlock string
	if code != nil && *code != "" {
		codeBlock = "\n---CODE START---\n" + *code + "\n---CODE END---\n"
	}

	var b strings.Builder
	b.WriteString(TaskPrompt(task))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Task: %s\nFile: %s\n", task, file)
	fmt.Fprintf(&b, "User request: %s\n", prompt)
	b.WriteString(codeBlock)
	b.WriteString("\nRespond with final result only.")
	return b.String()
}

// BuildMessages assembles the model conversation for req: the system prompt,
// prior turns, then the rendered user prompt.
func BuildMessages(systemPrompt string, req stream.Request) []*schema.Message {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	task := req.Task
	if task == "" {
		task = taskmode.Default
	}

	msgs := []*schema.Message{schema.SystemMessage(systemPrompt)}
	for _, turn := range priorTurns(req) {
		switch turn.Role {
		case transcript.RoleUser:
			msgs = append(msgs, schema.UserMessage(turn.Content))
		case transcript.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return append(msgs, schema.UserMessage(BuildUserPrompt(task, req.Prompt, req.Code, req.Filename)))
}

// priorTurns drops empty turns and the trailing copy of the current prompt,
// which clients include at the end of the history.
func priorTurns(req stream.Request) []transcript.Turn {
	history := req.History
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == transcript.RoleUser && strings.TrimSpace(last.Content) == strings.TrimSpace(req.Prompt) {
			history = history[:n-1]
		}
	}
	out := make([]transcript.Turn, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
