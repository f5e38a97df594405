// Package transcript holds the ordered record of chat messages for a session.
package transcript

import (
	"sync"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the transcript. ID and Role never change
// after creation; Content grows while an assistant reply streams in.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Turn is a message reduced to what the backend needs.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.New().String(),
		Role:    role,
		Content: content,
	}
}

// Transcript is an append-only list of messages addressable by id.
// Messages are never reordered or removed.
type Transcript struct {
	mu    sync.RWMutex
	byID  map[string]*Message
	order []string
}

// New creates a transcript seeded with an assistant greeting.
// An empty greeting yields an empty transcript.
func New(greeting string) *Transcript {
	t := &Transcript{byID: make(map[string]*Message)}
	if greeting != "" {
		t.Append(NewMessage(RoleAssistant, greeting))
	}
	return t
}

// Append adds msg at the end. A message whose id is already present is ignored.
func (t *Transcript) Append(msg Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.byID[msg.ID]; exists {
		return
	}
	m := msg
	t.byID[msg.ID] = &m
	t.order = append(t.order, msg.ID)
}

// Mutate replaces the content of the message with the given id by
// fn(content). It reports whether a message was found; a missing id is a no-op.
func (t *Transcript) Mutate(id string, fn func(content string) string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.byID[id]
	if !ok {
		return false
	}
	m.Content = fn(m.Content)
	return true
}

// Get returns a copy of the message with the given id.
func (t *Transcript) Get(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m, ok := t.byID[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Snapshot returns a point-in-time copy of all messages in insertion order.
func (t *Transcript) Snapshot() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Message, len(t.order))
	for i, id := range t.order {
		out[i] = *t.byID[id]
	}
	return out
}

// History returns the snapshot without message ids.
func (t *Transcript) History() []Turn {
	msgs := t.Snapshot()
	out := make([]Turn, len(msgs))
	for i, m := range msgs {
		out[i] = Turn{Role: m.Role, Content: m.Content}
	}
	return out
}
