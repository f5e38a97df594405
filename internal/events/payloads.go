package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// TRANSCRIPT EVENTS
// =============================================================================

type UserMessagePayload struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func (UserMessagePayload) EventType() EventType { return EventUserMessage }

type StreamPhase string

const (
	StreamPhaseStart StreamPhase = "start"
	StreamPhaseDelta StreamPhase = "delta"
	StreamPhaseEnd   StreamPhase = "end"
)

// AssistantStreamPayload tracks the placeholder assistant message of a turn.
// Content is the increment for delta phases and empty otherwise.
type AssistantStreamPayload struct {
	MessageID string      `json:"message_id"`
	Phase     StreamPhase `json:"phase"`
	Content   string      `json:"content"`
	Index     int         `json:"index"`
}

func (AssistantStreamPayload) EventType() EventType { return EventAssistantStream }

// AssistantMessagePayload carries the terminal content of a turn. Error is
// set when the turn failed, in which case Content holds the error block.
type AssistantMessagePayload struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	Error     string `json:"error,omitempty"`
}

func (AssistantMessagePayload) EventType() EventType { return EventAssistantMessage }

// =============================================================================
// STATE EVENTS
// =============================================================================

type TurnPendingPayload struct {
	Pending  bool          `json:"pending"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (TurnPendingPayload) EventType() EventType { return EventTurnPending }

type TaskSelectedPayload struct {
	Task     string `json:"task"`
	Previous string `json:"previous,omitempty"`
}

func (TaskSelectedPayload) EventType() EventType { return EventTaskSelected }

// =============================================================================
// TELEMETRY EVENTS
// =============================================================================

// ModelCallPayload reports one model invocation. Phase is request, response
// or error; token counts are zero when the backend does not report usage.
type ModelCallPayload struct {
	Phase        string `json:"phase"`
	Model        string `json:"model"`
	MessageCount int    `json:"message_count,omitempty"`
	TokensInput  int    `json:"tokens_input,omitempty"`
	TokensOutput int    `json:"tokens_output,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (ModelCallPayload) EventType() EventType { return EventModelCall }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, sessionID string) Event {
	e := NewTypedEvent(source, payload)
	e.SessionID = sessionID
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetUserMessagePayload(e Event) (UserMessagePayload, bool) {
	return ExtractPayload[UserMessagePayload](e)
}

func GetAssistantStreamPayload(e Event) (AssistantStreamPayload, bool) {
	return ExtractPayload[AssistantStreamPayload](e)
}

func GetAssistantMessagePayload(e Event) (AssistantMessagePayload, bool) {
	return ExtractPayload[AssistantMessagePayload](e)
}

func GetTurnPendingPayload(e Event) (TurnPendingPayload, bool) {
	return ExtractPayload[TurnPendingPayload](e)
}

func GetTaskSelectedPayload(e Event) (TaskSelectedPayload, bool) {
	return ExtractPayload[TaskSelectedPayload](e)
}

func GetModelCallPayload(e Event) (ModelCallPayload, bool) {
	return ExtractPayload[ModelCallPayload](e)
}
