package events

import (
	"testing"
	"time"
)

func TestTypedEvent_UserMessage(t *testing.T) {
	payload := UserMessagePayload{MessageID: "m1", Content: "hello"}
	evt := NewTypedEvent(SourceSession, payload)

	if evt.Type != EventUserMessage {
		t.Fatalf("expected type %q, got %q", EventUserMessage, evt.Type)
	}
	got, ok := GetUserMessagePayload(evt)
	if !ok {
		t.Fatal("GetUserMessagePayload returned false")
	}
	if got != payload {
		t.Fatalf("expected %+v, got %+v", payload, got)
	}
}

func TestTypedEvent_AssistantStream(t *testing.T) {
	payload := AssistantStreamPayload{MessageID: "a1", Phase: StreamPhaseDelta, Content: "chunk", Index: 3}
	evt := NewTypedEventWithSession(SourceSession, payload, "sess_1")

	if evt.Type != EventAssistantStream {
		t.Fatalf("expected type %q, got %q", EventAssistantStream, evt.Type)
	}
	if evt.SessionID != "sess_1" {
		t.Fatalf("expected session id, got %q", evt.SessionID)
	}
	got, ok := GetAssistantStreamPayload(evt)
	if !ok {
		t.Fatal("GetAssistantStreamPayload returned false")
	}
	if got != payload {
		t.Fatalf("expected %+v, got %+v", payload, got)
	}
}

func TestTypedEvent_TurnPending(t *testing.T) {
	evt := NewTypedEvent(SourceSession, TurnPendingPayload{Pending: false, Duration: 2 * time.Second})

	got, ok := GetTurnPendingPayload(evt)
	if !ok {
		t.Fatal("GetTurnPendingPayload returned false")
	}
	if got.Pending || got.Duration != 2*time.Second {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestExtractPayload_WrongType(t *testing.T) {
	evt := NewTypedEvent(SourceSession, TaskSelectedPayload{Task: "fix"})

	if _, ok := GetAssistantMessagePayload(evt); ok {
		t.Fatal("expected extraction of a mismatched type to fail")
	}
	got, ok := GetTaskSelectedPayload(evt)
	if !ok || got.Task != "fix" {
		t.Fatalf("unexpected payload %+v, %v", got, ok)
	}
}

func TestTypedEvent_ModelCall(t *testing.T) {
	payload := ModelCallPayload{Phase: "response", Model: "codepilot", TokensInput: 12, TokensOutput: 34}
	evt := NewTypedEvent(SourceGateway, payload)

	got, ok := GetModelCallPayload(evt)
	if !ok {
		t.Fatal("GetModelCallPayload returned false")
	}
	if got != payload {
		t.Fatalf("expected %+v, got %+v", payload, got)
	}
}

func TestSessionIDContext(t *testing.T) {
	ctx := ContextWithSessionID(t.Context(), "req-1")
	if got := SessionIDFromContext(ctx); got != "req-1" {
		t.Errorf("SessionIDFromContext = %q", got)
	}
	if got := SessionIDFromContext(t.Context()); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}
