// Package stream is the HTTP client for the codepilot backend. It opens one
// streaming exchange per turn and surfaces the body as decoded text increments.
package stream

import (
	"github.com/dohr-michael/codepilot/internal/taskmode"
	"github.com/dohr-michael/codepilot/internal/transcript"
)

// Request is the payload posted to /chat_stream and /chat.
// Code and Filename are reserved and normally nil.
type Request struct {
	Prompt   string            `json:"prompt"`
	Code     *string           `json:"code"`
	Filename *string           `json:"filename"`
	Task     taskmode.Mode     `json:"task"`
	History  []transcript.Turn `json:"history"`
}

// ChatResponse is the body of a non-streaming /chat reply.
type ChatResponse struct {
	Content string `json:"content"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK     bool   `json:"ok"`
	Model  string `json:"model"`
	Ollama string `json:"ollama"`
}
