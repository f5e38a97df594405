package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/codepilot/internal/callbacks"
	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/models"
	"github.com/dohr-michael/codepilot/internal/stream"
)

const maxRequestBody = 4 << 20

func decodeRequest(w http.ResponseWriter, r *http.Request) (stream.Request, bool) {
	var req stream.Request
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body: %v", err)
		return req, false
	}
	return req, true
}

// handleChat answers with the whole model reply as {content}.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetReqID(r.Context())
	logger := slog.With("request_id", reqID, "task", req.Task)
	s.record(reqID, events.UserMessagePayload{MessageID: reqID, Content: req.Prompt})

	start := time.Now()
	msg, err := s.model.Generate(s.modelContext(r, reqID), BuildMessages(s.SystemPrompt(), req))
	if err != nil {
		err = models.HandleError(err)
		logger.Error("chat generate failed", "error", err)
		s.record(reqID, events.AssistantMessagePayload{MessageID: reqID, Error: err.Error()})
		writeDetail(w, http.StatusBadGateway, "%s", err.Error())
		return
	}

	logger.Info("chat completed", "duration", time.Since(start), "bytes", len(msg.Content))
	s.record(reqID, events.AssistantMessagePayload{MessageID: reqID, Content: msg.Content})
	writeJSON(w, http.StatusOK, stream.ChatResponse{Content: msg.Content})
}

// handleChatStream relays model chunks as a text/plain body, flushing each
// one. Once the status line is sent, failures are reported inline.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetReqID(r.Context())
	logger := slog.With("request_id", reqID, "task", req.Task)
	s.record(reqID, events.UserMessagePayload{MessageID: reqID, Content: req.Prompt})

	start := time.Now()
	sr, err := s.model.Stream(s.modelContext(r, reqID), BuildMessages(s.SystemPrompt(), req))
	if err != nil {
		err = models.HandleError(err)
		logger.Error("chat stream open failed", "error", err)
		s.record(reqID, events.AssistantMessagePayload{MessageID: reqID, Error: err.Error()})
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer sr.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	var content strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			err = models.HandleError(err)
			logger.Warn("chat stream failed", "error", err, "bytes", content.Len())
			fmt.Fprintf(w, "\n\n[Error] %s", err)
			flush()
			s.record(reqID, events.AssistantMessagePayload{MessageID: reqID, Content: content.String(), Error: err.Error()})
			return
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		if _, err := io.WriteString(w, chunk.Content); err != nil {
			logger.Debug("client went away", "error", err)
			return
		}
		content.WriteString(chunk.Content)
		flush()
	}

	logger.Info("chat stream completed", "duration", time.Since(start), "bytes", content.Len())
	s.record(reqID, events.AssistantMessagePayload{MessageID: reqID, Content: content.String()})
}

// modelContext tags model callbacks with the request id.
func (s *Server) modelContext(r *http.Request, reqID string) context.Context {
	ctx := r.Context()
	if s.callbacks == nil {
		return ctx
	}
	ctx = events.ContextWithSessionID(ctx, reqID)
	return callbacks.WithModelCallbacks(ctx, s.modelName, s.callbacks)
}

func (s *Server) record(reqID string, payload events.EventPayload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.NewTypedEventWithSession(events.SourceGateway, payload, reqID))
}
