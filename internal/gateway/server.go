// Package gateway serves the HTTP backend the chat client talks to. It turns
// each request into a model conversation and relays the reply, streamed or
// whole.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dohr-michael/codepilot/internal/callbacks"
	"github.com/dohr-michael/codepilot/internal/events"
	"github.com/dohr-michael/codepilot/internal/stream"
)

// Options configures a Server.
type Options struct {
	Host  string
	Port  int
	Model model.BaseChatModel
	// ModelName and ModelURL are reported by /health.
	ModelName    string
	ModelURL     string
	SystemPrompt string
	// Bus records relayed exchanges and model calls. Optional.
	Bus *events.Bus
}

// Server is the Codepilot gateway HTTP server.
type Server struct {
	httpServer   *http.Server
	model        model.BaseChatModel
	bus          *events.Bus
	callbacks    einocb.Handler
	modelName    string
	modelURL     string
	systemPrompt atomic.Pointer[string]
}

// NewServer creates a new gateway server.
func NewServer(opts Options) *Server {
	s := &Server{
		model:     opts.Model,
		bus:       opts.Bus,
		modelName: opts.ModelName,
		modelURL:  opts.ModelURL,
	}
	s.SetSystemPrompt(opts.SystemPrompt)
	if opts.Bus != nil {
		s.callbacks = callbacks.NewEventBusHandler(opts.Bus, events.SourceGateway)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Post("/chat", s.handleChat)
	r.Post("/chat_stream", s.handleChatStream)
	r.Get("/api/events", s.handleEvents)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// SetSystemPrompt replaces the system message used for new requests.
// An empty prompt restores the default.
func (s *Server) SetSystemPrompt(prompt string) {
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	s.systemPrompt.Store(&prompt)
}

// SystemPrompt returns the system message used for new requests.
func (s *Server) SystemPrompt() string {
	return *s.systemPrompt.Load()
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("codepilot gateway listening", "addr", ln.Addr().String(), "model", s.modelName)
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stream.HealthResponse{
		OK:     true,
		Model:  s.modelName,
		Ollama: s.modelURL,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		writeJSON(w, http.StatusOK, []events.Event{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	type eventJSON struct {
		ID        string             `json:"id"`
		SessionID string             `json:"session_id,omitempty"`
		Type      string             `json:"type"`
		Timestamp string             `json:"timestamp"`
		Source    events.EventSource `json:"source"`
		Payload   map[string]any     `json:"payload"`
	}

	history := s.bus.History(limit)
	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			SessionID: e.SessionID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			Source:    e.Source,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// cors allows any origin, method and header.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
