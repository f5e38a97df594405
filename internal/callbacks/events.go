// Package callbacks bridges eino model callbacks to the event bus.
package callbacks

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	ub "github.com/cloudwego/eino/utils/callbacks"

	"github.com/dohr-michael/codepilot/internal/events"
)

const maxErrorLen = 1000

// NewEventBusHandler creates a callback handler that publishes a model.call
// event for each request, response and error of a chat model.
func NewEventBusHandler(bus *events.Bus, source events.EventSource) callbacks.Handler {
	if source == "" {
		source = events.SourceGateway
	}

	publish := func(ctx context.Context, payload events.ModelCallPayload) {
		if sid := events.SessionIDFromContext(ctx); sid != "" {
			bus.Publish(events.NewTypedEventWithSession(source, payload, sid))
		} else {
			bus.Publish(events.NewTypedEvent(source, payload))
		}
	}

	modelHandler := &ub.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *callbacks.RunInfo, input *model.CallbackInput) context.Context {
			publish(ctx, events.ModelCallPayload{
				Phase:        "request",
				Model:        info.Name,
				MessageCount: len(input.Messages),
			})
			return ctx
		},

		OnEnd: func(ctx context.Context, info *callbacks.RunInfo, output *model.CallbackOutput) context.Context {
			payload := events.ModelCallPayload{Phase: "response", Model: info.Name}
			addUsage(&payload, output)
			publish(ctx, payload)
			return ctx
		},

		// Streamed replies report usage on the final chunk; the copy handed to
		// us must be drained and closed.
		OnEndWithStreamOutput: func(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()
				payload := events.ModelCallPayload{Phase: "response", Model: info.Name}
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						slog.Debug("model callback stream", "error", err)
						break
					}
					addUsage(&payload, chunk)
				}
				publish(ctx, payload)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			publish(ctx, events.ModelCallPayload{
				Phase: "error",
				Model: info.Name,
				Error: truncate(err.Error(), maxErrorLen),
			})
			return ctx
		},
	}

	return ub.NewHandlerHelper().
		ChatModel(modelHandler).
		Handler()
}

// WithModelCallbacks prepares ctx so a direct chat model call reports to handler.
func WithModelCallbacks(ctx context.Context, modelName string, handler callbacks.Handler) context.Context {
	return callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      modelName,
		Type:      "Ollama",
		Component: components.ComponentOfChatModel,
	}, handler)
}

func addUsage(p *events.ModelCallPayload, output *model.CallbackOutput) {
	if output == nil {
		return
	}
	if u := output.TokenUsage; u != nil {
		p.TokensInput = max(p.TokensInput, u.PromptTokens)
		p.TokensOutput = max(p.TokensOutput, u.CompletionTokens)
		return
	}
	if m := output.Message; m != nil && m.ResponseMeta != nil && m.ResponseMeta.Usage != nil {
		p.TokensInput = max(p.TokensInput, m.ResponseMeta.Usage.PromptTokens)
		p.TokensOutput = max(p.TokensOutput, m.ResponseMeta.Usage.CompletionTokens)
	}
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
