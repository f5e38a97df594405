// Package models builds the chat model the gateway relays prompts to.
package models

import (
	"context"
	"io"
	"net/http"
	"strings"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"

	"github.com/dohr-michael/codepilot/internal/config"
)

const providerOllama = "ollama"

// NewOllama creates an Ollama ChatModel from the gateway model config.
func NewOllama(ctx context.Context, cfg config.ModelConfig) (model.ToolCallingChatModel, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultOllamaURL
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultModelTimeout
	}

	modelConfig := &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeout,
		Options: buildOptions(cfg.Options),
		// Detect proxies that answer with plain text instead of Ollama JSON.
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: &ollamaTransport{inner: http.DefaultTransport, provider: providerOllama},
		},
	}

	m, err := einoollama.NewChatModel(ctx, modelConfig)
	if err != nil {
		return nil, HandleError(err)
	}
	return m, nil
}

// buildOptions maps the free-form options object of the config onto Ollama
// runtime options. JSON numbers decode as float64.
func buildOptions(raw map[string]any) *einoollama.Options {
	opts := &einoollama.Options{}
	if temp, ok := raw["temperature"].(float64); ok {
		opts.Temperature = float32(temp)
	}
	if numCtx, ok := raw["num_ctx"].(float64); ok {
		opts.NumCtx = int(numCtx)
	}
	if numPredict, ok := raw["num_predict"].(float64); ok {
		opts.NumPredict = int(numPredict)
	}
	if topP, ok := raw["top_p"].(float64); ok {
		opts.TopP = float32(topP)
	}
	if topK, ok := raw["top_k"].(float64); ok {
		opts.TopK = int(topK)
	}
	return opts
}

// ollamaTransport wraps an http.RoundTripper to turn transport failures,
// error statuses and non-JSON bodies into ErrModelUnavailable.
type ollamaTransport struct {
	inner    http.RoundTripper
	provider string
}

func (t *ollamaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, &ErrModelUnavailable{Provider: t.provider, Cause: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &ErrModelUnavailable{
			Provider: t.provider,
			Status:   resp.StatusCode,
			Body:     drain(resp),
		}
	}

	// Ollama sends application/x-ndjson for streaming, application/json otherwise.
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "json") {
		return nil, &ErrModelUnavailable{
			Provider: t.provider,
			Status:   resp.StatusCode,
			Body:     drain(resp),
		}
	}

	return resp, nil
}

func drain(resp *http.Response) string {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(string(body))
}
