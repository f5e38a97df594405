package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultBaseURL is used when no backend URL is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// maxErrorBody bounds how much of a failed response is kept as diagnostic text.
const maxErrorBody = 64 << 10

// Reader yields the decoded text of a streaming response.
type Reader interface {
	// Next returns the next text increment, io.EOF at end of data, or a
	// *RequestFailedError if the transport fails mid-stream.
	Next() (string, error)
	Close() error
}

// Client talks to the codepilot backend. It performs no retries: a failed
// exchange is reported to the caller immediately.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// No client timeout: a stream lives as long as its context.
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Open posts req to /chat_stream and returns a reader over the response body.
// The caller must Close the reader.
func (c *Client) Open(ctx context.Context, req Request) (Reader, error) {
	resp, err := c.do(ctx, http.MethodPost, "/chat_stream", req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusFailure(resp, readErrorBody(resp.Body))
	}
	if resp.Body == nil || resp.StatusCode == http.StatusNoContent {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &RequestFailedError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("HTTP %d: response has no body", resp.StatusCode),
		}
	}

	slog.Debug("stream opened", "url", c.baseURL+"/chat_stream", "status", resp.StatusCode)
	return newBodyReader(ctx, resp.Body), nil
}

// Chat posts req to /chat and returns the complete reply.
func (c *Client) Chat(ctx context.Context, req Request) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, "/chat", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusFailure(resp, readErrorBody(resp.Body))
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RequestFailedError{Status: resp.StatusCode, Message: "decode chat response: " + err.Error(), Cause: err}
	}
	return out.Content, nil
}

// Health queries GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusFailure(resp, readErrorBody(resp.Body))
	}

	var out HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &RequestFailedError{Status: resp.StatusCode, Message: "decode health response: " + err.Error(), Cause: err}
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &RequestFailedError{Message: "marshal request: " + err.Error(), Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &RequestFailedError{Message: "create request: " + err.Error(), Cause: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportFailure(ctx, err)
	}
	return resp, nil
}

func readErrorBody(r io.Reader) string {
	if r == nil {
		return ""
	}
	// A partial read still carries useful text.
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(data)
}
