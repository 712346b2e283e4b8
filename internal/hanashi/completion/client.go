// Package completion calls an OpenAI-compatible chat completions API.
//
// A call is a single attempt: there are no retries. Every failure is returned
// as an *Error with a Kind so callers can pick a specific user-facing message
// (primary reply) or silently skip (impression refresh).
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultTimeout  = 60 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Roles used in Message.Role.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged prompt field.
type Message struct {
	Role    string
	Content string
}

// Request is the input to a single completion call.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
	// Temperature is omitted from the wire request when nil.
	Temperature *float64
	// Timeout bounds the whole call including reading the body. Defaults to
	// 60 s.
	Timeout time.Duration
}

// Completer is implemented by Client and by test doubles.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config configures the client.
type Config struct {
	// Endpoint is the full chat completions URL.
	Endpoint string
	APIKey   string
	// HTTPClient overrides the shared HTTP client. Its Timeout should be zero;
	// per-call bounds come from Request.Timeout.
	HTTPClient *http.Client
}

// Client is safe for concurrent use. It keeps one pooled HTTP client; each
// call borrows a connection for its own duration only.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{cfg: cfg, http: hc}
}

var _ Completer = (*Client)(nil)

// --- minimal OpenAI wire types ---

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
	Temperature *float64     `json:"temperature,omitempty"`
}

type oaiResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends req and returns the trimmed content of the first choice.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := oaiRequest{
		Model:       req.Model,
		Messages:    make([]oaiMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, oaiMessage{Role: m.Role, Content: m.Content})
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", &Error{Kind: KindNetwork, Err: fmt.Errorf("create http request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", transportError(ctx, err)
	}
	defer func() {
		// Drain so the connection goes back to the pool.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", transportError(ctx, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{
			Kind:   KindServer,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected status: %.200s", strings.TrimSpace(string(respBody))),
		}
	}

	var oaiResp oaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return "", &Error{Kind: KindMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(oaiResp.Choices) == 0 {
		return "", &Error{Kind: KindMalformed, Err: errors.New("no choices returned")}
	}
	content := oaiResp.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", &Error{Kind: KindMalformed, Err: errors.New("first choice has no content")}
	}
	return strings.TrimSpace(*content), nil
}

// transportError classifies a failure that happened before a complete
// response was read.
func transportError(ctx context.Context, err error) *Error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return &Error{Kind: KindNetwork, Err: err}
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}
