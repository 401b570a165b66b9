package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Message is one entry of the conversation forwarded to the backend, oldest
// first. Role carries the transcript role names; each adapter translates them
// to its own wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the normalized request sent to the inference backend.
// Model, MaxTokens and Temperature are fixed service configuration, not
// per-request parameters.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the backend's reply. Text may be empty; callers
// decide how to handle an empty reply.
type CompletionResponse struct {
	Text string
}

// Client produces a completion for an ordered message list.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Config controls client construction.
type Config struct {
	Mode    string
	HTTPURL string
	Timeout time.Duration
}

func New(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPClient(cfg.HTTPURL, cfg.Timeout), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("brain HTTP url is required for http mode")
		}
		return NewHTTPClient(cfg.HTTPURL, cfg.Timeout), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported brain mode %q", cfg.Mode)
	}
}
