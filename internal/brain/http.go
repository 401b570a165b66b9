package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/parleyhq/parley/internal/reliability"
)

// HTTPClient forwards completions to an OpenAI-compatible chat endpoint.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type wireResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Text   string `json:"text"`
	Output string `json:"output"`
}

func (c *HTTPClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	body := wireRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    make([]wireMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: wireRole(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return CompletionResponse{}, fmt.Errorf("brain http status %d (retryable): %s", res.StatusCode, string(excerpt))
		}
		return CompletionResponse{}, fmt.Errorf("brain http status %d: %s", res.StatusCode, string(excerpt))
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	var obj wireResponse
	if err := json.Unmarshal(raw, &obj); err != nil {
		return CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if len(obj.Choices) > 0 {
		return CompletionResponse{Text: obj.Choices[0].Message.Content}, nil
	}
	if obj.Text != "" {
		return CompletionResponse{Text: obj.Text}, nil
	}
	return CompletionResponse{Text: obj.Output}, nil
}

// wireRole maps the transcript's role names onto the OpenAI-style wire names.
// Only the instruction preamble differs.
func wireRole(role string) string {
	if role == "instruction" {
		return "system"
	}
	return role
}
