package brain

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no backend is configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	select {
	case <-ctx.Done():
		return CompletionResponse{}, ctx.Err()
	default:
	}

	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = strings.TrimSpace(req.Messages[i].Content)
			break
		}
	}
	if last == "" {
		return CompletionResponse{Text: "I am listening."}, nil
	}
	return CompletionResponse{Text: fmt.Sprintf("I heard you: %s", last)}, nil
}
