package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client wraps the queue for easy integration
type Client struct {
	manager  *Manager
	priority Priority
	timeout  time.Duration
}

// NewClient creates a new queue client
func NewClient(manager *Manager, priority Priority, timeout time.Duration) *Client {
	return &Client{
		manager:  manager,
		priority: priority,
		timeout:  timeout,
	}
}

// Call submits a request and blocks until the response, an error, or
// context cancellation.
func (c *Client) Call(ctx context.Context, url string, payload map[string]interface{}) ([]byte, error) {
	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)

	req := &Request{
		ID:         uuid.NewString(),
		Priority:   c.priority,
		Context:    ctx,
		URL:        url,
		Payload:    payload,
		ResponseCh: respCh,
		ErrorCh:    errCh,
		SubmitTime: time.Now(),
		Timeout:    c.timeout,
	}

	if err := c.manager.Submit(req); err != nil {
		return nil, fmt.Errorf("failed to submit: %w", err)
	}

	select {
	case resp := <-respCh:
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("LLM returned status %d", resp.StatusCode)
		}
		return resp.Body, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Generate runs a non-streaming Ollama /api/generate call and returns the
// model's reply text.
func (c *Client) Generate(ctx context.Context, generateURL, model, prompt string) (string, error) {
	body, err := c.Call(ctx, generateURL, map[string]interface{}{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", err
	}

	var resp GenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode generate response: %w", err)
	}
	return resp.Response, nil
}
