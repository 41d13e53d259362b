package llm

import (
	"context"
	"time"
)

// Priority levels (just 2)
type Priority int

const (
	PriorityCritical   Priority = 0 // In-turn tutoring calls
	PriorityBackground Priority = 1 // Everything else
)

// Request encapsulates one LLM call
type Request struct {
	ID       string
	Priority Priority
	Context  context.Context

	URL     string
	Payload map[string]interface{}

	// Response handling
	ResponseCh chan<- *Response
	ErrorCh    chan<- error

	SubmitTime time.Time
	Timeout    time.Duration
}

// Response encapsulates LLM output
type Response struct {
	StatusCode int
	Body       []byte
}

// Metrics tracks queue performance
type Metrics struct {
	CriticalEnqueued    int64
	CriticalProcessed   int64
	CriticalDropped     int64
	BackgroundEnqueued  int64
	BackgroundProcessed int64
	BackgroundDropped   int64
	CurrentQueueDepth   map[Priority]int
}

// GenerateRequest is the Ollama /api/generate request body.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateResponse is the subset of the Ollama /api/generate reply we use.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
