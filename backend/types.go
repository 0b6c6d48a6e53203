// Package backend invokes a single LLM endpoint, either a subprocess CLI
// or an OpenAI-compatible HTTP service (spec component F).
package backend

import "time"

// Request is the shared input to any backend variant.
type Request struct {
	Prompt       string
	SystemPrompt string
	ContextFiles []string
	WorkingDir   string
	Timeout      time.Duration
	// CorrelationID ties every backend call a role executor fans out for
	// one logical invocation back together in logs, independent of which
	// backend(s) actually served it. Callers that invoke Executor
	// directly (outside package role) may leave it empty.
	CorrelationID string
}

// TokenUsage mirrors the usage block of an OpenAI-compatible response.
// Subprocess backends that don't report usage leave this zero-valued.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the shared output of any backend variant.
type Response struct {
	Text       string
	Structured map[string]interface{}
	Backend    string
	Model      string
	Usage      TokenUsage
	Duration   time.Duration
}

// Executor is the capability set every backend variant implements —
// no inheritance hierarchy, just a shared interface that Retry (package
// resilience) and the role executor wrap uniformly.
type Executor interface {
	Execute(req Request) (*Response, error)
	Name() string
	IsAvailable() bool
}
