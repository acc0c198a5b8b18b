// Package llmprovider specifies the LLM transport boundary: a narrow
// call(prompt_key, variables) -> response contract implemented by a
// concrete Anthropic-backed provider, plus a Runner that layers the
// pipeline's determinism, retry, JSON-schema validation, and
// repair/quarantine policy on top of any Provider.
package llmprovider

import (
	"context"
	"time"
)

// Usage reports token accounting for one call, surfaced into manifest
// cost tracking.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Request is the rendered prompt plus the metadata a Provider needs to
// execute it deterministically.
type Request struct {
	PromptKey   string
	Rendered    string
	Temperature float64
	JSONMode    bool
	TokenBudget int
	Timeout     time.Duration
	Seed        int64
}

// Response is the raw provider reply: JSON or free text content plus
// accounting.
type Response struct {
	Content     string
	Usage       Usage
	Performance map[string]float64
}

// Provider is the collaborator boundary: everything above this
// interface is core pipeline logic, everything below it is the
// pluggable LLM transport.
type Provider interface {
	Call(ctx context.Context, req Request) (Response, error)
}
