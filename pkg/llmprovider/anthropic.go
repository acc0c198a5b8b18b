package llmprovider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vkhangpham/taxonomy-generation/pkg/pipelineerr"
)

// AnthropicProvider implements Provider against the Claude Messages
// API. It is a non-streaming, single-shot binding: the pipeline's
// contract is synchronous call(prompt_key, variables) -> response, so
// there is no chunk channel to manage.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider builds a provider bound to model (e.g.
// "claude-3-5-haiku-latest"), authenticating via the standard
// ANTHROPIC_API_KEY environment variable unless apiKey is non-empty.
func NewAnthropicProvider(model, apiKey string) *AnthropicProvider {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Call issues one Messages.New request and returns its text content.
// req.Temperature, req.TokenBudget, and req.Timeout are honored
// directly; req.JSONMode is enforced by instructing the model via the
// rendered prompt (the prompt registry templates include the
// structural instruction) rather than a separate API flag, since the
// Messages API has no dedicated JSON mode toggle.
func (p *AnthropicProvider) Call(ctx context.Context, req Request) (Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(req.TokenBudget),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Rendered)),
		},
	})
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", pipelineerr.ErrProviderError, err)
	}

	var content string
	for _, block := range message.Content {
		if text := block.Text; text != "" {
			content += text
		}
	}

	return Response{
		Content: content,
		Usage: Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		},
		Performance: map[string]float64{},
	}, nil
}
