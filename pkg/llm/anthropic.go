package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient wraps the Anthropic API client to implement Client.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicClient creates a new Claude messages client.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}
}

func (c *AnthropicClient) ModelName() string {
	return string(c.model)
}

// params builds a MessageNewParams, extracting system messages to the
// top-level system parameter as the Anthropic API requires.
func (c *AnthropicClient) params(in CompletionRequest) (anthropic.MessageNewParams, error) {
	system, rest := splitSystem(in.Messages)
	if len(rest) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("must have at least one non-system message")
	}

	converted := make([]anthropic.MessageParam, 0, len(rest))
	for i := range rest {
		msg := &rest[i]
		if msg.Role == RoleAssistant {
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		} else {
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages:  converted,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if in.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(in.Temperature))
	}
	return params, nil
}

// Complete implements the Client interface.
func (c *AnthropicClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	params, err := c.params(in)
	if err != nil {
		return CompletionResponse{}, err
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("anthropic message failed: %w", err)
	}

	var content string
	for i := range msg.Content {
		block := &msg.Content[i]
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return CompletionResponse{}, fmt.Errorf("no text content in Anthropic response")
	}
	return CompletionResponse{Content: content}, nil
}

// Stream implements the Client interface using the messages streaming
// endpoint, forwarding text deltas as they arrive.
func (c *AnthropicClient) Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error) {
	params, err := c.params(in)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok || delta.Delta.Text == "" {
				continue
			}
			select {
			case ch <- StreamChunk{Content: delta.Delta.Text}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case ch <- StreamChunk{Error: fmt.Errorf("anthropic stream failed: %w", err)}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case ch <- StreamChunk{Done: true}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}
