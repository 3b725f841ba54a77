package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaClient wraps the Ollama API client to implement Client.
// Ollama is a local LLM runtime for running open-source models.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a new Ollama client. hostURL should be the Ollama
// server URL (e.g., "http://localhost:11434"); invalid URLs fall back to the
// local default.
func NewOllamaClient(hostURL, model string) *OllamaClient {
	parsedURL, err := url.Parse(hostURL)
	if err != nil || parsedURL.Scheme == "" {
		parsedURL, _ = url.Parse("http://localhost:11434")
	}
	return &OllamaClient{
		client: api.NewClient(parsedURL, http.DefaultClient),
		model:  model,
	}
}

func (o *OllamaClient) ModelName() string {
	return o.model
}

func (o *OllamaClient) chatRequest(in CompletionRequest, stream bool) *api.ChatRequest {
	messages := make([]api.Message, 0, len(in.Messages))
	for i := range in.Messages {
		msg := &in.Messages[i]
		messages = append(messages, api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	options := map[string]any{}
	if in.Temperature > 0 {
		options["temperature"] = float64(in.Temperature)
	}
	if in.MaxTokens > 0 {
		options["num_predict"] = in.MaxTokens
	}

	return &api.ChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
}

// Complete implements the Client interface.
func (o *OllamaClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	var sb strings.Builder
	err := o.client.Chat(ctx, o.chatRequest(in, false), func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("ollama chat failed: %w", err)
	}
	return CompletionResponse{Content: sb.String()}, nil
}

// Stream implements the Client interface. The Ollama API delivers chunks via
// callback; this adapts them onto the chunk channel.
func (o *OllamaClient) Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		err := o.client.Chat(ctx, o.chatRequest(in, true), func(resp api.ChatResponse) error {
			if resp.Message.Content == "" {
				return nil
			}
			select {
			case ch <- StreamChunk{Content: resp.Message.Content}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})

		if err != nil {
			select {
			case ch <- StreamChunk{Error: fmt.Errorf("ollama stream failed: %w", err)}:
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
