package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient wraps the official OpenAI Go client to implement Client.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI chat-completions client. baseURL may
// be empty to use the public API endpoint.
func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (o *OpenAIClient) ModelName() string {
	return o.model
}

func convertMessagesToOpenAI(messages []CompletionMessage) []openai.ChatCompletionMessageParamUnion {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(msg.Content))
		default:
			converted = append(converted, openai.UserMessage(msg.Content))
		}
	}
	return converted
}

func (o *OpenAIClient) params(in CompletionRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: convertMessagesToOpenAI(in.Messages),
	}
	if in.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(in.MaxTokens))
	}
	if in.Temperature > 0 {
		params.Temperature = openai.Float(float64(in.Temperature))
	}
	return params
}

// Complete implements the Client interface.
func (o *OpenAIClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	resp, err := o.client.Chat.Completions.New(ctx, o.params(in))
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("empty response from OpenAI")
	}
	return CompletionResponse{Content: resp.Choices[0].Message.Content}, nil
}

// Stream implements the Client interface using the chat completions
// streaming endpoint. The returned channel closes after a Done or Error
// chunk.
func (o *OpenAIClient) Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error) {
	stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(in))

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case ch <- StreamChunk{Content: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}

		if err := stream.Err(); err != nil {
			select {
			case ch <- StreamChunk{Error: fmt.Errorf("openai stream failed: %w", err)}:
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
