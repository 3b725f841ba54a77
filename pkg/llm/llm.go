// Package llm defines the language model client interface used by stage
// executions, plus provider implementations for OpenAI, Anthropic, and
// Ollama backends.
package llm

import (
	"context"
)

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the AI assistant.
	RoleAssistant CompletionRole = "assistant"
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Role    CompletionRole
	Content string
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	Temperature float32
	MaxTokens   int
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content string
}

// StreamChunk represents a chunk of streamed completion response.
// Exactly one of Content, Done, or Error is meaningful per chunk; the
// channel is closed after the terminal chunk.
type StreamChunk struct {
	Error   error
	Content string
	Done    bool
}

// Client defines the interface for language model interactions.
type Client interface {
	// Complete generates a completion synchronously.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// Stream generates a completion as a stream of chunks.
	Stream(ctx context.Context, in CompletionRequest) (<-chan StreamChunk, error)

	// ModelName returns the model identifier this client speaks to.
	ModelName() string
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) CompletionMessage {
	return CompletionMessage{Role: RoleUser, Content: content}
}

// splitSystem separates system messages from the conversational messages,
// for providers that take the system prompt as a top-level parameter.
func splitSystem(messages []CompletionMessage) (system string, rest []CompletionMessage) {
	var systemParts []string
	for i := range messages {
		msg := &messages[i]
		if msg.Role == RoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, *msg)
		}
	}
	for i, part := range systemParts {
		if i > 0 {
			system += "\n\n"
		}
		system += part
	}
	return system, rest
}
