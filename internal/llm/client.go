// Package llm wraps the OpenAI-compatible chat-completions API behind the
// coach package's ModelStreamer interface.
package llm

import (
	"context"
	"io"

	"fitflow/coach-app/internal/coach"
	"fitflow/coach-app/internal/config"
	"fitflow/coach-app/internal/domain"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/ssestream"
)

// Client calls the configured chat-completions endpoint. Any provider
// exposing the OpenAI streaming delta shape works here.
type Client struct {
	api   openai.Client
	model string
	tools []openai.ChatCompletionToolUnionParam
}

// NewClient builds a streaming chat client from configuration.
func NewClient(cfg config.OpenAIConfig) (*Client, error) {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	tools, err := toolDefinitions()
	if err != nil {
		return nil, err
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
		tools: tools,
	}, nil
}

// StreamChat opens a streaming completion: compiled context as the system
// message, the conversation history after it.
func (c *Client) StreamChat(ctx context.Context, systemPrompt string, history []domain.ChatMessage) (coach.ChunkStream, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
	}
	for _, msg := range history {
		// Errored turns and empty tool-call-only messages carry nothing
		// the model needs.
		if msg.Status == domain.MessageError || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case domain.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case domain.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case domain.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		}
	}

	stream := c.api.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		Tools:    c.tools,
	})
	return &chunkAdapter{inner: stream}, nil
}

// chunkAdapter converts the provider's SSE stream into the accumulator's
// transport-neutral chunks.
type chunkAdapter struct {
	inner *ssestream.Stream[openai.ChatCompletionChunk]
}

func (a *chunkAdapter) Recv() (coach.Chunk, error) {
	for a.inner.Next() {
		chunk := a.inner.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta

		out := coach.Chunk{Content: delta.Content}
		for _, tc := range delta.ToolCalls {
			out.ToolCalls = append(out.ToolCalls, coach.ToolCallDelta{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return out, nil
	}

	if err := a.inner.Err(); err != nil {
		return coach.Chunk{}, err
	}
	return coach.Chunk{}, io.EOF
}
