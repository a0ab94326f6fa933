package completion

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// Model is the chat-completion backend. *openai.LLM from langchaingo
// satisfies it directly; other providers are adapted to it.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)

// GenerateContent calls f.
func (f ModelFunc) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return f(ctx, messages, options...)
}

// textOf concatenates the text parts of a message.
func textOf(m llms.MessageContent) string {
	var out string
	for _, part := range m.Parts {
		if t, ok := part.(llms.TextContent); ok {
			out += t.Text
		}
	}
	return out
}
