// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API. It adapts the normalized Request/Response structures
// into the SDK's message format and back, asking for JSON object output when
// the caller requests a structured response.
package openai

import (
	"context"
	"fmt"

	"github.com/careerpilot/agentcore/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// Options configure the OpenAI model adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal; extend via
// functional options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Model wraps the OpenAI Chat Completions API behind the generic
// model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client
func NewModel(optFns ...func(o *Options)) *Model {
	client := openai.NewClient()
	return NewModelFromClient(&client, optFns...)
}

// NewModelFromClient creates a new OpenAI model from an existing client
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements model.Model using a non-streaming chat completion.
func (m *Model) Complete(ctx context.Context, req model.Request) (model.Response, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               m.opts.Model,
		Temperature:         openai.Float(m.opts.Temperature),
		MaxCompletionTokens: openai.Int(m.opts.MaxCompletionTokens),
	}
	if req.ResponseFormat == model.FormatStructured {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return model.Response{}, fmt.Errorf("openai api returned no choices")
	}

	return model.Response{
		Content: resp.Choices[0].Message.Content,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Info returns information about the model implementation.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "openai"}
}
