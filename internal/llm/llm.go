// Package llm adapts generative model providers to a single Generate call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrEmptyCompletion is returned when the provider answers without text
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Prompt is one generation request
type Prompt struct {
	System      string
	User        string
	Temperature float64
	// Model overrides the generator's default model when set
	Model string
}

// Generator produces reply text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// OpenAIGenerator calls the chat completions API
type OpenAIGenerator struct {
	client       openai.Client
	defaultModel string
}

// NewOpenAIGenerator builds a generator for any OpenAI-compatible endpoint.
// The client never retries on its own; opts may override that.
func NewOpenAIGenerator(apiKey, baseURL, defaultModel string, opts ...option.RequestOption) *OpenAIGenerator {
	// Retries belong to the caller's step budget, not the client.
	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIGenerator{
		client:       openai.NewClient(clientOpts...),
		defaultModel: defaultModel,
	}
}

// Generate sends a system and user message and returns the first choice
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	model := prompt.Model
	if model == "" {
		model = g.defaultModel
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(prompt.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// StaticGenerator answers every prompt with the same text.
// It stands in for a provider in development.
type StaticGenerator struct {
	Reply string
}

// Generate returns the configured reply
func (g StaticGenerator) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Reply == "" {
		return "", ErrEmptyCompletion
	}
	return g.Reply, nil
}
