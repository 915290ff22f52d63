package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAPI is the subset of the go-openai client the backend uses.
// Narrowed for testability.
type OpenAIAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAI satisfies Completer and Embedder against any OpenAI-compatible
// chat-completions endpoint.
type OpenAI struct {
	client         OpenAIAPI
	model          string
	embeddingModel openai.EmbeddingModel
	temperature    float32
}

// OpenAIOption configures an OpenAI backend.
type OpenAIOption func(*OpenAI)

// WithEmbeddingModel overrides the embedding model.
func WithEmbeddingModel(model string) OpenAIOption {
	return func(o *OpenAI) { o.embeddingModel = openai.EmbeddingModel(model) }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float32) OpenAIOption {
	return func(o *OpenAI) { o.temperature = t }
}

// NewOpenAI creates an OpenAI backend. baseURL may be empty for the default
// endpoint, or point at any compatible server (OpenRouter, vLLM, Ollama).
func NewOpenAI(apiKey, baseURL, model string, opts ...OpenAIOption) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewOpenAIWithClient(openai.NewClientWithConfig(cfg), model, opts...)
}

// NewOpenAIWithClient creates an OpenAI backend with an injected client.
func NewOpenAIWithClient(client OpenAIAPI, model string, opts ...OpenAIOption) *OpenAI {
	o := &OpenAI{
		client:         client,
		model:          model,
		embeddingModel: openai.SmallEmbedding3,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete implements Completer.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
