// Package nvidia talks to the NVIDIA API catalog, which serves chat and
// embedding models behind an OpenAI-compatible endpoint.
package nvidia

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultBaseURL is the hosted NVIDIA API catalog endpoint.
const DefaultBaseURL = "https://integrate.api.nvidia.com/v1"

// Client defines the NVIDIA operations used by the assistant.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// CompletionResponse carries the generated text and token usage.
type CompletionResponse struct {
	Text         string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

type openaiClient struct {
	client *openai.Client
}

// NewClient creates a Client for the given API key. An empty baseURL uses
// DefaultBaseURL.
func NewClient(apiKey, baseURL string) Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cfg.BaseURL = baseURL
	return &openaiClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *openaiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var msgs []openai.ChatCompletionMessage
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "nvidia: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("nvidia: chat completion returned no choices")
	}

	out := &CompletionResponse{
		Text:         resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	zap.L().Debug("llm usage",
		zap.String("provider", "nvidia"),
		zap.String("model", req.Model),
		zap.Int("input_tokens", out.InputTokens),
		zap.Int("output_tokens", out.OutputTokens),
	)
	return out, nil
}

func (c *openaiClient) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, eris.Wrap(err, "nvidia: embeddings")
	}
	if len(resp.Data) != len(inputs) {
		return nil, eris.Errorf("nvidia: embeddings returned %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	out := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, eris.Errorf("nvidia: embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// StatusCode extracts the HTTP status of a failed API call, or 0.
func StatusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
