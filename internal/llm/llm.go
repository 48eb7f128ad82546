// Package llm exposes the single text-generation capability the assistant
// needs, independent of the model provider behind it.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/resilience"
	"github.com/sells-group/homework-assistant/pkg/anthropic"
	"github.com/sells-group/homework-assistant/pkg/nvidia"
)

// Client generates a free-form completion for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Client.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options are the model parameters shared by all providers.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
}

type nvidiaClient struct {
	api  nvidia.Client
	opts Options
}

// NewNVIDIA returns a Client backed by an NVIDIA-hosted chat model.
func NewNVIDIA(api nvidia.Client, opts Options) Client {
	return &nvidiaClient{api: api, opts: opts}
}

func (c *nvidiaClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Complete(ctx, nvidia.CompletionRequest{
		Model:       c.opts.Model,
		System:      c.opts.System,
		Prompt:      prompt,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: float32(c.opts.Temperature),
	})
	if err != nil {
		return "", classify(err, nvidia.StatusCode(err))
	}
	return resp.Text, nil
}

type anthropicClient struct {
	api  anthropic.Client
	opts Options
}

// NewAnthropic returns a Client backed by a Claude model.
func NewAnthropic(api anthropic.Client, opts Options) Client {
	return &anthropicClient{api: api, opts: opts}
}

func (c *anthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	temp := c.opts.Temperature
	resp, err := c.api.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.opts.Model,
		MaxTokens:   int64(c.opts.MaxTokens),
		System:      c.opts.System,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", classify(err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(c.opts.Model, "generate")
	return resp.Text(), nil
}

// classify marks retryable provider failures so the guard retries them.
func classify(err error, status int) error {
	if resilience.IsTransientHTTPStatus(status) || resilience.IsTransient(err) {
		return resilience.NewTransientError(err, status)
	}
	return eris.Wrap(err, "llm: provider call")
}
