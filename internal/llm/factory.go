package llm

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/config"
	"github.com/sells-group/homework-assistant/internal/resilience"
	"github.com/sells-group/homework-assistant/pkg/anthropic"
	"github.com/sells-group/homework-assistant/pkg/nvidia"
)

// New builds the guarded chat client selected by cfg.LLM.Provider.
func New(cfg *config.Config) (Client, error) {
	opts := Options{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}

	var base Client
	switch cfg.LLM.Provider {
	case "nvidia", "":
		if cfg.NVIDIA.Key == "" {
			return nil, eris.New("llm: nvidia provider requires nvidia.api_key")
		}
		base = NewNVIDIA(nvidia.NewClient(cfg.NVIDIA.Key, cfg.NVIDIA.BaseURL), opts)
	case "anthropic":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic provider requires anthropic.api_key")
		}
		if cfg.LLM.Model == "" || cfg.LLM.Model == defaultNVIDIAModel {
			opts.Model = cfg.Anthropic.Model
		}
		base = NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), opts)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}

	return NewGuard(base, GuardConfig{
		Provider:      providerName(cfg.LLM.Provider),
		RatePerSecond: cfg.LLM.RatePerSecond,
		Burst:         cfg.LLM.Burst,
		Retry:         resilience.FromConfig(cfg.LLM.Retry),
		Breaker:       resilience.BreakerFromConfig(cfg.LLM.Retry),
	}), nil
}

const defaultNVIDIAModel = "meta/llama-4-maverick-17b-128e-instruct"

func providerName(p string) string {
	if p == "" {
		return "nvidia"
	}
	return p
}
