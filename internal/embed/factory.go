package embed

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/config"
	"github.com/sells-group/homework-assistant/internal/resilience"
	"github.com/sells-group/homework-assistant/pkg/nvidia"
)

// New builds the configured embedder, wrapped in a content cache when
// retrieval.embed_cache_size is positive. nv may be nil for the hash embedder.
func New(cfg *config.Config, nv nvidia.Client) (Embedder, error) {
	var base Embedder
	switch cfg.Retrieval.Embedder {
	case "nvidia", "":
		if nv == nil {
			if cfg.NVIDIA.Key == "" {
				return nil, eris.New("embed: nvidia embedder requires nvidia.api_key")
			}
			nv = nvidia.NewClient(cfg.NVIDIA.Key, cfg.NVIDIA.BaseURL)
		}
		base = NewNVIDIA(nv, cfg.NVIDIA.EmbeddingModel, cfg.Retrieval.EmbedBatchSize).
			WithRetry(resilience.FromConfig(cfg.LLM.Retry))
	case "hash":
		base = NewHashing(cfg.Retrieval.HashDimensions)
	default:
		return nil, eris.Errorf("embed: unknown embedder %q", cfg.Retrieval.Embedder)
	}

	if cfg.Retrieval.EmbedCacheSize <= 0 {
		return base, nil
	}
	return NewCached(base, cfg.Retrieval.EmbedCacheSize)
}
