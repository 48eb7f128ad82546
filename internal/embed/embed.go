// Package embed turns text into dense vectors for similarity search.
package embed

import (
	"context"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/homework-assistant/internal/model"
	"github.com/sells-group/homework-assistant/internal/resilience"
	"github.com/sells-group/homework-assistant/pkg/nvidia"
)

// Embedder returns one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultBatchSize bounds the number of inputs per provider request.
const DefaultBatchSize = 64

// NVIDIA embeds through the NVIDIA API catalog embeddings endpoint.
type NVIDIA struct {
	client      nvidia.Client
	model       string
	batchSize   int
	concurrency int
	retry       resilience.RetryConfig
}

// NewNVIDIA creates an NVIDIA embedder. Inputs are split into batches of at
// most batchSize and up to 4 batches are in flight at once. Each batch is
// retried with resilience.DefaultRetryConfig.
func NewNVIDIA(client nvidia.Client, model string, batchSize int) *NVIDIA {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	e := &NVIDIA{client: client, model: model, batchSize: batchSize, concurrency: 4}
	return e.WithRetry(resilience.DefaultRetryConfig())
}

// WithRetry replaces the per-batch retry policy.
func (e *NVIDIA) WithRetry(cfg resilience.RetryConfig) *NVIDIA {
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("nvidia", "embed")
	}
	e.retry = cfg
	return e
}

// Embed implements Embedder.
func (e *NVIDIA) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := resilience.DoVal(gctx, e.retry, func(ctx context.Context) ([][]float32, error) {
				vecs, err := e.client.Embed(ctx, e.model, texts[start:end])
				if status := nvidia.StatusCode(err); err != nil && resilience.IsTransientHTTPStatus(status) {
					return nil, resilience.NewTransientError(err, status)
				}
				return vecs, err
			})
			if err != nil {
				return &model.TransientCallError{Op: "embed: nvidia", Err: err}
			}
			if len(vecs) != end-start {
				return eris.Errorf("embed: nvidia returned %d vectors for %d inputs", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
