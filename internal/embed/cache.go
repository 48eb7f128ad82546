package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Cached memoizes vectors by content hash so re-indexing an unchanged corpus
// does not call the provider again.
type Cached struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps next with an LRU of the given size.
func NewCached(next Embedder, size int) (*Cached, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, eris.Wrap(err, "embed: create cache")
	}
	return &Cached{next: next, cache: c}, nil
}

// Embed implements Embedder. Only cache misses are forwarded, in one call.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		keys[i] = contentKey(t)
		if v, ok := c.cache.Get(keys[i]); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	zap.L().Debug("embed: cache miss",
		zap.Int("hits", len(texts)-len(missTexts)),
		zap.Int("misses", len(missTexts)),
	)

	vecs, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, eris.Errorf("embed: got %d vectors for %d inputs", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		c.cache.Add(keys[i], vecs[j])
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int { return c.cache.Len() }

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
