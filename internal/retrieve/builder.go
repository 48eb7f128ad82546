package retrieve

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/homework-assistant/internal/embed"
	"github.com/sells-group/homework-assistant/internal/model"
)

// Builder chunks and embeds a corpus. With a positive cache size, indexes are
// reused while the corpus of a source is unchanged.
type Builder struct {
	chunker  *Chunker
	embedder embed.Embedder
	cache    *lru.Cache[string, *Index]
}

// NewBuilder creates a Builder. cacheSize 0 disables index caching.
func NewBuilder(chunker *Chunker, embedder embed.Embedder, cacheSize int) (*Builder, error) {
	b := &Builder{chunker: chunker, embedder: embedder}
	if cacheSize > 0 {
		c, err := lru.New[string, *Index](cacheSize)
		if err != nil {
			return nil, eris.Wrap(err, "retrieve: create index cache")
		}
		b.cache = c
	}
	return b, nil
}

// Build returns the index for corpus. An empty corpus, or one that yields no
// chunks, is a *model.ConfigurationError.
func (b *Builder) Build(ctx context.Context, source string, corpus []string) (*Index, error) {
	if len(corpus) == 0 {
		return nil, model.NoKnowledgeBase(source)
	}

	key := cacheKey(source, corpus)
	if b.cache != nil {
		if ix, ok := b.cache.Get(key); ok {
			zap.L().Debug("retrieve: index cache hit", zap.String("source", source))
			return ix, nil
		}
	}

	chunks, err := b.chunker.Split(corpus)
	if err != nil {
		return nil, err
	}
	ix, err := BuildIndex(ctx, b.embedder, source, chunks)
	if err != nil {
		return nil, err
	}

	zap.L().Info("retrieve: index built",
		zap.String("source", source),
		zap.Int("pages", len(corpus)),
		zap.Int("chunks", ix.Len()),
	)

	if b.cache != nil {
		b.cache.Add(key, ix)
	}
	return ix, nil
}

func cacheKey(source string, corpus []string) string {
	h := sha256.New()
	for _, block := range corpus {
		h.Write([]byte(block))
		h.Write([]byte{0})
	}
	return source + ":" + hex.EncodeToString(h.Sum(nil))
}
