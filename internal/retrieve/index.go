package retrieve

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/homework-assistant/internal/embed"
	"github.com/sells-group/homework-assistant/internal/model"
)

// Index holds every chunk of a corpus exactly once, with its embedding.
// It is read-only after construction and safe for concurrent searches.
type Index struct {
	source   string
	embedder embed.Embedder
	chunks   []model.Chunk
	vectors  [][]float32
}

// BuildIndex embeds chunks into a new Index. No chunks means the source has
// no knowledge base.
func BuildIndex(ctx context.Context, embedder embed.Embedder, source string, chunks []model.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, model.NoKnowledgeBase(source)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieve: embed %d chunks", len(chunks))
	}
	if len(vectors) != len(chunks) {
		return nil, eris.Errorf("retrieve: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	return &Index{
		source:   source,
		embedder: embedder,
		chunks:   chunks,
		vectors:  vectors,
	}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Source returns the name of the source the index was built from.
func (ix *Index) Source() string { return ix.source }

// Search returns up to k chunks ordered by descending cosine similarity to query.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]model.Chunk, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, eris.Wrap(err, "retrieve: embed query")
	}
	if len(vecs) != 1 {
		return nil, eris.Errorf("retrieve: got %d vectors for 1 query", len(vecs))
	}
	return ix.nearest(vecs[0], k), nil
}

// SearchBatchDedup runs Search for every query and merges the hits into one
// list keyed by chunk content, keeping first-seen order.
func (ix *Index) SearchBatchDedup(ctx context.Context, queries []string, k int) ([]model.Chunk, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	vecs, err := ix.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, eris.Wrapf(err, "retrieve: embed %d queries", len(queries))
	}
	if len(vecs) != len(queries) {
		return nil, eris.Errorf("retrieve: got %d vectors for %d queries", len(vecs), len(queries))
	}

	seen := make(map[string]struct{})
	var out []model.Chunk
	for _, v := range vecs {
		for _, c := range ix.nearest(v, k) {
			if _, ok := seen[c.Text]; ok {
				continue
			}
			seen[c.Text] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

func (ix *Index) nearest(query []float32, k int) []model.Chunk {
	if k <= 0 {
		return nil
	}

	type scored struct {
		pos   int
		score float64
	}
	candidates := make([]scored, len(ix.chunks))
	for i, v := range ix.vectors {
		candidates[i] = scored{pos: i, score: cosine(v, query)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]model.Chunk, len(candidates))
	for i, c := range candidates {
		out[i] = ix.chunks[c.pos]
	}
	return out
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
