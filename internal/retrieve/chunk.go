// Package retrieve splits a source corpus into chunks, embeds them and serves
// top-k similarity search over the result.
package retrieve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/sells-group/homework-assistant/internal/model"
)

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// chunkNamespace scopes the name-based chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("homework-assistant/chunk"))

// Chunker splits corpus blocks with a recursive character splitter.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the size and overlap.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, eris.New("retrieve: chunk size must be greater than zero")
	}
	if overlap < 0 {
		return nil, eris.New("retrieve: chunk overlap cannot be negative")
	}
	if overlap >= size {
		return nil, eris.Errorf("retrieve: chunk overlap %d must be smaller than size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split chunks every non-blank block. Chunks carry the 1-based block position
// as Page and a deterministic ID.
func (c *Chunker) Split(corpus []string) ([]model.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(c.size),
		textsplitter.WithChunkOverlap(c.overlap),
	)

	var chunks []model.Chunk
	for i, block := range corpus {
		page := i + 1
		text := strings.TrimSpace(newlinePattern.ReplaceAllString(block, "\n"))
		if text == "" {
			continue
		}
		segments, err := splitter.SplitText(text)
		if err != nil {
			return nil, eris.Wrapf(err, "retrieve: split page %d", page)
		}
		for idx, seg := range segments {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			chunks = append(chunks, model.Chunk{
				ID:   uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%d:%d:%s", page, idx, seg))).String(),
				Page: page,
				Text: seg,
			})
		}
	}
	return chunks, nil
}
