package model

// Chunk is a bounded span of one corpus block. Page is the 1-based position
// of that block in the source corpus.
type Chunk struct {
	ID   string `json:"id" yaml:"id"`
	Page int    `json:"page" yaml:"page"`
	Text string `json:"text" yaml:"text"`
}
