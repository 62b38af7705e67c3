// Package chunker splits text into bounded segments at sentence boundaries.
//
// Concatenating the returned chunks reproduces the input exactly - no
// characters are dropped or duplicated. This invariant is what allows
// chunked documents to be regrouped losslessly at read time.
package chunker

import "github.com/custodia-labs/ragstore/internal/core/domain"

// DefaultChunkSize is the default per-chunk character budget.
const DefaultChunkSize = 1000

// Chunker splits text into sentence-aligned chunks.
type Chunker struct {
	chunkSize int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the per-chunk character budget.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured character budget.
func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

// isTerminator reports whether r ends a sentence.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Split cuts text into chunks of at most chunkSize characters each.
//
// The scan advances chunkSize characters, then searches backward for the
// nearest sentence terminator and cuts there inclusive. A single sentence
// longer than the budget is hard-cut at exactly chunkSize. Input shorter
// than the budget yields exactly one chunk. Lengths are counted in runes
// so multi-byte characters are never split.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}

	var chunks []string
	pos := 0
	for pos < len(runes) {
		end := pos + c.chunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[pos:]))
			break
		}

		cut := end
		for i := end - 1; i > pos; i-- {
			if isTerminator(runes[i]) {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[pos:cut]))
		pos = cut
	}

	return chunks
}

// ChunkMetadata builds the per-chunk metadata for chunk index of a split.
// sizes is the ordered rune length of every chunk in the document.
func ChunkMetadata(index int, sizes []int, filename string) map[string]any {
	meta := map[string]any{
		domain.MetaChunkIndex:  index,
		domain.MetaTotalChunks: len(sizes),
		domain.MetaChunkSizes:  sizes,
	}
	if filename != "" {
		meta[domain.MetaOriginalFilename] = filename
	}
	return meta
}

// Sizes returns the rune length of each chunk.
func Sizes(chunks []string) []int {
	sizes := make([]int, len(chunks))
	for i, chunk := range chunks {
		sizes[i] = len([]rune(chunk))
	}
	return sizes
}
