// Package rag implements the local knowledge base: document chunking,
// embedding, a flat exact-distance vector index with on-disk snapshots,
// and query-time retrieval with citation metadata.
package rag

import "strings"

// Chunk splits text into overlapping windows of whitespace-delimited
// tokens. Each window holds up to size tokens; consecutive windows start
// size-overlap tokens apart, so the last overlap tokens of one window
// reappear at the front of the next. A degenerate overlap (>= size) falls
// back to non-overlapping windows rather than looping in place. Pure and
// deterministic; empty text yields no chunks.
func Chunk(text string, size, overlap int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 || size <= 0 {
		return nil
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for i := 0; i < len(tokens); i += step {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[i:end], " "))
	}
	return chunks
}
