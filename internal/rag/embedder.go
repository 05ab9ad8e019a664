package rag

import "context"

// Embedder maps a batch of texts to fixed-dimension vectors. Output is
// order-preserving and same-length as the input; the dimension is constant
// across calls for a given model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
