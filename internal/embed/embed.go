// Package embed defines the embedding capability consumed by the semantic
// retriever. Real model inference is an external collaborator; this package
// ships only the contract and a deterministic hash-based embedder used for
// offline operation, benchmarks, and tests.
package embed

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int

	// ModelName identifies the embedding model, stored alongside vectors
	// so a model change can be detected on reload.
	ModelName() string
}
