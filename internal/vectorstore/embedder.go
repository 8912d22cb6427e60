package vectorstore

import "context"

// Embedder turns text into a fixed-length vector. The concrete model is an
// injected collaborator; implementations must be deterministic for
// identical input so retrieval stays reproducible.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
