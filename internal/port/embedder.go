package port

import "context"

// Embedder generates vector embeddings for text via a remote model.
type Embedder interface {
	// Embed returns one vector per input text, same length and order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
