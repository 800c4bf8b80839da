package port

import "context"

// VectorIndex is the remote managed vector search service. Upserts are
// idempotent when IDs are stable; the backing service overwrites on
// duplicate ID.
type VectorIndex interface {
	// Upsert adds or replaces datapoints in the remote index.
	Upsert(ctx context.Context, items []IndexItem) error

	// Query returns up to topK nearest neighbors, ordered best first.
	Query(ctx context.Context, vector []float32, topK int) ([]Neighbor, error)

	// Delete removes datapoints by their IDs.
	Delete(ctx context.Context, ids []string) error
}

// IndexItem is one (id, vector, metadata) tuple for upsert.
type IndexItem struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Neighbor is one ranked hit from a nearest-neighbor query. Score is the
// service's relevance measure; ordering within a result list is always best
// first regardless of whether the metric is a distance or a similarity.
type Neighbor struct {
	ID    string
	Score float64
}
