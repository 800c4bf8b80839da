package usecase

import (
	"context"
	"strings"

	"docvec/internal/domain"
	"docvec/internal/port"
)

// QueryUseCase embeds a query string, asks the remote index for nearest
// neighbors, and joins the hits back to locally stored chunk metadata.
type QueryUseCase struct {
	store    ChunkLookup
	embedder port.Embedder
	index    port.VectorIndex
}

func NewQueryUseCase(store ChunkLookup, embedder port.Embedder, index port.VectorIndex) *QueryUseCase {
	return &QueryUseCase{
		store:    store,
		embedder: embedder,
		index:    index,
	}
}

func (u *QueryUseCase) Query(ctx context.Context, text string, topK int) ([]domain.QueryResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.StageErrorf(domain.StageConfig, "query text must not be empty")
	}
	if topK <= 0 {
		return nil, domain.StageErrorf(domain.StageConfig, "result count must be positive, got %d", topK)
	}

	vectors, err := u.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, domain.WrapStage(domain.StageEmbed, err)
	}
	if len(vectors) != 1 {
		return nil, domain.StageErrorf(domain.StageEmbed, "expected 1 query vector, got %d", len(vectors))
	}

	neighbors, err := u.index.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, domain.WrapStage(domain.StageQuery, err)
	}

	return FormatResults(neighbors, u.store)
}
