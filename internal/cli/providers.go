package cli

import (
	"context"
	"fmt"
	"os"

	"docvec/config"
	"docvec/internal/adapter/embedding"
	"docvec/internal/adapter/vectorindex"
	"docvec/internal/domain"
	"docvec/internal/port"
)

// newEmbedder builds the configured embedding client.
func newEmbedder(ctx context.Context, cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "google":
		e, err := embedding.NewGoogleEmbedder(ctx, cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
		if err != nil {
			return nil, domain.WrapStage(domain.StageConfig, err)
		}
		return e, nil
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BatchSize)
		if err != nil {
			return nil, domain.WrapStage(domain.StageConfig, err)
		}
		return e, nil
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, domain.StageErrorf(domain.StageConfig,
			"unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// newVectorIndex builds the configured remote index client. For Qdrant the
// collection is created on first use; for Vertex the index and endpoint must
// already exist.
func newVectorIndex(ctx context.Context, cfg *config.Config, embedder port.Embedder, indexing bool) (port.VectorIndex, error) {
	switch cfg.Index.Provider {
	case "vertex":
		v, err := vectorindex.NewVertexIndex(ctx, vectorindex.VertexConfig{
			Project:         cfg.Index.Vertex.Project,
			Region:          cfg.Index.Vertex.Region,
			IndexID:         cfg.Index.Vertex.IndexID,
			EndpointID:      cfg.Index.Vertex.EndpointID,
			DeployedIndexID: cfg.Index.Vertex.DeployedIndexID,
		})
		if err != nil {
			return nil, domain.WrapStage(domain.StageConfig, err)
		}
		return v, nil
	case "qdrant":
		q := vectorindex.NewQdrantIndex(vectorindex.QdrantConfig{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Index.Qdrant.APIKeyEnv),
			Collection: cfg.Index.Qdrant.Collection,
		})
		if indexing {
			if err := q.EnsureCollection(ctx, embedder.Dimension()); err != nil {
				return nil, domain.WrapStage(domain.StageUpsert,
					fmt.Errorf("failed to ensure collection: %w", err))
			}
		}
		return q, nil
	default:
		return nil, domain.StageErrorf(domain.StageConfig,
			"unsupported index provider: %s", cfg.Index.Provider)
	}
}
