package usecase

import (
	"log/slog"

	"docvec/internal/domain"
	"docvec/internal/port"
)

// ChunkLookup resolves a chunk ID to its stored metadata.
type ChunkLookup interface {
	GetChunk(id string) (domain.Chunk, bool, error)
}

// FormatResults joins nearest-neighbor hits with locally stored chunks,
// preserving the index's ranking. A neighbor whose ID resolves to no known
// chunk (a stale index entry) is skipped rather than failing the whole query:
// partial results beat total failure. No re-ranking happens here.
func FormatResults(neighbors []port.Neighbor, lookup ChunkLookup) ([]domain.QueryResult, error) {
	results := make([]domain.QueryResult, 0, len(neighbors))
	for _, n := range neighbors {
		chunk, found, err := lookup.GetChunk(n.ID)
		if err != nil {
			return nil, domain.WrapStage(domain.StageStore, err)
		}
		if !found {
			slog.Debug("skipping stale neighbor", "chunk_id", n.ID)
			continue
		}
		results = append(results, domain.QueryResult{
			ChunkID:    chunk.ID,
			Score:      n.Score,
			Text:       chunk.Text,
			SourcePath: chunk.SourcePath,
			Seq:        chunk.Seq,
		})
	}
	return results, nil
}
