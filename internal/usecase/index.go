package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"docvec/internal/domain"
	"docvec/internal/port"
)

// IndexUseCase runs the indexing pipeline: load documents, chunk them, embed
// chunk texts and upsert the vectors into the remote index. Unchanged files
// are skipped and vanished files are removed from both the local store and
// the remote index, so re-running over an unmodified directory upserts the
// exact same set of IDs.
type IndexUseCase struct {
	store       port.ChunkStore
	loader      port.Loader
	chunker     port.Chunker
	embedder    port.Embedder
	index       port.VectorIndex
	batchSize   int
	fingerprint string
}

func NewIndexUseCase(
	store port.ChunkStore,
	loader port.Loader,
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	batchSize int,
	fingerprint string,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IndexUseCase{
		store:       store,
		loader:      loader,
		chunker:     chunker,
		embedder:    embedder,
		index:       index,
		batchSize:   batchSize,
		fingerprint: fingerprint,
	}
}

// Fingerprint identifies the chunking and embedding parameters a local store
// was built with.
func Fingerprint(chunkSize, chunkOverlap int, model string) string {
	return fmt.Sprintf("size=%d,overlap=%d,model=%s", chunkSize, chunkOverlap, model)
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	FilesIndexed   int
	FilesSkipped   int
	FilesDeleted   int
	ChunksUpserted int
	Rebuilt        bool
}

// ProgressFunc reports embedding/upsert progress in chunks.
type ProgressFunc func(done, total int)

func (u *IndexUseCase) Index(ctx context.Context, root string, progress ProgressFunc) (*IndexResult, error) {
	result := &IndexResult{}

	// A parameter change invalidates every chunk ID and vector; start over.
	stored, err := u.store.Fingerprint()
	if err != nil {
		return nil, domain.WrapStage(domain.StageStore, err)
	}
	if stored != "" && stored != u.fingerprint {
		slog.Warn("chunking or embedding parameters changed, rebuilding local store",
			"old", stored, "new", u.fingerprint)
		// The remote index must drop the old IDs first: a shorter chunk
		// sequence per document would otherwise leave orphaned datapoints
		// that the local store no longer remembers.
		if err := u.removeAll(ctx); err != nil {
			return nil, err
		}
		if err := u.store.Clear(); err != nil {
			return nil, domain.WrapStage(domain.StageStore, err)
		}
		result.Rebuilt = true
	}

	docs, err := u.loader.Load(root)
	if err != nil {
		return nil, domain.WrapStage(domain.StageLoad, err)
	}

	existing, err := u.store.ListDocs()
	if err != nil {
		return nil, domain.WrapStage(domain.StageStore, err)
	}

	seen := make(map[string]bool, len(docs))
	var pending []domain.Document
	var pendingChunks []domain.Chunk
	skippedChunks := 0

	for _, doc := range docs {
		seen[doc.SourcePath] = true

		if modTime, ok := existing[doc.SourcePath]; ok {
			if !doc.ModTime.After(modTime) {
				result.FilesSkipped++
				ids, err := u.store.ChunkIDsByDoc(doc.SourcePath)
				if err != nil {
					return nil, domain.WrapStage(domain.StageStore, err)
				}
				skippedChunks += len(ids)
				continue
			}
			// Modified file: the new chunk sequence may be shorter than the
			// old one, so stale IDs must leave the remote index first.
			if err := u.removeDoc(ctx, doc.SourcePath); err != nil {
				return nil, err
			}
		}

		chunks, err := u.chunker.Chunk(doc)
		if err != nil {
			return nil, domain.WrapStage(domain.StageChunk, err)
		}
		if len(chunks) == 0 {
			slog.Debug("document produced no chunks", "path", doc.SourcePath)
			continue
		}

		pending = append(pending, doc)
		pendingChunks = append(pendingChunks, chunks...)
		result.FilesIndexed++
	}

	// Files that vanished from disk leave both stores.
	for path := range existing {
		if seen[path] {
			continue
		}
		if err := u.removeDoc(ctx, path); err != nil {
			return nil, err
		}
		if err := u.store.DeleteDoc(path); err != nil {
			return nil, domain.WrapStage(domain.StageStore, err)
		}
		result.FilesDeleted++
	}

	if err := u.embedAndUpsert(ctx, pendingChunks, progress); err != nil {
		return nil, err
	}
	result.ChunksUpserted = len(pendingChunks)

	for _, doc := range pending {
		if err := u.store.PutDoc(doc.SourcePath, doc.ModTime); err != nil {
			return nil, domain.WrapStage(domain.StageStore, err)
		}
	}

	stats := domain.Stats{
		TotalDocs:   result.FilesIndexed + result.FilesSkipped,
		TotalChunks: result.ChunksUpserted + skippedChunks,
	}
	if err := u.store.UpdateStats(stats); err != nil {
		return nil, domain.WrapStage(domain.StageStore, err)
	}
	if err := u.store.SetFingerprint(u.fingerprint); err != nil {
		return nil, domain.WrapStage(domain.StageStore, err)
	}

	return result, nil
}

// embedAndUpsert pushes chunks through the embedding model and into the
// remote index in batches, persisting local metadata only after the remote
// upsert succeeded so the local store never claims chunks the index lacks.
func (u *IndexUseCase) embedAndUpsert(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) error {
	done := 0
	for i := 0; i < len(chunks); i += u.batchSize {
		end := i + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return domain.WrapStage(domain.StageEmbed, err)
		}
		if len(vectors) != len(batch) {
			return domain.StageErrorf(domain.StageEmbed,
				"embedding count mismatch: sent %d texts, got %d vectors", len(batch), len(vectors))
		}

		items := make([]port.IndexItem, len(batch))
		for j, c := range batch {
			items[j] = port.IndexItem{
				ID:     c.ID,
				Vector: vectors[j],
				Metadata: map[string]string{
					"source_path": c.SourcePath,
				},
			}
		}

		if err := u.index.Upsert(ctx, items); err != nil {
			return domain.WrapStage(domain.StageUpsert, err)
		}
		if err := u.store.PutChunks(batch); err != nil {
			return domain.WrapStage(domain.StageStore, err)
		}

		done += len(batch)
		if progress != nil {
			progress(done, len(chunks))
		}
	}
	return nil
}

// removeAll deletes every locally known chunk from the remote index.
func (u *IndexUseCase) removeAll(ctx context.Context) error {
	docs, err := u.store.ListDocs()
	if err != nil {
		return domain.WrapStage(domain.StageStore, err)
	}

	var ids []string
	for path := range docs {
		docIDs, err := u.store.ChunkIDsByDoc(path)
		if err != nil {
			return domain.WrapStage(domain.StageStore, err)
		}
		ids = append(ids, docIDs...)
	}

	if len(ids) == 0 {
		return nil
	}
	if err := u.index.Delete(ctx, ids); err != nil {
		return domain.WrapStage(domain.StageUpsert, err)
	}
	return nil
}

// removeDoc deletes a document's chunks from the remote index and the local
// store.
func (u *IndexUseCase) removeDoc(ctx context.Context, path string) error {
	ids, err := u.store.ChunkIDsByDoc(path)
	if err != nil {
		return domain.WrapStage(domain.StageStore, err)
	}
	if len(ids) > 0 {
		if err := u.index.Delete(ctx, ids); err != nil {
			return domain.WrapStage(domain.StageUpsert, err)
		}
	}
	if err := u.store.DeleteChunksByDoc(path); err != nil {
		return domain.WrapStage(domain.StageStore, err)
	}
	return nil
}
