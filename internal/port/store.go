package port

import (
	"time"

	"docvec/internal/domain"
)

// ChunkStore is the local cache of chunk metadata. The remote index stores
// only (id, vector) pairs; query results are joined back to chunk text and
// source paths through this store. It also tracks per-document mod times for
// incremental re-indexing.
type ChunkStore interface {
	PutDoc(path string, modTime time.Time) error
	ListDocs() (map[string]time.Time, error)
	DeleteDoc(path string) error

	PutChunks(chunks []domain.Chunk) error
	GetChunk(id string) (domain.Chunk, bool, error)
	ChunkIDsByDoc(path string) ([]string, error)
	DeleteChunksByDoc(path string) error

	GetStats() (domain.Stats, error)
	UpdateStats(stats domain.Stats) error

	// Fingerprint identifies the chunking and embedding parameters the store
	// was built with. A mismatch forces a full rebuild since chunk IDs and
	// vectors would no longer line up with the remote index.
	Fingerprint() (string, error)
	SetFingerprint(fp string) error

	Clear() error
	Close() error
}
