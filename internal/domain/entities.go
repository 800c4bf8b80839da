package domain

import "time"

// Document is a raw text unit loaded from disk. Immutable once created.
type Document struct {
	Text       string
	SourcePath string
	ModTime    time.Time
}

// Chunk is a bounded contiguous segment of a document's text, the unit of
// embedding and retrieval. Seq is the chunk's position within its source
// document; the ID is derived from SourcePath and Seq so that re-chunking an
// unmodified document yields the same IDs.
type Chunk struct {
	ID         string
	Text       string
	SourcePath string
	Seq        int
}

// QueryResult joins a nearest-neighbor hit with its locally stored chunk.
// Results are ordered best-first as returned by the index.
type QueryResult struct {
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	SourcePath string  `json:"source_path"`
	Seq        int     `json:"seq"`
}

type Stats struct {
	TotalDocs   int
	TotalChunks int
}
