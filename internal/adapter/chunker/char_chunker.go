package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"docvec/internal/domain"
)

// CharChunker splits document text into fixed-size character windows with a
// configured overlap between consecutive windows. Chunk IDs are derived from
// the source path and sequence index, so chunking the same unmodified
// document always yields the same IDs and upserts stay idempotent.
type CharChunker struct {
	size    int
	overlap int
}

func NewCharChunker(size, overlap int) (*CharChunker, error) {
	if size <= 0 {
		return nil, domain.StageErrorf(domain.StageConfig, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.StageErrorf(domain.StageConfig,
			"chunk overlap must satisfy 0 <= overlap < size, got overlap=%d size=%d", overlap, size)
	}
	return &CharChunker{size: size, overlap: overlap}, nil
}

// Chunk produces an ordered sequence of chunks covering doc.Text with no
// gaps. Empty text yields zero chunks; text within the size limit yields
// exactly one. Windows are measured in runes, never splitting a multi-byte
// character across chunks.
func (c *CharChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil, nil
	}

	step := c.size - c.overlap
	var chunks []domain.Chunk

	for start, seq := 0, 0; ; start, seq = start+step, seq+1 {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         chunkID(doc.SourcePath, seq),
			Text:       string(runes[start:end]),
			SourcePath: doc.SourcePath,
			Seq:        seq,
		})

		if end == len(runes) {
			break
		}
	}

	return chunks, nil
}

func chunkID(sourcePath string, seq int) string {
	data := fmt.Sprintf("%s#%d", sourcePath, seq)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
