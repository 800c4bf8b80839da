package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docvec/internal/domain"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketDocChunks = []byte("doc_chunks")
	bucketStats     = []byte("stats")
	bucketSchema    = []byte("schema")

	keyStats       = []byte("pipeline_stats")
	keyFingerprint = []byte("fingerprint")

	allBuckets = [][]byte{bucketDocs, bucketChunks, bucketDocChunks, bucketStats, bucketSchema}
)

// docChunkSep separates source path from chunk ID in the doc_chunks bucket
// keys; NUL cannot appear in either.
const docChunkSep = "\x00"

// BoltStore is the local chunk-metadata cache backing the retrieval join and
// incremental re-indexing. The remote vector index stores only (id, vector)
// pairs; everything needed to render a result lives here.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

type docMeta struct {
	ModTime int64 `json:"mod_time"`
}

type chunkMeta struct {
	Text       string `json:"text"`
	SourcePath string `json:"source_path"`
	Seq        int    `json:"seq"`
}

func (s *BoltStore) PutDoc(path string, modTime time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(docMeta{ModTime: modTime.Unix()})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(path), data)
	})
}

func (s *BoltStore) ListDocs() (map[string]time.Time, error) {
	docs := make(map[string]time.Time)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs[string(k)] = time.Unix(meta.ModTime, 0)
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) DeleteDoc(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).Delete([]byte(path))
	})
}

func (s *BoltStore) PutChunks(chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		dcb := tx.Bucket(bucketDocChunks)

		for _, chunk := range chunks {
			data, err := json.Marshal(chunkMeta{
				Text:       chunk.Text,
				SourcePath: chunk.SourcePath,
				Seq:        chunk.Seq,
			})
			if err != nil {
				return err
			}
			if err := cb.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			key := chunk.SourcePath + docChunkSep + chunk.ID
			if err := dcb.Put([]byte(key), []byte(chunk.ID)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, bool, error) {
	var chunk domain.Chunk
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return nil
		}
		var meta chunkMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		chunk = domain.Chunk{
			ID:         id,
			Text:       meta.Text,
			SourcePath: meta.SourcePath,
			Seq:        meta.Seq,
		}
		found = true
		return nil
	})
	return chunk, found, err
}

func (s *BoltStore) ChunkIDsByDoc(path string) ([]string, error) {
	var ids []string
	prefix := []byte(path + docChunkSep)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketDocChunks).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			ids = append(ids, string(v))
		}
		return nil
	})
	return ids, err
}

func (s *BoltStore) DeleteChunksByDoc(path string) error {
	ids, err := s.ChunkIDsByDoc(path)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		dcb := tx.Bucket(bucketDocChunks)
		for _, id := range ids {
			if err := cb.Delete([]byte(id)); err != nil {
				return err
			}
			if err := dcb.Delete([]byte(path + docChunkSep + id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStats).Get(keyStats)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &stats)
	})
	return stats, err
}

func (s *BoltStore) UpdateStats(stats domain.Stats) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStats).Put(keyStats, data)
	})
}

func (s *BoltStore) Fingerprint() (string, error) {
	var fp string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket(bucketSchema).Get(keyFingerprint); data != nil {
			fp = string(data)
		}
		return nil
	})
	return fp, err
}

func (s *BoltStore) SetFingerprint(fp string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSchema).Put(keyFingerprint, []byte(fp))
	})
}

// Clear drops all buckets and recreates them empty.
func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if err := tx.DeleteBucket(b); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
