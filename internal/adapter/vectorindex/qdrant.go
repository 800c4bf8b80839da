package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"docvec/internal/port"
)

// QdrantIndex is a minimal REST client for a Qdrant collection. Chunk IDs are
// mapped to deterministic name-based UUIDs (Qdrant point IDs must be UUIDs or
// integers), and the original chunk ID travels in the point payload. Upserts
// overwrite on duplicate point ID, so stable chunk IDs make re-indexing
// idempotent.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist yet. Qdrant returns OK for an existing collection with the same
// schema.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension: %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.collection))
	return q.do(ctx, http.MethodPut, path, body, nil)
}

func (q *QdrantIndex) Upsert(ctx context.Context, items []port.IndexItem) error {
	if len(items) == 0 {
		return nil
	}

	points := make([]map[string]any, len(items))
	for i, item := range items {
		payload := map[string]any{"chunk_id": item.ID}
		for k, v := range item.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      pointID(item.ID),
			"vector":  item.Vector,
			"payload": payload,
		}
	}

	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(q.collection))
	return q.do(ctx, http.MethodPut, path, body, nil)
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int) ([]port.Neighbor, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	neighbors := make([]port.Neighbor, 0, len(resp.Result))
	for _, r := range resp.Result {
		id, _ := r.Payload["chunk_id"].(string)
		if id == "" {
			continue
		}
		neighbors = append(neighbors, port.Neighbor{ID: id, Score: r.Score})
	}
	return neighbors, nil
}

func (q *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	points := make([]string, len(ids))
	for i, id := range ids {
		points[i] = pointID(id)
	}

	body := map[string]any{"points": points}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", url.PathEscape(q.collection))
	return q.do(ctx, http.MethodPost, path, body, nil)
}

func (q *QdrantIndex) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, q.url+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s returned %d: %s", method, path, resp.StatusCode, string(payload))
	}
	if out != nil && len(payload) > 0 {
		return json.Unmarshal(payload, out)
	}
	return nil
}

// pointID derives a stable UUID from a chunk ID.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docvec/"+chunkID)).String()
}
