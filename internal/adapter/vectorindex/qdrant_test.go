package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"docvec/internal/port"
)

func TestQdrantUpsertRequest(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody struct {
		Points []struct {
			ID      string         `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "docs"})

	items := []port.IndexItem{
		{ID: "chunk-a", Vector: []float32{0.1, 0.2}, Metadata: map[string]string{"source_path": "/a.txt"}},
	}
	if err := q.Upsert(context.Background(), items); err != nil {
		t.Fatal(err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("expected PUT, got %s", gotMethod)
	}
	if gotPath != "/collections/docs/points" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if len(gotBody.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(gotBody.Points))
	}

	p := gotBody.Points[0]
	if p.ID != pointID("chunk-a") {
		t.Errorf("expected deterministic point id %s, got %s", pointID("chunk-a"), p.ID)
	}
	if p.Payload["chunk_id"] != "chunk-a" {
		t.Errorf("expected chunk_id in payload, got %v", p.Payload)
	}
	if p.Payload["source_path"] != "/a.txt" {
		t.Errorf("expected metadata in payload, got %v", p.Payload)
	}
}

func TestQdrantQueryDecodesNeighbors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/docs/points/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"result": [
				{"score": 0.91, "payload": {"chunk_id": "c1"}},
				{"score": 0.74, "payload": {"chunk_id": "c2"}},
				{"score": 0.50, "payload": {}}
			]
		}`))
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "docs"})

	neighbors, err := q.Query(context.Background(), []float32{0.5, 0.5}, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(neighbors) != 2 {
		t.Fatalf("expected 2 neighbors (payload without chunk_id skipped), got %d", len(neighbors))
	}
	if neighbors[0].ID != "c1" || neighbors[0].Score != 0.91 {
		t.Errorf("unexpected first neighbor: %+v", neighbors[0])
	}
	if neighbors[1].ID != "c2" {
		t.Errorf("unexpected second neighbor: %+v", neighbors[1])
	}
}

func TestQdrantQueryRejectsNonPositiveTopK(t *testing.T) {
	q := NewQdrantIndex(QdrantConfig{URL: "http://localhost:6333", Collection: "docs"})
	if _, err := q.Query(context.Background(), []float32{1}, 0); err == nil {
		t.Error("expected error for topK=0")
	}
}

func TestQdrantServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error":"collection not found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	q := NewQdrantIndex(QdrantConfig{URL: srv.URL, Collection: "missing"})
	if _, err := q.Query(context.Background(), []float32{1}, 1); err == nil {
		t.Error("expected error for 404 response")
	}
}

func TestPointIDDeterministic(t *testing.T) {
	if pointID("abc") != pointID("abc") {
		t.Error("point IDs must be deterministic")
	}
	if pointID("abc") == pointID("abd") {
		t.Error("different chunk IDs must map to different point IDs")
	}
}
