package usecase

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"docvec/internal/adapter/chunker"
	"docvec/internal/adapter/embedding"
	"docvec/internal/adapter/fs"
	"docvec/internal/adapter/loader"
	"docvec/internal/adapter/store"
	"docvec/internal/port"
)

// fakeIndex records upserts and deletes and serves canned neighbors.
type fakeIndex struct {
	upserted  map[string][]float32
	deleted   []string
	neighbors []port.Neighbor
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserted: make(map[string][]float32)}
}

func (f *fakeIndex) Upsert(_ context.Context, items []port.IndexItem) error {
	for _, item := range items {
		f.upserted[item.ID] = item.Vector
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ []float32, topK int) ([]port.Neighbor, error) {
	if topK < len(f.neighbors) {
		return f.neighbors[:topK], nil
	}
	return f.neighbors, nil
}

func (f *fakeIndex) Delete(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

type indexFixture struct {
	root  string
	store *store.BoltStore
	index *fakeIndex
}

func newIndexFixture(t *testing.T) *indexFixture {
	t.Helper()
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return &indexFixture{
		root:  t.TempDir(),
		store: st,
		index: newFakeIndex(),
	}
}

func (fx *indexFixture) usecase(t *testing.T, fingerprint string) *IndexUseCase {
	t.Helper()
	chk, err := chunker.NewCharChunker(50, 10)
	if err != nil {
		t.Fatal(err)
	}
	ld := loader.NewDirectoryLoader(fs.NewWalker([]string{".txt"}, true, nil))
	return NewIndexUseCase(fx.store, ld, chk, embedding.NewMockEmbedder(8), fx.index, 10, fingerprint)
}

func (fx *indexFixture) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(fx.root, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func upsertedIDs(f *fakeIndex) []string {
	ids := make([]string, 0, len(f.upserted))
	for id := range f.upserted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func TestIndexUpsertsAllChunks(t *testing.T) {
	fx := newIndexFixture(t)
	fx.write(t, "a.txt", "alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima")
	fx.write(t, "b.txt", "short")

	result, err := fx.usecase(t, "fp1").Index(context.Background(), fx.root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesIndexed != 2 {
		t.Errorf("expected 2 files indexed, got %d", result.FilesIndexed)
	}
	if result.ChunksUpserted != len(fx.index.upserted) {
		t.Errorf("result reports %d chunks, index received %d", result.ChunksUpserted, len(fx.index.upserted))
	}
	if result.ChunksUpserted < 3 {
		t.Errorf("expected a.txt to split into multiple chunks, got %d total", result.ChunksUpserted)
	}

	// Every upserted ID must resolve locally for the query-time join.
	for id := range fx.index.upserted {
		if _, found, _ := fx.store.GetChunk(id); !found {
			t.Errorf("upserted chunk %s missing from local store", id)
		}
	}
}

func TestIndexIsIdempotent(t *testing.T) {
	fx := newIndexFixture(t)
	fx.write(t, "a.txt", "the same content every run, long enough to produce several chunks in a row here")

	uc := fx.usecase(t, "fp1")
	if _, err := uc.Index(context.Background(), fx.root, nil); err != nil {
		t.Fatal(err)
	}
	firstIDs := upsertedIDs(fx.index)

	second, err := uc.Index(context.Background(), fx.root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if second.FilesSkipped != 1 || second.FilesIndexed != 0 {
		t.Errorf("expected unchanged file skipped, got %+v", second)
	}
	if second.ChunksUpserted != 0 {
		t.Errorf("expected no re-upserts for unchanged file, got %d", second.ChunksUpserted)
	}

	// Re-running over a modified-then-restored tree yields the same ID set.
	fx2 := &indexFixture{root: fx.root, store: fx.store, index: newFakeIndex()}
	if err := fx.store.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := fx2.usecase(t, "fp1").Index(context.Background(), fx.root, nil); err != nil {
		t.Fatal(err)
	}
	if got := upsertedIDs(fx2.index); !equalStrings(got, firstIDs) {
		t.Errorf("re-index produced different IDs:\nfirst  %v\nsecond %v", firstIDs, got)
	}
}

func TestIndexRemovesVanishedFiles(t *testing.T) {
	fx := newIndexFixture(t)
	fx.write(t, "keep.txt", "kept content")
	fx.write(t, "gone.txt", "doomed content")

	uc := fx.usecase(t, "fp1")
	if _, err := uc.Index(context.Background(), fx.root, nil); err != nil {
		t.Fatal(err)
	}

	goneIDs, err := fx.store.ChunkIDsByDoc(filepath.Join(fx.root, "gone.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(goneIDs) == 0 {
		t.Fatal("expected chunks for gone.txt before deletion")
	}

	if err := os.Remove(filepath.Join(fx.root, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	result, err := uc.Index(context.Background(), fx.root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesDeleted != 1 {
		t.Errorf("expected 1 file deleted, got %d", result.FilesDeleted)
	}
	if !equalStrings(sorted(fx.index.deleted), sorted(goneIDs)) {
		t.Errorf("expected remote delete of %v, got %v", goneIDs, fx.index.deleted)
	}
	if _, found, _ := fx.store.GetChunk(goneIDs[0]); found {
		t.Error("expected local chunks removed for vanished file")
	}
}

func TestIndexReindexesModifiedFiles(t *testing.T) {
	fx := newIndexFixture(t)
	fx.write(t, "a.txt", "original content that will change between runs of the indexer")

	uc := fx.usecase(t, "fp1")
	if _, err := uc.Index(context.Background(), fx.root, nil); err != nil {
		t.Fatal(err)
	}

	oldIDs, _ := fx.store.ChunkIDsByDoc(filepath.Join(fx.root, "a.txt"))

	fx.write(t, "a.txt", "new")
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(fx.root, "a.txt"), future, future); err != nil {
		t.Fatal(err)
	}

	result, err := uc.Index(context.Background(), fx.root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if result.FilesIndexed != 1 {
		t.Errorf("expected modified file re-indexed, got %+v", result)
	}
	if !equalStrings(sorted(fx.index.deleted), sorted(oldIDs)) {
		t.Errorf("expected old chunk IDs deleted from remote index, got %v", fx.index.deleted)
	}
}

func TestIndexRebuildsOnFingerprintChange(t *testing.T) {
	fx := newIndexFixture(t)
	fx.write(t, "a.txt", "stable content across parameter changes")

	if _, err := fx.usecase(t, "fp1").Index(context.Background(), fx.root, nil); err != nil {
		t.Fatal(err)
	}

	oldIDs, err := fx.store.ChunkIDsByDoc(filepath.Join(fx.root, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(oldIDs) == 0 {
		t.Fatal("expected chunks recorded before rebuild")
	}

	result, err := fx.usecase(t, "fp2").Index(context.Background(), fx.root, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !result.Rebuilt {
		t.Error("expected rebuild on fingerprint change")
	}
	// Old datapoints leave the remote index before the local records of
	// their IDs are cleared; otherwise they would orphan remotely forever.
	if !equalStrings(sorted(fx.index.deleted), sorted(oldIDs)) {
		t.Errorf("expected remote delete of %v on rebuild, got %v", oldIDs, fx.index.deleted)
	}
	if result.FilesIndexed != 1 || result.FilesSkipped != 0 {
		t.Errorf("expected full re-index after rebuild, got %+v", result)
	}

	fp, _ := fx.store.Fingerprint()
	if fp != "fp2" {
		t.Errorf("expected fingerprint fp2 recorded, got %q", fp)
	}
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
