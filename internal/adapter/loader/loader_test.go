package loader

import (
	"os"
	"path/filepath"
	"testing"

	"docvec/internal/adapter/fs"
)

func newTestLoader() *DirectoryLoader {
	walker := fs.NewWalker([]string{".txt", ".md"}, true, nil)
	return NewDirectoryLoader(walker)
}

func TestLoadReadsSupportedFiles(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "a.txt", "plain text content")
	writeFile(t, dir, "sub/b.md", "# heading\n\nbody")
	writeFile(t, dir, "c.json", `{"ignored": true}`)

	docs, err := newTestLoader().Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	byPath := make(map[string]string)
	for _, d := range docs {
		byPath[filepath.Base(d.SourcePath)] = d.Text
		if d.ModTime.IsZero() {
			t.Errorf("document %s has zero mod time", d.SourcePath)
		}
	}
	if byPath["a.txt"] != "plain text content" {
		t.Errorf("unexpected a.txt content: %q", byPath["a.txt"])
	}
	if byPath["b.md"] == "" {
		t.Error("b.md not loaded from subdirectory")
	}
}

func TestLoadSkipsEmptyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.txt", "   \n\t\n")
	writeFile(t, dir, "full.txt", "content")

	docs, err := newTestLoader().Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestLoadNonRecursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top.txt", "top")
	writeFile(t, dir, "nested/deep.txt", "deep")

	walker := fs.NewWalker([]string{".txt"}, false, nil)
	docs, err := NewDirectoryLoader(walker).Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document without recursion, got %d", len(docs))
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := newTestLoader().Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
