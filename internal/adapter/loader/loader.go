package loader

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docvec/internal/adapter/fs"
	"docvec/internal/domain"
)

// DirectoryLoader reads files of supported types under a directory into raw
// documents. Text and markdown files are read as UTF-8; PDF text extraction
// is delegated to the pdf library.
type DirectoryLoader struct {
	walker *fs.Walker
}

func NewDirectoryLoader(walker *fs.Walker) *DirectoryLoader {
	return &DirectoryLoader{walker: walker}
}

func (l *DirectoryLoader) Load(root string) ([]domain.Document, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path is not a directory: %s", root)
	}

	files, err := l.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	docs := make([]domain.Document, 0, len(files))
	for _, f := range files {
		text, err := readFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		if strings.TrimSpace(text) == "" {
			slog.Debug("skipping empty document", "path", f.Path)
			continue
		}
		docs = append(docs, domain.Document{
			Text:       text,
			SourcePath: f.Path,
			ModTime:    f.ModTime,
		})
	}

	slog.Info("loaded documents", "root", root, "count", len(docs))
	return docs, nil
}

func readFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}
