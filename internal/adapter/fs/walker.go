package fs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker finds candidate files under a root directory, filtering by allowed
// suffix and exclude globs.
type Walker struct {
	suffixes  []string
	recursive bool
	excludes  []string
}

func NewWalker(suffixes []string, recursive bool, excludes []string) *Walker {
	lowered := make([]string, len(suffixes))
	for i, s := range suffixes {
		lowered[i] = strings.ToLower(s)
	}
	return &Walker{
		suffixes:  lowered,
		recursive: recursive,
		excludes:  excludes,
	}
}

type FileInfo struct {
	Path    string
	ModTime time.Time
	Size    int64
}

func (w *Walker) Walk(root string) ([]FileInfo, error) {
	var files []FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			if !w.recursive || w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.hasAllowedSuffix(relPath) && !w.shouldExclude(relPath) {
			files = append(files, FileInfo{
				Path:    path,
				ModTime: info.ModTime(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

func (w *Walker) hasAllowedSuffix(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range w.suffixes {
		if ext == s {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
