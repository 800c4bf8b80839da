package port

import "docvec/internal/domain"

// Loader reads supported files under a directory into raw documents with
// source-path metadata. Format parsing is delegated to per-suffix readers.
type Loader interface {
	Load(root string) ([]domain.Document, error)
}
