package loader

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
)

// Registry dispatches files to loaders by extension.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register adds a loader for each of its extensions. A later registration
// for the same extension wins.
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.Extensions() {
		r.loaders[strings.ToLower(ext)] = l
	}
}

// For returns the loader registered for the given path's extension.
func (r *Registry) For(path string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return l, ok
}

// LoadDir walks root recursively and loads every file with a registered
// extension. Files of an unrecognized type are skipped, not an error.
// Returns ErrNoDocuments when the walk yields nothing.
func (r *Registry) LoadDir(root string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		l, ok := r.For(path)
		if !ok {
			return nil
		}
		loaded, err := l.Load(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, root)
	}
	return docs, nil
}
