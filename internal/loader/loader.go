// Package loader reads raw files into normalized documents. Each supported
// file type is handled by its own Loader implementation; new types are added
// by registering a new implementation, not by editing a dispatcher.
package loader

import "errors"

// ErrNoDocuments is returned when a load pass produces no documents at all.
// Ingestion cannot proceed on an empty corpus.
var ErrNoDocuments = errors.New("no documents found in documents directory")

// Document is a normalized unit of loaded text plus provenance metadata.
// The "source" metadata key always carries the originating file's path.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Loader extracts documents from a single file. A file may yield more than
// one document (e.g. one per PDF page).
type Loader interface {
	// Extensions returns the lower-case file extensions this loader
	// handles, dot included (e.g. ".txt").
	Extensions() []string
	// Load reads the file at path and returns its documents.
	Load(path string) ([]Document, error)
}
