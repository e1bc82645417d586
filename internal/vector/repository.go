// Package vector defines the index storage contract shared by the embedded
// sqlite store and the Qdrant adapter.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when the configured embedding dimension
// disagrees with the dimension an existing collection was built with.
var ErrDimensionMismatch = errors.New("embedding dimension does not match index collection")

// Entry is one indexed chunk with its embedding.
type Entry struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// Result is a single match from a similarity search, ordered by descending
// score by the repository.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Repository provides vector storage and similarity search for one
// collection. Implementations must support concurrent readers; writes are
// confined to ingestion, which holds the collection exclusively.
type Repository interface {
	// Upsert inserts or replaces entries, durably before returning.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k entries closest to the query vector under
	// cosine similarity, sorted by descending score, ties broken by
	// insertion order.
	Search(ctx context.Context, vector []float32, k int) ([]Result, error)
	// Count reports the number of entries in the collection.
	Count(ctx context.Context) (int, error)
	// Close releases resources.
	Close() error
}
