// Package rag contains the query-time pipeline: retrieve relevant chunks,
// assemble them into a bounded context, and produce a cited answer.
package rag

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"ragbot/internal/observability"
	"ragbot/internal/vector"
)

// Embedder is the capability the retriever needs from a model backend.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever turns a question into the top-k most relevant chunks.
type Retriever struct {
	Embedder Embedder
	Repo     vector.Repository
	TopK     int
}

// Retrieve embeds the question and searches the index. Results come back
// ordered by descending relevance.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]vector.Result, error) {
	ctx, span := observability.StartSpan(ctx, "ask.retrieve",
		attribute.Int("retrieve.k", r.TopK))

	vecs, err := r.Embedder.Embed(ctx, []string{question})
	if err != nil {
		observability.EndSpan(span, err)
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vecs) != 1 {
		err := fmt.Errorf("embedding question: got %d vectors, want 1", len(vecs))
		observability.EndSpan(span, err)
		return nil, err
	}

	results, err := r.Repo.Search(ctx, vecs[0], r.TopK)
	if err != nil {
		observability.EndSpan(span, err)
		return nil, fmt.Errorf("searching index: %w", err)
	}
	span.SetAttributes(attribute.Int("retrieve.results", len(results)))
	observability.EndSpan(span, nil)
	return results, nil
}
