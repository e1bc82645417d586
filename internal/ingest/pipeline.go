// Package ingest composes loading, chunking, embedding, and index writes
// into the offline batch pipeline. The pipeline runs to completion or fails
// fast: no stage silently produces a partial index as success.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"ragbot/internal/loader"
	"ragbot/internal/observability"
	"ragbot/internal/splitter"
	"ragbot/internal/vector"
)

// defaultBatchSize bounds one embedding request.
const defaultBatchSize = 64

// Embedder is the narrow capability the pipeline needs from a model backend.
// llm.Provider satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline builds the index from a documents directory.
type Pipeline struct {
	Loaders   *loader.Registry
	Splitter  *splitter.Splitter
	Embedder  Embedder
	Repo      vector.Repository
	DocsDir   string
	Dimension int
	BatchSize int

	// Progress, when set, receives one line per pipeline stage.
	Progress func(format string, args ...any)
}

// Stats summarizes a completed run.
type Stats struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

// Run executes load → split → embed → upsert. Any stage error aborts the
// whole run; the caller decides whether to rebuild.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	p.progress("Loading documents from %s...", p.DocsDir)
	ctx, span := observability.StartSpan(ctx, "ingest.load")
	docs, err := p.Loaders.LoadDir(p.DocsDir)
	observability.EndSpan(span, err)
	if err != nil {
		return stats, err
	}
	stats.Documents = len(docs)

	p.progress("Splitting %d documents...", len(docs))
	_, span = observability.StartSpan(ctx, "ingest.split")
	var chunks []splitter.Chunk
	for _, doc := range docs {
		chunks = append(chunks, p.Splitter.Split(doc)...)
	}
	span.SetAttributes(attribute.Int("ingest.chunks", len(chunks)))
	observability.EndSpan(span, nil)
	if len(chunks) == 0 {
		return stats, fmt.Errorf("%w: documents contained no splittable text", loader.ErrNoDocuments)
	}
	stats.Chunks = len(chunks)

	p.progress("Embedding %d chunks...", len(chunks))
	vectors, err := p.embedAll(ctx, chunks)
	if err != nil {
		return stats, err
	}

	p.progress("Writing %d entries to the index...", len(chunks))
	entries := make([]vector.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vector.Entry{
			ID:       uuid.NewString(),
			Vector:   vectors[i],
			Content:  c.Content,
			Metadata: c.Metadata,
		}
	}

	ctx, span = observability.StartSpan(ctx, "ingest.upsert",
		attribute.Int("ingest.entries", len(entries)))
	err = p.Repo.Upsert(ctx, entries)
	observability.EndSpan(span, err)
	if err != nil {
		return stats, fmt.Errorf("writing index: %w", err)
	}

	return stats, nil
}

// embedAll embeds chunk contents in bounded batches, preserving order, and
// verifies counts and dimensionality before anything reaches the index.
func (p *Pipeline) embedAll(ctx context.Context, chunks []splitter.Chunk) ([][]float32, error) {
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	ctx, span := observability.StartSpan(ctx, "ingest.embed",
		attribute.Int("ingest.chunks", len(chunks)))

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Content
		}

		batch, err := p.Embedder.Embed(ctx, texts)
		if err != nil {
			observability.EndSpan(span, err)
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			err := fmt.Errorf("embedding count mismatch: got %d vectors for %d chunks", len(batch), len(texts))
			observability.EndSpan(span, err)
			return nil, err
		}
		for i, v := range batch {
			if p.Dimension > 0 && len(v) != p.Dimension {
				err := fmt.Errorf("%w: embedder returned %d dimensions for chunk %d, expected %d",
					vector.ErrDimensionMismatch, len(v), start+i, p.Dimension)
				observability.EndSpan(span, err)
				return nil, err
			}
		}
		vectors = append(vectors, batch...)
	}

	observability.EndSpan(span, nil)
	return vectors, nil
}

func (p *Pipeline) progress(format string, args ...any) {
	if p.Progress != nil {
		p.Progress(format, args...)
	}
}
