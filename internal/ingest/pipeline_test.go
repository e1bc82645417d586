package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ragbot/internal/loader"
	"ragbot/internal/splitter"
	"ragbot/internal/vector"
	"ragbot/internal/vector/sqlitevec"
)

// hashEmbedder is a deterministic stand-in for a real embedding model: the
// vector encodes which marker tokens appear in the text, so related texts
// land near each other under cosine similarity.
type hashEmbedder struct {
	dim    int
	tokens []string
	calls  int
	err    error
}

func (e *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, e.dim)
		v[0] = 1 // keep every vector non-zero
		for j, tok := range e.tokens {
			if strings.Contains(text, tok) && j+1 < e.dim {
				v[j+1] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newPipeline(t *testing.T, docsDir string, emb *hashEmbedder) (*Pipeline, vector.Repository) {
	t.Helper()
	repo, err := sqlitevec.Open(t.TempDir(), "docs", emb.dim)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	reg := loader.NewRegistry()
	reg.Register(loader.NewTextLoader())

	return &Pipeline{
		Loaders:   reg,
		Splitter:  splitter.New(800, 120),
		Embedder:  emb,
		Repo:      repo,
		DocsDir:   docsDir,
		Dimension: emb.dim,
	}, repo
}

func TestRun_RoundTripRetrievesSource(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "a.txt", "Ordinary text about weather patterns and rain.")
	writeDoc(t, docsDir, "b.txt", "The xylophone maintenance schedule is quarterly.")

	emb := &hashEmbedder{dim: 4, tokens: []string{"xylophone", "weather"}}
	p, repo := newPipeline(t, docsDir, emb)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if stats.Documents != 2 || stats.Chunks != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	// Query for the unique token; the matching chunk's source must win.
	query, err := emb.Embed(context.Background(), []string{"xylophone"})
	if err != nil {
		t.Fatal(err)
	}
	results, err := repo.Search(context.Background(), query[0], 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if got := results[0].Metadata["source"]; !strings.HasSuffix(got, "b.txt") {
		t.Errorf("expected source b.txt, got %q", got)
	}
	if results[0].Metadata["chunk_index"] != "0" {
		t.Errorf("expected chunk_index 0, got %q", results[0].Metadata["chunk_index"])
	}
}

func TestRun_EmptyDirFailsWithoutWriting(t *testing.T) {
	emb := &hashEmbedder{dim: 4}
	p, repo := newPipeline(t, t.TempDir(), emb)

	_, err := p.Run(context.Background())
	if !errors.Is(err, loader.ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder was called %d times on an empty corpus", emb.calls)
	}
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("empty ingestion wrote %d entries", n)
	}
}

func TestRun_EmbeddingFailureAborts(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "a.txt", "some content")

	emb := &hashEmbedder{dim: 4, err: errors.New("boom")}
	p, repo := newPipeline(t, docsDir, emb)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected pipeline to fail")
	}
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failed ingestion wrote %d entries", n)
	}
}

func TestRun_DimensionMismatchAborts(t *testing.T) {
	docsDir := t.TempDir()
	writeDoc(t, docsDir, "a.txt", "some content")

	emb := &hashEmbedder{dim: 4}
	p, _ := newPipeline(t, docsDir, emb)
	p.Dimension = 8 // configured index dimension disagrees with the model

	_, err := p.Run(context.Background())
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestRun_BatchesPreserveOrder(t *testing.T) {
	docsDir := t.TempDir()
	var b strings.Builder
	// Enough short paragraphs to force many chunks across several batches.
	for i := 0; i < 30; i++ {
		b.WriteString(strings.Repeat("lorem ipsum dolor sit amet ", 30))
		b.WriteString("\n\n")
	}
	writeDoc(t, docsDir, "long.txt", b.String())

	emb := &hashEmbedder{dim: 4}
	p, repo := newPipeline(t, docsDir, emb)
	p.BatchSize = 7

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if stats.Chunks <= p.BatchSize {
		t.Fatalf("expected more than one batch worth of chunks, got %d", stats.Chunks)
	}
	if emb.calls < 2 {
		t.Errorf("expected multiple embedding batches, got %d calls", emb.calls)
	}
	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != stats.Chunks {
		t.Errorf("index holds %d entries, expected %d", n, stats.Chunks)
	}
}
