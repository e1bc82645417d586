package sqlitevec

import (
	"context"
	"errors"
	"testing"

	"ragbot/internal/vector"
)

func openTestStore(t *testing.T, dim int) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, "docs", dim)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

func entry(id string, vec []float32, content string) vector.Entry {
	return vector.Entry{
		ID:       id,
		Vector:   vec,
		Content:  content,
		Metadata: map[string]string{"source": id + ".txt"},
	}
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	s, _ := openTestStore(t, 2)
	ctx := context.Background()

	err := s.Upsert(ctx, []vector.Entry{
		entry("east", []float32{1, 0}, "east content"),
		entry("north", []float32{0, 1}, "north content"),
		entry("northeast", []float32{1, 1}, "northeast content"),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := s.Search(ctx, []float32{1, 0.1}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ID != "east" {
		t.Errorf("expected 'east' first, got %q", results[0].ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted by descending score at %d", i)
		}
	}
	if results[0].Metadata["source"] != "east.txt" {
		t.Errorf("metadata lost: %v", results[0].Metadata)
	}
}

func TestSearch_KClampsToAvailable(t *testing.T) {
	s, _ := openTestStore(t, 2)
	ctx := context.Background()

	if err := s.Upsert(ctx, []vector.Entry{entry("only", []float32{1, 0}, "x")}); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	s, _ := openTestStore(t, 2)
	ctx := context.Background()

	// Same direction, same cosine score.
	err := s.Upsert(ctx, []vector.Entry{
		entry("first", []float32{1, 0}, "a"),
		entry("second", []float32{2, 0}, "b"),
		entry("third", []float32{3, 0}, "c"),
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third"}
	for i, w := range want {
		if results[i].ID != w {
			t.Errorf("position %d: got %q, want %q", i, results[i].ID, w)
		}
	}
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, "docs", 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, []vector.Entry{entry("kept", []float32{0, 1}, "persisted")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(dir, "docs", 2)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", n)
	}
	results, err := reopened.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Content != "persisted" {
		t.Errorf("unexpected results after reopen: %+v", results)
	}
}

func TestOpen_DimensionMismatchOnReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, "docs", 384)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := Open(dir, "docs", 768); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	s, _ := openTestStore(t, 3)

	err := s.Upsert(context.Background(), []vector.Entry{entry("bad", []float32{1, 0}, "x")})
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("failed upsert left %d entries behind", n)
	}
}

func TestUpsert_ReplacesById(t *testing.T) {
	s, _ := openTestStore(t, 2)
	ctx := context.Background()

	if err := s.Upsert(ctx, []vector.Entry{entry("dup", []float32{1, 0}, "old")}); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, []vector.Entry{entry("dup", []float32{1, 0}, "new")}); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry, got %d", n)
	}
	results, err := s.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Content != "new" {
		t.Errorf("expected replaced content, got %q", results[0].Content)
	}
}

func TestCollections_AreIndependent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	docs, err := Open(dir, "docs", 2)
	if err != nil {
		t.Fatal(err)
	}
	defer docs.Close()
	if err := docs.Upsert(ctx, []vector.Entry{entry("a", []float32{1, 0}, "x")}); err != nil {
		t.Fatal(err)
	}

	other, err := Open(dir, "other", 2)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	n, err := other.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("collection 'other' sees %d entries from 'docs'", n)
	}
}
