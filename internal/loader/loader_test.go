package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewTextLoader())
	return r
}

func TestTextLoader_SetsSourceMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello world")

	docs, err := NewTextLoader().Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Content != "hello world" {
		t.Errorf("unexpected content %q", docs[0].Content)
	}
	if docs[0].Metadata["source"] != path {
		t.Errorf("expected source=%q, got %q", path, docs[0].Metadata["source"])
	}
}

func TestLoadDir_SkipsUnknownTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.md", "beta")
	writeFile(t, dir, "c.csv", "gamma,delta")
	writeFile(t, dir, "d.TXT", "upper case extension")

	docs, err := newTestRegistry().LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents (csv skipped, .TXT matched), got %d", len(docs))
	}
	for _, d := range docs {
		if d.Metadata["source"] == "" {
			t.Error("document missing source metadata")
		}
	}
}

func TestLoadDir_Recurses(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, sub, "deep.txt", "buried text")

	docs, err := newTestRegistry().LoadDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestLoadDir_EmptyDirIsError(t *testing.T) {
	_, err := newTestRegistry().LoadDir(t.TempDir())
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestLoadDir_OnlyUnknownTypesIsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", "\x00\x01")

	_, err := newTestRegistry().LoadDir(dir)
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("expected ErrNoDocuments, got %v", err)
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := NewTextLoader()
	second := NewTextLoader()
	r.Register(first)
	r.Register(second)

	got, ok := r.For("x.txt")
	if !ok {
		t.Fatal("expected a loader for .txt")
	}
	if got != second {
		t.Error("expected the most recent registration to win")
	}
}
