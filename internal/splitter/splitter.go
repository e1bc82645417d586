// Package splitter cuts documents into bounded, overlapping chunks along a
// preference order of separators: paragraph breaks first, then lines, then
// words, then single characters.
package splitter

import (
	"strconv"
	"strings"

	"ragbot/internal/loader"
)

// DefaultSeparators is the coarsest-first separator order. The empty string
// means character-level splitting and guarantees termination.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk is a contiguous piece of a document. Metadata carries the parent
// document's keys plus a "chunk_index" unique within that document.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// Splitter is a pure, deterministic chunker. Sizes are in bytes; separators
// and character-level cuts are rune-safe, so chunks never split a UTF-8
// sequence.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

// New creates a splitter with the default separator order.
func New(chunkSize, chunkOverlap int) *Splitter {
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separators:   DefaultSeparators,
	}
}

// Split cuts one document into chunks. Chunks inherit the document's
// metadata; chunk_index is assigned sequentially starting at 0.
func (s *Splitter) Split(doc loader.Document) []Chunk {
	if doc.Content == "" {
		return nil
	}

	parts := s.split(doc.Content, s.Separators)
	chunks := make([]Chunk, 0, len(parts))
	for i, content := range parts {
		meta := make(map[string]string, len(doc.Metadata)+1)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta["chunk_index"] = strconv.Itoa(i)
		chunks = append(chunks, Chunk{Content: content, Metadata: meta})
	}
	return chunks
}

// split recursively cuts text with the given separator order and merges the
// resulting pieces back into chunks of at most ChunkSize.
func (s *Splitter) split(text string, separators []string) []string {
	if len(text) <= s.ChunkSize {
		return []string{text}
	}

	sep, rest := pickSeparator(text, separators)
	pieces := cut(text, sep)

	var out []string
	var fitting []string
	flush := func() {
		if len(fitting) > 0 {
			out = append(out, s.merge(fitting)...)
			fitting = nil
		}
	}

	for _, p := range pieces {
		if len(p) <= s.ChunkSize {
			fitting = append(fitting, p)
			continue
		}
		flush()
		if len(rest) == 0 {
			// Indivisible oversized run: pass through rather than lose it.
			out = append(out, p)
			continue
		}
		out = append(out, s.split(p, rest)...)
	}
	flush()
	return out
}

// merge greedily packs consecutive pieces up to ChunkSize. After emitting a
// chunk, up to ChunkOverlap bytes of trailing pieces are retained to start
// the next chunk, so no piece sits at a boundary without context around it.
func (s *Splitter) merge(pieces []string) []string {
	var out []string
	var cur []string
	total := 0

	for _, p := range pieces {
		if total+len(p) > s.ChunkSize && len(cur) > 0 {
			out = append(out, strings.Join(cur, ""))
			for len(cur) > 0 && (total > s.ChunkOverlap || total+len(p) > s.ChunkSize) {
				total -= len(cur[0])
				cur = cur[1:]
			}
		}
		cur = append(cur, p)
		total += len(p)
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, ""))
	}
	return out
}

// pickSeparator returns the first separator present in text, plus the finer
// separators after it. Falls back to the last one when none match.
func pickSeparator(text string, separators []string) (string, []string) {
	if len(separators) == 0 {
		return "", nil
	}
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return separators[len(separators)-1], nil
}

// cut splits text on sep, keeping the separator attached to the piece before
// it so that concatenating the pieces reconstructs the input exactly. An
// empty separator cuts into individual runes.
func cut(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		pieces := make([]string, len(runes))
		for i, r := range runes {
			pieces[i] = string(r)
		}
		return pieces
	}

	split := strings.SplitAfter(text, sep)
	pieces := split[:0]
	for _, p := range split {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}
