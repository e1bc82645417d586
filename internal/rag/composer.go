package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragbot/internal/llm"
	"ragbot/internal/observability"
	"ragbot/internal/vector"
)

// ErrGenerationFailed wraps any failure of the generation model: timeout,
// auth, rate limit, network. It is scoped to the one request that hit it.
var ErrGenerationFailed = errors.New("generation failed")

// DefaultFallback is the sentence the model is instructed to return when the
// context does not contain the answer. The composer does not verify
// grounding itself; it relies on the model honoring the instruction.
const DefaultFallback = "I could not find an answer to that question in the documents."

// previewLen is how many characters of a chunk go into a source citation.
const previewLen = 160

const systemPromptTemplate = `You are an assistant that answers questions using only the document context supplied with each question. If the answer is not found in the context, reply exactly: %q Answer concisely and clearly, and mention the relevant sources when they matter.`

// Generator is the capability the composer needs from a model backend.
type Generator interface {
	Complete(ctx context.Context, prompt *llm.Prompt, opts *llm.RequestOptions) (*llm.Response, error)
}

// Source cites one retrieved chunk.
type Source struct {
	Source  string `json:"source"`
	Preview string `json:"preview"`
}

// Answer is the packaged response for one question.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Composer formats retrieved chunks into a grounding context, invokes the
// generation model, and packages the answer with citations.
type Composer struct {
	Generator   Generator
	Fallback    string
	Temperature float64
}

// Compose builds the prompt from the question and retrieval results and
// returns the model's answer verbatim. Sources always reflect what was
// retrieved, whether or not the model used it: callers can inspect the
// retrieval even when the answer is the fallback sentence.
func (c *Composer) Compose(ctx context.Context, question string, results []vector.Result) (Answer, error) {
	fallback := c.Fallback
	if fallback == "" {
		fallback = DefaultFallback
	}

	prompt := &llm.Prompt{
		SystemPrompt: fmt.Sprintf(systemPromptTemplate, fallback),
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Question: %s\n\nContext:\n%s", question, formatContext(results)),
		}},
	}

	temp := c.Temperature
	ctx, span := observability.StartSpan(ctx, "ask.generate")
	resp, err := c.Generator.Complete(ctx, prompt, &llm.RequestOptions{Temperature: &temp})
	observability.EndSpan(span, err)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return Answer{
		Text:    resp.Content,
		Sources: buildSources(results),
	}, nil
}

// formatContext renders each result as a numbered, source-attributed block.
func formatContext(results []vector.Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		src := r.Metadata["source"]
		if src == "" {
			src = "unknown"
		}
		parts[i] = fmt.Sprintf("[%d] (%s)\n%s", i+1, src, r.Content)
	}
	return strings.Join(parts, "\n\n")
}

// buildSources cites every retrieval result with a bounded preview.
// Truncation counts characters, not bytes, so multi-byte text is never cut
// mid-rune.
func buildSources(results []vector.Result) []Source {
	sources := make([]Source, len(results))
	for i, r := range results {
		src := r.Metadata["source"]
		if src == "" {
			src = "unknown"
		}
		preview := r.Content
		if runes := []rune(preview); len(runes) > previewLen {
			preview = string(runes[:previewLen]) + "..."
		}
		sources[i] = Source{Source: src, Preview: preview}
	}
	return sources
}
