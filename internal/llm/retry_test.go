package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockProvider struct {
	name      string
	errs      []error
	vectors   [][]float32
	embeds    int
	completes int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	m.completes++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return &Response{Content: "ok"}, nil
}

func (m *mockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.embeds++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	return m.vectors, nil
}

func fastRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Timeout:    time.Second,
	}
}

func TestEmbedRetry_SucceedsFirstTry(t *testing.T) {
	inner := &mockProvider{name: "test", vectors: [][]float32{{1, 2}}}
	p := WithEmbedRetry(inner, fastRetryConfig())

	vecs, err := p.Embed(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vecs))
	}
	if inner.embeds != 1 {
		t.Errorf("expected 1 call, got %d", inner.embeds)
	}
}

func TestEmbedRetry_RetriesTransientErrors(t *testing.T) {
	inner := &mockProvider{
		name:    "test",
		errs:    []error{errors.New("500 Internal Server Error"), errors.New("429 Too Many Requests")},
		vectors: [][]float32{{1}},
	}
	p := WithEmbedRetry(inner, fastRetryConfig())

	if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embeds != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", inner.embeds)
	}
}

func TestEmbedRetry_StopsOnNonRetryable(t *testing.T) {
	inner := &mockProvider{
		name: "test",
		errs: []error{errors.New("401 Unauthorized")},
	}
	p := WithEmbedRetry(inner, fastRetryConfig())

	if _, err := p.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
	if inner.embeds != 1 {
		t.Errorf("expected 1 call, got %d", inner.embeds)
	}
}

func TestEmbedRetry_ExhaustsRetries(t *testing.T) {
	inner := &mockProvider{
		name: "test",
		errs: []error{
			errors.New("503"), errors.New("503"), errors.New("503"), errors.New("503"),
		},
	}
	p := WithEmbedRetry(inner, fastRetryConfig())

	if _, err := p.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if inner.embeds != 4 {
		t.Errorf("expected 4 calls, got %d", inner.embeds)
	}
}

func TestEmbedRetry_CompleteIsNeverRetried(t *testing.T) {
	inner := &mockProvider{
		name: "test",
		errs: []error{errors.New("503 Service Unavailable")},
	}
	p := WithEmbedRetry(inner, fastRetryConfig())

	if _, err := p.Complete(context.Background(), &Prompt{}, nil); err == nil {
		t.Fatal("expected generation error to surface")
	}
	if inner.completes != 1 {
		t.Errorf("expected exactly 1 completion call, got %d", inner.completes)
	}
}

func TestFactory_UnknownProvider(t *testing.T) {
	f := NewFactory()
	if _, err := f.Create(ProviderConfig{Provider: "mystery"}); err == nil {
		t.Fatal("expected error for unregistered provider")
	}
}

func TestFactory_NoneProvider(t *testing.T) {
	f := NewFactory()
	p, err := f.Create(ProviderConfig{Provider: "none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Error("expected nil provider for 'none'")
	}
}
