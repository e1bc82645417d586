package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ragbot/internal/config"
	"ragbot/internal/rag"
)

type stubService struct {
	answer rag.Answer
	err    error
	gotQ   string
}

func (s *stubService) Answer(ctx context.Context, question string) (rag.Answer, error) {
	s.gotQ = question
	if s.err != nil {
		return rag.Answer{}, s.err
	}
	return s.answer, nil
}

func newTestServer(svc *stubService) *Server {
	return New(svc, nil, config.ServerConfig{Addr: ":0", TopK: 4})
}

func postAsk(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAsk_HappyPath(t *testing.T) {
	svc := &stubService{answer: rag.Answer{
		Text:    "blue",
		Sources: []rag.Source{{Source: "sky.txt", Preview: "The sky is blue."}},
	}}
	w := postAsk(t, newTestServer(svc).Handler(), `{"question":"what color is the sky?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if svc.gotQ != "what color is the sky?" {
		t.Errorf("question not forwarded: %q", svc.gotQ)
	}

	var resp struct {
		Answer  string `json:"answer"`
		Sources []struct {
			Source  string `json:"source"`
			Preview string `json:"preview"`
		} `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Answer != "blue" {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Source != "sky.txt" {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing_field", `{}`},
		{"blank", `{"question":"   "}`},
		{"bad_json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postAsk(t, newTestServer(&stubService{}).Handler(), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestAsk_GenerationFailureIsRequestScoped(t *testing.T) {
	failing := &stubService{err: errors.New("generation failed: 429")}
	h := newTestServer(failing).Handler()

	w := postAsk(t, h, `{"question":"q"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}

	// The service keeps serving subsequent requests.
	okSvc := &stubService{answer: rag.Answer{Text: "fine", Sources: []rag.Source{}}}
	w = postAsk(t, newTestServer(okSvc).Handler(), `{"question":"q"}`)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 after unrelated failure, got %d", w.Code)
	}
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	w := httptest.NewRecorder()
	newTestServer(&stubService{}).Handler().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestRoot_Liveness(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	newTestServer(&stubService{}).Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ragbot up") {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestHealthz_NoRepo(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	newTestServer(&stubService{}).Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCORS_DefaultAllowsAnyOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:5500")
	w := httptest.NewRecorder()
	newTestServer(&stubService{}).Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard origin, got %q", got)
	}
}

func TestCORS_ConfiguredOriginList(t *testing.T) {
	srv := New(&stubService{}, nil, config.ServerConfig{
		CORSOrigins: []string{"http://allowed.example"},
	})
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://allowed.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://allowed.example" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://other.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for unlisted origin, got %q", got)
	}
}
