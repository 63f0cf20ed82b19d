package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/infrastructure/resilience"
)

func TestEmbedTextSendsModelAndInput(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL+"/", "nomic-embed-text", Options{}), nil)
	vector, err := embedder.EmbedText(context.Background(), "blue jeans")
	if err != nil {
		t.Fatalf("EmbedText() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("unexpected vector %v", vector)
	}
	if payload["model"] != "nomic-embed-text" {
		t.Fatalf("unexpected model %v", payload["model"])
	}
}

func TestEmbedTextIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "embed", Options{}), nil)
	_, err := embedder.EmbedText(context.Background(), "hello")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be temporary, got %v", err)
	}
}

func TestEmbedTextRetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1]]}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	embedder := NewEmbedder(New(server.URL, "embed", Options{ResilienceExecutor: executor}), nil)
	if _, err := embedder.EmbedText(context.Background(), "x"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestEmbedTextDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, RetryInitialBackoff: time.Millisecond})
	embedder := NewEmbedder(New(server.URL, "embed", Options{ResilienceExecutor: executor}), nil)
	_, err := embedder.EmbedText(context.Background(), "x")
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single call, got %d", calls.Load())
	}
}

type imageEmbedderFake struct{ uri string }

func (f *imageEmbedderFake) EmbedText(context.Context, string) ([]float32, error) { return nil, nil }
func (f *imageEmbedderFake) EmbedImage(_ context.Context, uri string) ([]float32, error) {
	f.uri = uri
	return []float32{9}, nil
}

func TestEmbedImageUsesFallback(t *testing.T) {
	embedder := NewEmbedder(New("http://unused", "embed", Options{}), nil)
	if _, err := embedder.EmbedImage(context.Background(), "gs://a.png"); !domain.IsKind(err, domain.ErrUnsupported) {
		t.Fatalf("expected unsupported without fallback, got %v", err)
	}

	fallback := &imageEmbedderFake{}
	embedder = NewEmbedder(New("http://unused", "embed", Options{}), fallback)
	vector, err := embedder.EmbedImage(context.Background(), "gs://a.png")
	if err != nil || len(vector) != 1 || fallback.uri != "gs://a.png" {
		t.Fatalf("unexpected fallback result vector=%v err=%v uri=%s", vector, err, fallback.uri)
	}
}

func TestEmbedTextMissingModelIsUnsupported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model \"nomic-embed-text\" not found, try pulling it first"}`, http.StatusNotFound)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.QueryEmbeddingConfig())
	embedder := NewEmbedder(New(server.URL, "nomic-embed-text", Options{ResilienceExecutor: executor}), nil)
	_, err := embedder.EmbedText(context.Background(), "denim jacket")
	if !domain.IsKind(err, domain.ErrUnsupported) {
		t.Fatalf("expected unsupported for missing model, got %v", err)
	}
	if got := executor.BreakerState("ollama.embed"); got != "closed" {
		t.Fatalf("a missing model must not trip the breaker, got %s", got)
	}
}
