package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/ports"
	"github.com/kirillkom/catalog-search/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, embedModel string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.ResilienceExecutor,
	}
}

// Embedder computes text query vectors with an Ollama embedding model. Ollama
// has no image model contract, so image embeddings go to the fallback
// embedder when one is configured.
type Embedder struct {
	client   *Client
	fallback ports.Embedder
}

func NewEmbedder(client *Client, fallback ports.Embedder) *Embedder {
	return &Embedder{client: client, fallback: fallback}
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "embed", "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 || len(response.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

func (e *Embedder) EmbedImage(ctx context.Context, uri string) ([]float32, error) {
	if e.fallback == nil {
		return nil, domain.WrapError(domain.ErrUnsupported, "embed image", errors.New("ollama embedder has no image model"))
	}
	return e.fallback.EmbedImage(ctx, uri)
}

func (c *Client) call(ctx context.Context, operation, path string, payload any, out any) error {
	post := func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}
	if c.executor == nil {
		return c.embedError(post(ctx))
	}
	return c.embedError(c.executor.Execute(ctx, "ollama."+operation, post, classifyOllamaError))
}
