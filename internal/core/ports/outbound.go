package ports

import (
	"context"
	"time"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// QueryExecutor runs composed statements against the data engine.
type QueryExecutor interface {
	Query(ctx context.Context, query string, args ...any) ([]domain.Row, error)
	Explain(ctx context.Context, query string) ([]domain.Row, error)
}

// Embedder builds query vectors for text and image inputs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, uri string) ([]float32, error)
}

// SearchEventPublisher ships search events to analytics consumers.
type SearchEventPublisher interface {
	PublishSearchExecuted(ctx context.Context, event domain.SearchEvent) error
}

// SearchObserver records search outcomes.
type SearchObserver interface {
	ObserveSearch(strategy string, rows int, failed bool, duration time.Duration)
	ObserveFacets(strategy string, failed bool, duration time.Duration)
}
