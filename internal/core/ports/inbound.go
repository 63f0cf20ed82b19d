package ports

import (
	"context"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// CatalogSearcher is the inbound contract for catalog retrieval. Methods
// never fail at the Go level: errors surface in the result's ErrorDetail.
type CatalogSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) domain.RetrievalResult
	SearchWithFacets(ctx context.Context, req domain.SearchRequest) domain.RetrievalResult
	Facets(ctx context.Context, req domain.SearchRequest) domain.FacetResult
	Explain(ctx context.Context, query string) domain.ExplainResult
}
