package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/sqlcompose"
)

func TestFacetsReturnsAggregatesAndTotal(t *testing.T) {
	executor := &searchExecutorFake{facets: []domain.Row{
		{{Name: "facet_type", Value: "brand"}, {Name: "facet_value", Value: []byte("Levi's")}, {Name: "facet_count", Value: int64(3)}, {Name: "total_count", Value: int64(5)}},
		{{Name: "facet_type", Value: "category"}, {Name: "facet_value", Value: "Jeans"}, {Name: "facet_count", Value: int64(5)}, {Name: "total_count", Value: int64(5)}},
	}}
	uc := NewSearchUseCase(executor, &searchEmbedderFake{}, nil, nil, sqlcompose.DefaultOptions())

	result := uc.Facets(context.Background(), domain.SearchRequest{
		Strategy: domain.StrategyFullText,
		Term:     "jeans",
		Facets:   domain.SelectedFacets{domain.FacetBrand: {"Levi's"}},
	})
	if result.ErrorDetail != "" {
		t.Fatalf("unexpected error detail %s", result.ErrorDetail)
	}
	if result.TotalCount != 5 || len(result.Data) != 2 {
		t.Fatalf("unexpected result %#v", result)
	}
	if result.Data[0].FacetValue != "Levi's" || result.Data[0].Count != 3 {
		t.Fatalf("unexpected first aggregate %#v", result.Data[0])
	}
	if !strings.Contains(result.InterpolatedQuery, "ARRAY['Levi''s']") {
		t.Fatalf("expected interpolated facet array:\n%s", result.InterpolatedQuery)
	}
}

func TestFacetsExecutionFailure(t *testing.T) {
	executor := &searchExecutorFake{facetErr: errors.New("canceling statement")}
	uc := NewSearchUseCase(executor, &searchEmbedderFake{}, nil, nil, sqlcompose.DefaultOptions())

	result := uc.Facets(context.Background(), domain.SearchRequest{Strategy: domain.StrategyLexical, Term: "x"})
	if result.ErrorDetail == "" || result.Data == nil || len(result.Data) != 0 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestExplainRejectsNonSelect(t *testing.T) {
	executor := &searchExecutorFake{}
	uc := NewSearchUseCase(executor, &searchEmbedderFake{}, nil, nil, sqlcompose.DefaultOptions())

	for _, query := range []string{"", "DELETE FROM products", "SELECT 1; DROP TABLE products"} {
		result := uc.Explain(context.Background(), query)
		if result.ErrorDetail == "" {
			t.Fatalf("expected rejection for %q", query)
		}
	}
	if len(executor.explains) != 0 {
		t.Fatalf("rejected queries must not reach the executor")
	}

	result := uc.Explain(context.Background(), "SELECT id FROM products WHERE brand = ANY($1::text[])")
	if !strings.Contains(result.ErrorDetail, "interpolatedQuery") {
		t.Fatalf("expected parameterized query to be rejected, got %#v", result)
	}
	if len(executor.explains) != 0 {
		t.Fatalf("parameterized queries must not reach the executor")
	}

	result = uc.Explain(context.Background(), "  select * from products;  ")
	if result.ErrorDetail != "" || len(result.Data) != 1 {
		t.Fatalf("unexpected explain result %#v", result)
	}
	if executor.explains[0] != "select * from products" {
		t.Fatalf("unexpected explained query %q", executor.explains[0])
	}
}
