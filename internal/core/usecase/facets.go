package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/sqlcompose"
)

// Facets counts products per brand, category and price range within the
// request's candidate population under its full facet selection.
func (uc *SearchUseCase) Facets(ctx context.Context, req domain.SearchRequest) domain.FacetResult {
	started := time.Now()
	req = normalizeRequest(req)

	vector, err := uc.queryVector(ctx, req)
	if err != nil {
		failed := failedSearch(req, err)
		result := domain.FacetResult{Data: []domain.FacetAggregate{}, ErrorDetail: failed.ErrorDetail}
		uc.observeFacets(req, result, started)
		return result
	}

	result := uc.runFacets(ctx, req, vector)
	uc.observeFacets(req, result, started)
	return result
}

func (uc *SearchUseCase) runFacets(ctx context.Context, req domain.SearchRequest, vector []float32) domain.FacetResult {
	result := domain.FacetResult{Data: []domain.FacetAggregate{}}

	stmt, err := sqlcompose.BuildFacetCounts(req, vector, uc.options)
	if err != nil {
		logCompositionFailure(req, err)
		result.ErrorDetail = fmt.Sprintf("compose %s facets: %v", req.Strategy, err)
		return result
	}
	result.Query = stmt.SQL
	result.InterpolatedQuery = stmt.Interpolated()

	rows, err := uc.executor.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		slog.Error("catalog_facets_failed",
			"strategy", req.Strategy,
			"query", stmt.SQL,
			"params", stmt.Args,
			"error", err,
		)
		result.ErrorDetail = fmt.Sprintf("execute %s facets: %v", req.Strategy, err)
		return result
	}

	aggregates, total, err := scanFacetRows(rows)
	if err != nil {
		slog.Error("catalog_facets_scan_failed", "strategy", req.Strategy, "error", err)
		result.ErrorDetail = fmt.Sprintf("read %s facets: %v", req.Strategy, err)
		return result
	}
	result.Data = aggregates
	result.TotalCount = total
	return result
}

func (uc *SearchUseCase) observeFacets(req domain.SearchRequest, result domain.FacetResult, started time.Time) {
	if uc.observer == nil {
		return
	}
	uc.observer.ObserveFacets(string(req.Strategy), result.ErrorDetail != "", time.Since(started))
}

func scanFacetRows(rows []domain.Row) ([]domain.FacetAggregate, int64, error) {
	out := make([]domain.FacetAggregate, 0, len(rows))
	var total int64
	for i, row := range rows {
		facetType, ok := stringField(row, "facet_type")
		if !ok {
			return nil, 0, fmt.Errorf("row %d: missing facet_type", i)
		}
		value, _ := stringField(row, "facet_value")
		count, ok := intField(row, "facet_count")
		if !ok {
			return nil, 0, fmt.Errorf("row %d: missing facet_count", i)
		}
		if i == 0 {
			total, _ = intField(row, "total_count")
		}
		out = append(out, domain.FacetAggregate{FacetType: facetType, FacetValue: value, Count: count})
	}
	return out, total, nil
}
