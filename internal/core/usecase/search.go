package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/ports"
	"github.com/kirillkom/catalog-search/internal/core/sqlcompose"
)

type SearchUseCase struct {
	executor  ports.QueryExecutor
	embedder  ports.Embedder
	publisher ports.SearchEventPublisher
	observer  ports.SearchObserver
	options   sqlcompose.Options
}

// NewSearchUseCase wires the catalog searcher. publisher and observer may be
// nil.
func NewSearchUseCase(
	executor ports.QueryExecutor,
	embedder ports.Embedder,
	publisher ports.SearchEventPublisher,
	observer ports.SearchObserver,
	options sqlcompose.Options,
) *SearchUseCase {
	return &SearchUseCase{
		executor:  executor,
		embedder:  embedder,
		publisher: publisher,
		observer:  observer,
		options:   options,
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.SearchRequest) domain.RetrievalResult {
	started := time.Now()
	req = normalizeRequest(req)

	vector, err := uc.queryVector(ctx, req)
	if err != nil {
		result := failedSearch(req, err)
		uc.finishSearch(ctx, req, result, started)
		return result
	}

	result := uc.runSearch(ctx, req, vector)
	uc.finishSearch(ctx, req, result, started)
	return result
}

// SearchWithFacets returns the result page together with facet counts for the
// same request. Both statements share one query embedding and run
// concurrently; a facet failure leaves the page intact.
func (uc *SearchUseCase) SearchWithFacets(ctx context.Context, req domain.SearchRequest) domain.RetrievalResult {
	started := time.Now()
	req = normalizeRequest(req)

	vector, err := uc.queryVector(ctx, req)
	if err != nil {
		result := failedSearch(req, err)
		uc.finishSearch(ctx, req, result, started)
		return result
	}

	var (
		result domain.RetrievalResult
		facets domain.FacetResult
		g      errgroup.Group
	)
	g.Go(func() error {
		result = uc.runSearch(ctx, req, vector)
		return nil
	})
	g.Go(func() error {
		facetStarted := time.Now()
		facets = uc.runFacets(ctx, req, vector)
		uc.observeFacets(req, facets, facetStarted)
		return nil
	})
	_ = g.Wait()

	if facets.ErrorDetail != "" {
		slog.Warn("catalog_facets_unavailable", "strategy", req.Strategy, "error", facets.ErrorDetail)
	} else {
		result.Facets = domain.GroupFacets(facets.Data)
	}

	uc.finishSearch(ctx, req, result, started)
	return result
}

func (uc *SearchUseCase) runSearch(ctx context.Context, req domain.SearchRequest, vector []float32) domain.RetrievalResult {
	result := domain.RetrievalResult{Data: []domain.Row{}, SearchType: req.Strategy.SearchType()}

	stmt, err := sqlcompose.BuildSearch(req, vector, uc.options)
	if err != nil {
		logCompositionFailure(req, err)
		result.ErrorDetail = fmt.Sprintf("compose %s search: %v", req.Strategy, err)
		return result
	}
	stmt, err = sqlcompose.WrapPostFilter(stmt, req.AIFilter)
	if err != nil {
		logCompositionFailure(req, err)
		result.ErrorDetail = fmt.Sprintf("compose post filter: %v", err)
		return result
	}

	result.Query = stmt.SQL
	result.InterpolatedQuery = stmt.Interpolated()

	rows, err := uc.executor.Query(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		slog.Error("catalog_search_failed",
			"strategy", req.Strategy,
			"query", stmt.SQL,
			"params", stmt.Args,
			"error", err,
		)
		result.ErrorDetail = fmt.Sprintf("execute %s search: %v", req.Strategy, err)
		return result
	}

	data, total, err := NormalizeRows(rows)
	if err != nil {
		slog.Error("catalog_search_normalize_failed", "strategy", req.Strategy, "query", stmt.SQL, "error", err)
		result.ErrorDetail = fmt.Sprintf("normalize %s results: %v", req.Strategy, err)
		return result
	}
	result.Data = data
	result.TotalCount = total
	return result
}

// queryVector embeds the request input for strategies that compare vectors and
// returns nil for the rest.
func (uc *SearchUseCase) queryVector(ctx context.Context, req domain.SearchRequest) ([]float32, error) {
	if !req.Strategy.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("unknown strategy %q", req.Strategy))
	}

	switch {
	case req.Strategy == domain.StrategyImage:
		uri := strings.TrimSpace(req.ImageURI)
		if uri == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "embed image", errors.New("image uri is required"))
		}
		vector, err := uc.embedder.EmbedImage(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("embed image: %w", err)
		}
		return vector, nil

	case req.Strategy.NeedsTextEmbedding():
		term := req.Term
		if req.Strategy == domain.StrategyHybrid {
			term = sqlcompose.SanitizeVectorTerm(term)
		}
		if term == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "embed query", errors.New("search term is required"))
		}
		vector, err := uc.embedder.EmbedText(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return vector, nil
	}
	return nil, nil
}

func (uc *SearchUseCase) finishSearch(ctx context.Context, req domain.SearchRequest, result domain.RetrievalResult, started time.Time) {
	elapsed := time.Since(started)
	failed := result.ErrorDetail != ""
	if uc.observer != nil {
		uc.observer.ObserveSearch(string(req.Strategy), len(result.Data), failed, elapsed)
	}
	if uc.publisher == nil {
		return
	}

	event := domain.SearchEvent{
		ID:         uuid.NewString(),
		Strategy:   req.Strategy,
		Term:       req.Term,
		ImageURI:   req.ImageURI,
		Facets:     req.Facets,
		AIFilter:   req.AIFilter != "",
		Rows:       len(result.Data),
		TotalCount: result.TotalCount,
		Failed:     failed,
		DurationMS: float64(elapsed.Microseconds()) / 1000,
		At:         time.Now().UTC(),
	}
	if err := uc.publisher.PublishSearchExecuted(ctx, event); err != nil {
		slog.Warn("search_event_publish_failed", "event_id", event.ID, "error", err)
	}
}

func failedSearch(req domain.SearchRequest, err error) domain.RetrievalResult {
	if domain.IsKind(err, domain.ErrInvalidInput) {
		slog.Warn("catalog_search_rejected", "strategy", req.Strategy, "error", err)
	} else {
		slog.Error("catalog_search_failed", "strategy", req.Strategy, "stage", "embedding", "error", err)
	}
	return domain.RetrievalResult{
		Data:        []domain.Row{},
		ErrorDetail: err.Error(),
		SearchType:  req.Strategy.SearchType(),
	}
}

func logCompositionFailure(req domain.SearchRequest, err error) {
	if domain.IsKind(err, domain.ErrInvariant) {
		slog.Error("query_composition_invariant_violated", "strategy", req.Strategy, "error", err)
		return
	}
	slog.Warn("query_composition_failed", "strategy", req.Strategy, "error", err)
}

// normalizeRequest drops unsupported facet dimensions with a warning and trims
// free-text inputs.
func normalizeRequest(req domain.SearchRequest) domain.SearchRequest {
	facets, dropped := req.Facets.Normalize()
	if len(dropped) > 0 {
		slog.Warn("unsupported_facet_dimensions_ignored", "dimensions", dropped)
	}
	req.Facets = facets
	req.Term = strings.TrimSpace(req.Term)
	req.ImageURI = strings.TrimSpace(req.ImageURI)
	req.AIFilter = strings.TrimSpace(req.AIFilter)
	return req
}
