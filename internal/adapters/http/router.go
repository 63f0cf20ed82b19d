package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/catalog-search/internal/config"
	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/ports"
	"github.com/kirillkom/catalog-search/internal/observability/metrics"
)

// HealthChecker reports whether the catalog database is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Router struct {
	cfg      config.Config
	searcher ports.CatalogSearcher
	health   HealthChecker
	metrics  *metrics.HTTPServerMetrics
}

// NewRouter builds the HTTP surface. health and httpMetrics may be nil.
func NewRouter(
	cfg config.Config,
	searcher ports.CatalogSearcher,
	health HealthChecker,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:      cfg,
		searcher: searcher,
		health:   health,
		metrics:  httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /api/products/search", rt.search(domain.StrategyLexical, "term"))
	mux.HandleFunc("GET /api/products/fulltext-search", rt.search(domain.StrategyFullText, "term"))
	mux.HandleFunc("GET /api/products/semantic-search", rt.search(domain.StrategySemantic, "prompt", "term"))
	mux.HandleFunc("GET /api/products/hybrid-search", rt.search(domain.StrategyHybrid, "term"))
	mux.HandleFunc("GET /api/products/image-search", rt.search(domain.StrategyImage, "searchUri", "uri"))
	mux.HandleFunc("GET /api/products/facets", rt.facets)
	mux.HandleFunc("GET /api/products/explain-query", rt.explain)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rt.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// search serves one strategy. The primary input is read from the first
// non-empty parameter in inputParams. The lexical route also honours an
// explicit searchType so clients can drive every strategy through it.
// Search failures are reported in errorDetail with status 200.
func (rt *Router) search(strategy domain.Strategy, inputParams ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		effective := strategy
		if raw := strings.TrimSpace(query.Get("searchType")); raw != "" && strategy == domain.StrategyLexical {
			parsed, err := domain.ParseStrategy(raw)
			if err != nil {
				writeError(w, err)
				return
			}
			effective = parsed
		}

		req := domain.SearchRequest{
			Strategy: effective,
			Facets:   facetsFromQuery(r.Context(), query),
			AIFilter: query.Get("aiFilter"),
		}
		input := firstParam(query, inputParams...)
		if effective == domain.StrategyImage {
			req.ImageURI = firstParam(query, append(inputParams, "searchUri", "uri")...)
		} else {
			req.Term = input
		}

		var result domain.RetrievalResult
		if boolParam(query, "includeFacets") {
			result = rt.searcher.SearchWithFacets(r.Context(), req)
		} else {
			result = rt.searcher.Search(r.Context(), req)
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (rt *Router) facets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	strategy, err := domain.ParseStrategy(query.Get("searchType"))
	if err != nil {
		writeError(w, err)
		return
	}

	req := domain.SearchRequest{
		Strategy: strategy,
		Term:     firstParam(query, "term", "prompt"),
		ImageURI: firstParam(query, "searchUri", "uri"),
		Facets:   facetsFromQuery(r.Context(), query),
	}
	writeJSON(w, http.StatusOK, rt.searcher.Facets(r.Context(), req))
}

func (rt *Router) explain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.searcher.Explain(r.Context(), r.URL.Query().Get("queryString")))
}

// facetsFromQuery decodes the facets parameter. A malformed selection is
// logged and treated as no selection.
func facetsFromQuery(ctx context.Context, query url.Values) domain.SelectedFacets {
	raw := query.Get("facets")
	facets, err := domain.ParseSelectedFacets(raw)
	if err != nil {
		slog.Warn("malformed_facets_ignored",
			"request_id", requestIDFromContext(ctx),
			"facets", raw,
			"error", err,
		)
		return domain.SelectedFacets{}
	}
	return facets
}

func firstParam(query url.Values, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(query.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func boolParam(query url.Values, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(name)))
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
