package sqlcompose

import (
	"fmt"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// SearchStatement is a composed search plus the ordering of its result set
// expressed over output column names, so wrappers can restore it.
type SearchStatement struct {
	Statement
	OrderBy string
}

func displayColumns(alias string) string {
	return fmt.Sprintf("%[1]s.id, %[1]s.name, %[1]s.product_image_uri, %[1]s.brand, %[1]s.product_description, "+
		"%[1]s.category, %[1]s.department, %[1]s.cost::float8 AS cost, %[1]s.retail_price::float8 AS retail_price, %[1]s.sku",
		alias)
}

// BuildSearch composes the result-page statement for req. vector is the query
// embedding for semantic, hybrid and image strategies and ignored otherwise.
// Facet parameters are bound first, strategy parameters after them.
func BuildSearch(req domain.SearchRequest, vector []float32, o Options) (SearchStatement, error) {
	o = o.normalize()
	if !req.Strategy.Valid() {
		return SearchStatement{}, domain.WrapError(domain.ErrInvalidInput, "build search",
			fmt.Errorf("unknown strategy %q", req.Strategy))
	}

	args := &Args{}
	facets := CompileFacets(req.Facets, args, "p")
	plan, err := planCandidates(req, vector, args, facets, o)
	if err != nil {
		return SearchStatement{}, err
	}

	outerFilter := where(facets.SQL)
	if plan.facetsInside {
		outerFilter = ""
	}

	var sql, orderBy string
	switch req.Strategy {
	case domain.StrategyLexical:
		sql = fmt.Sprintf(`%s
SELECT %s, c.sql_rank, %s AS retrieval_method, COUNT(*) OVER () AS total_count
FROM %s p
JOIN %s c ON c.id = p.id%s
ORDER BY p.name, p.id
LIMIT %d`, with(plan.ctes), displayColumns("p"), QuoteString(string(domain.SignalLexical)),
			o.Table, plan.source, outerFilter, o.PageSize)
		orderBy = "base.name, base.id"

	case domain.StrategyFullText:
		sql = fmt.Sprintf(`%s
SELECT %s, c.fts_rank_score, c.fts_rank, %s AS retrieval_method, COUNT(*) OVER () AS total_count
FROM %s p
JOIN %s c ON c.id = p.id%s
ORDER BY c.fts_rank_score DESC, p.id
LIMIT %d`, with(plan.ctes), displayColumns("p"), QuoteString(string(domain.SignalFullText)),
			o.Table, plan.source, outerFilter, o.PageSize)
		orderBy = "base.fts_rank_score DESC, base.id"

	case domain.StrategySemantic, domain.StrategyImage:
		sql = fmt.Sprintf(`%s
SELECT %s, c.distance, c.vector_rank, %s AS retrieval_method, COUNT(*) OVER () AS total_count
FROM %s p
JOIN %s c ON c.id = p.id%s
ORDER BY c.distance, p.id
LIMIT %d`, with(plan.ctes), displayColumns("p"), QuoteString(string(domain.SignalVector)),
			o.Table, plan.source, outerFilter, o.PageSize)
		orderBy = "base.distance, base.id"

	case domain.StrategyHybrid:
		ctes := append(plan.ctes, fusedCandidates(o.Fusion))
		sql = fmt.Sprintf(`%s
SELECT %s, fused.rrf_score, fused.retrieval_method, COUNT(*) OVER () AS total_count
FROM fused
JOIN %s p ON p.id = fused.id
ORDER BY fused.rrf_score DESC, p.id ASC
LIMIT %d`, with(ctes), displayColumns("p"), o.Table, o.HybridPageSize)
		orderBy = "base.rrf_score DESC, base.id ASC"
	}

	stmt := SearchStatement{Statement: Statement{SQL: sql, Args: args.Values()}, OrderBy: orderBy}
	if err := stmt.Validate(); err != nil {
		return SearchStatement{}, err
	}
	return stmt, nil
}

// fusedCandidates merges the three signal lists by product id. An id missing
// from a list contributes nothing for that signal.
func fusedCandidates(w FusionWeights) string {
	body := fmt.Sprintf(`SELECT
	COALESCE(v.id, f.id, l.id) AS id,
	(%s + %s + %s)::float8 AS rrf_score,
	CONCAT_WS('+',
		CASE WHEN v.id IS NOT NULL THEN %s END,
		CASE WHEN f.id IS NOT NULL THEN %s END,
		CASE WHEN l.id IS NOT NULL THEN %s END
	) AS retrieval_method
FROM %s v
FULL OUTER JOIN %s f ON f.id = v.id
FULL OUTER JOIN %s l ON l.id = COALESCE(v.id, f.id)`,
		w.term(domain.SignalVector, "v.vector_rank"),
		w.term(domain.SignalFullText, "f.fts_rank"),
		w.term(domain.SignalLexical, "l.sql_rank"),
		QuoteString(string(domain.SignalVector)),
		QuoteString(string(domain.SignalFullText)),
		QuoteString(string(domain.SignalLexical)),
		semanticCTE, fullTextCTE, lexicalCTE)
	return cte("fused", body)
}
