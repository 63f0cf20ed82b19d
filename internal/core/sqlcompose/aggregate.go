package sqlcompose

import (
	"fmt"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// BuildFacetCounts composes the facet aggregation for req: one row per
// (facet_type, facet_value) with the number of distinct products in the
// strategy's candidate population that also satisfy the full facet
// selection, plus that population's total on every row.
func BuildFacetCounts(req domain.SearchRequest, vector []float32, o Options) (Statement, error) {
	o = o.normalize()
	if !req.Strategy.Valid() {
		return Statement{}, domain.WrapError(domain.ErrInvalidInput, "build facet counts",
			fmt.Errorf("unknown strategy %q", req.Strategy))
	}

	args := &Args{}
	facets := CompileFacets(req.Facets, args, "p")
	plan, err := planCandidates(req, vector, args, facets, o)
	if err != nil {
		return Statement{}, err
	}

	ctes := plan.ctes
	source := plan.source
	if req.Strategy == domain.StrategyHybrid {
		ctes = append(ctes, cte(hybridCTE, fmt.Sprintf("SELECT id FROM %s\nUNION\nSELECT id FROM %s\nUNION\nSELECT id FROM %s",
			semanticCTE, fullTextCTE, lexicalCTE)))
		source = hybridCTE
	}

	ctes = append(ctes,
		cte("filtered", fmt.Sprintf("SELECT p.id, p.brand, p.category, %s AS price_range\nFROM %s p\nJOIN %s c ON c.id = p.id%s",
			priceBucketCase("p.retail_price"), o.Table, source, where(facets.SQL))),
		cte("facet_counts", fmt.Sprintf(`SELECT
	CASE WHEN GROUPING(brand) = 0 THEN %[1]s WHEN GROUPING(category) = 0 THEN %[2]s ELSE %[3]s END AS facet_type,
	CASE WHEN GROUPING(brand) = 0 THEN brand WHEN GROUPING(category) = 0 THEN category ELSE price_range END AS facet_value,
	COUNT(DISTINCT id) AS facet_count
FROM filtered
GROUP BY GROUPING SETS ((brand), (category), (price_range))`,
			QuoteString(domain.FacetBrand), QuoteString(domain.FacetCategory), QuoteString(domain.FacetPriceRange))),
	)

	sql := fmt.Sprintf(`%s
SELECT fc.facet_type, fc.facet_value, fc.facet_count, (SELECT COUNT(DISTINCT id) FROM filtered) AS total_count
FROM facet_counts fc
WHERE fc.facet_value IS NOT NULL
ORDER BY
	CASE fc.facet_type WHEN %s THEN 1 WHEN %s THEN 2 ELSE 3 END,
	CASE WHEN fc.facet_type = %s THEN %s END,
	fc.facet_count DESC,
	fc.facet_value`,
		with(ctes),
		QuoteString(domain.FacetBrand), QuoteString(domain.FacetCategory),
		QuoteString(domain.FacetPriceRange), priceBucketOrder("fc.facet_value"))

	stmt := Statement{SQL: sql, Args: args.Values()}
	if err := stmt.Validate(); err != nil {
		return Statement{}, err
	}
	return stmt, nil
}
