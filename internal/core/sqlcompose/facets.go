package sqlcompose

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// FacetPredicate is the compiled form of a facet selection.
type FacetPredicate struct {
	SQL    string
	Params []any
	Next   int
}

func (p FacetPredicate) Empty() bool { return p.SQL == "" }

// CompileFacets compiles facets into a predicate over columns of alias,
// binding through args. brand and category bind one text[] parameter each;
// price ranges are fixed intervals rendered as literal text and never bind.
// Dimensions are processed brand, category, price_range so parameter
// numbering is reproducible.
func CompileFacets(facets domain.SelectedFacets, args *Args, alias string) FacetPredicate {
	start := args.Len()
	var clauses []string

	for _, dim := range []string{domain.FacetBrand, domain.FacetCategory} {
		values := facets.Values(dim)
		if len(values) == 0 {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s = ANY(%s::text[])", column(alias, dim), args.Bind(values)))
	}

	if labels := facets.Values(domain.FacetPriceRange); len(labels) > 0 {
		ranges := make([]string, 0, len(labels))
		for _, label := range labels {
			bucket, ok := domain.LookupPriceBucket(label)
			if !ok {
				slog.Warn("unknown_price_range_facet", "label", label)
				ranges = append(ranges, "FALSE")
				continue
			}
			ranges = append(ranges, priceCondition(column(alias, "retail_price"), bucket))
		}
		clauses = append(clauses, "("+strings.Join(ranges, " OR ")+")")
	}

	values := args.Values()
	return FacetPredicate{
		SQL:    strings.Join(clauses, " AND "),
		Params: values[start:],
		Next:   args.Next(),
	}
}

func column(alias, name string) string {
	if alias == "" {
		return name
	}
	return alias + "." + name
}

func priceCondition(col string, b domain.PriceBucket) string {
	if !b.Bounded() {
		return fmt.Sprintf("(%s >= %s)", col, formatBound(b.Min))
	}
	return fmt.Sprintf("(%s >= %s AND %s < %s)", col, formatBound(b.Min), col, formatBound(b.Max))
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// priceBucketCase labels col with its price_range bucket, NULL when none fits.
func priceBucketCase(col string) string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, bucket := range domain.PriceBuckets {
		fmt.Fprintf(&b, " WHEN %s THEN %s", priceCondition(col, bucket), QuoteString(bucket.Label))
	}
	b.WriteString(" END")
	return b.String()
}

// priceBucketOrder maps a bucket label column to the bucket's lower bound.
func priceBucketOrder(col string) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(col)
	for _, bucket := range domain.PriceBuckets {
		fmt.Fprintf(&b, " WHEN %s THEN %s", QuoteString(bucket.Label), formatBound(bucket.Min))
	}
	b.WriteString(" END")
	return b.String()
}

func and(clauses ...string) string {
	var parts []string
	for _, c := range clauses {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " AND ")
}

func where(predicate string) string {
	if predicate == "" {
		return ""
	}
	return "\nWHERE " + predicate
}
