package domain

import (
	"encoding/json"
	"math"
	"strings"
)

const (
	FacetBrand      = "brand"
	FacetCategory   = "category"
	FacetPriceRange = "price_range"
)

// FacetDimensions is the fixed processing order for facet dimensions.
var FacetDimensions = []string{FacetBrand, FacetCategory, FacetPriceRange}

// SelectedFacets maps a facet dimension to the values selected for it.
type SelectedFacets map[string][]string

// ParseSelectedFacets decodes the JSON form sent by clients, e.g.
// {"brand":["Coach"],"price_range":["$0 - $49.99"]}. Empty input is an empty
// selection.
func ParseSelectedFacets(raw string) (SelectedFacets, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return SelectedFacets{}, nil
	}
	var facets SelectedFacets
	if err := json.Unmarshal([]byte(raw), &facets); err != nil {
		return SelectedFacets{}, WrapError(ErrInvalidInput, "parse facets", err)
	}
	if facets == nil {
		facets = SelectedFacets{}
	}
	return facets, nil
}

// Values returns the non-blank, de-duplicated values selected for dim in
// their original order.
func (f SelectedFacets) Values(dim string) []string {
	raw := f[dim]
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Normalize drops dimensions other than brand, category and price_range and
// returns their names so the caller can report them.
func (f SelectedFacets) Normalize() (SelectedFacets, []string) {
	out := make(SelectedFacets, len(f))
	var dropped []string
	for dim, values := range f {
		switch dim {
		case FacetBrand, FacetCategory, FacetPriceRange:
			if v := f.Values(dim); len(v) > 0 {
				out[dim] = v
			}
		default:
			if len(values) > 0 {
				dropped = append(dropped, dim)
			}
		}
	}
	return out, dropped
}

func (f SelectedFacets) Empty() bool {
	for _, dim := range FacetDimensions {
		if len(f.Values(dim)) > 0 {
			return false
		}
	}
	return true
}

// PriceBucket is a half-open retail price interval [Min, Max). A Max of
// +Inf leaves the bucket unbounded above.
type PriceBucket struct {
	Label string
	Min   float64
	Max   float64
}

func (b PriceBucket) Bounded() bool {
	return !math.IsInf(b.Max, 1)
}

// PriceBuckets is the complete set of price_range facet values, ordered by
// lower bound.
var PriceBuckets = []PriceBucket{
	{Label: "$0 - $49.99", Min: 0, Max: 50},
	{Label: "$50 - $99.99", Min: 50, Max: 100},
	{Label: "$100 - $249.99", Min: 100, Max: 250},
	{Label: "$250 - $499.99", Min: 250, Max: 500},
	{Label: "$500+", Min: 500, Max: math.Inf(1)},
}

func LookupPriceBucket(label string) (PriceBucket, bool) {
	label = strings.TrimSpace(label)
	for _, b := range PriceBuckets {
		if b.Label == label {
			return b, true
		}
	}
	return PriceBucket{}, false
}

// FacetAggregate is one grouped count produced by the facet aggregator.
type FacetAggregate struct {
	FacetType  string `json:"facetType"`
	FacetValue string `json:"facetValue"`
	Count      int64  `json:"count"`
}

type FacetValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

type FacetGroup struct {
	Type   string            `json:"type"`
	Values []FacetValueCount `json:"values"`
}

// GroupFacets folds aggregate rows into per-dimension groups, keeping the
// row order inside each group.
func GroupFacets(aggregates []FacetAggregate) []FacetGroup {
	groups := make([]FacetGroup, 0, len(FacetDimensions))
	index := make(map[string]int, len(FacetDimensions))
	for _, agg := range aggregates {
		i, ok := index[agg.FacetType]
		if !ok {
			i = len(groups)
			index[agg.FacetType] = i
			groups = append(groups, FacetGroup{Type: agg.FacetType})
		}
		groups[i].Values = append(groups[i].Values, FacetValueCount{Value: agg.FacetValue, Count: agg.Count})
	}
	return groups
}

// FacetResult is the response of a facet aggregation request.
type FacetResult struct {
	Query             string           `json:"query,omitempty"`
	InterpolatedQuery string           `json:"interpolatedQuery,omitempty"`
	Data              []FacetAggregate `json:"data"`
	TotalCount        int64            `json:"totalCount"`
	ErrorDetail       string           `json:"errorDetail,omitempty"`
}
