package sqlcompose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

const (
	lexicalCTE     = "lexical_candidates"
	fullTextCTE    = "fulltext_candidates"
	semanticCTE    = "semantic_candidates"
	imageCTE       = "image_candidates"
	hybridCTE      = "hybrid_candidates"
	queryVectorCTE = "query_vector"
	imageVectorCTE = "image_vector"
)

var lexicalColumns = []string{"name", "sku", "category", "brand", "department", "product_description"}

// LexicalPattern collapses whitespace and joins the words of term with the
// ILIKE wildcard, so "coach  purse" becomes "%coach%purse%".
func LexicalPattern(term string) string {
	return "%" + strings.Join(strings.Fields(term), "%") + "%"
}

// SanitizeVectorTerm prepares free text for embedding inside hybrid search:
// whitespace collapsed, quotes and dashes removed.
func SanitizeVectorTerm(term string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\'', '"', '-':
			return -1
		}
		return r
	}, term)
	return strings.Join(strings.Fields(cleaned), " ")
}

type vectorSource struct {
	vectorCTE     string
	candidatesCTE string
	column        string
}

var (
	textVectors  = vectorSource{vectorCTE: queryVectorCTE, candidatesCTE: semanticCTE, column: "embedding"}
	imageVectors = vectorSource{vectorCTE: imageVectorCTE, candidatesCTE: imageCTE, column: "product_image_embedding"}
)

// candidatePlan is the set of CTEs a strategy needs and the CTE that exposes
// the candidate population as an id column.
type candidatePlan struct {
	ctes         []string
	source       string
	facetsInside bool
}

// planCandidates binds through args after the facet predicate has been
// compiled. Vector strategies push the facet predicate into the candidate
// pool so distance is only computed for rows the filters can admit.
func planCandidates(req domain.SearchRequest, vector []float32, args *Args, facets FacetPredicate, o Options) (candidatePlan, error) {
	switch req.Strategy {
	case domain.StrategyLexical:
		return candidatePlan{
			ctes:   []string{lexicalCandidates(args, o, req.Term, "", 0)},
			source: lexicalCTE,
		}, nil
	case domain.StrategyFullText:
		return candidatePlan{
			ctes:   []string{fullTextCandidates(args, o, req.Term, "", 0)},
			source: fullTextCTE,
		}, nil
	case domain.StrategySemantic, domain.StrategyImage:
		src, threshold := textVectors, o.TextDistanceThreshold
		if req.Strategy == domain.StrategyImage {
			src, threshold = imageVectors, o.ImageDistanceThreshold
		}
		if len(vector) == 0 {
			return candidatePlan{}, domain.WrapError(domain.ErrInvalidInput, "plan candidates",
				fmt.Errorf("%s search requires a query embedding", req.Strategy))
		}
		return candidatePlan{
			ctes: []string{
				vectorCTE(args, src.vectorCTE, vector),
				vectorCandidates(src, o, facets.SQL, o.VectorPool, threshold),
			},
			source:       src.candidatesCTE,
			facetsInside: true,
		}, nil
	case domain.StrategyHybrid:
		if len(vector) == 0 {
			return candidatePlan{}, domain.WrapError(domain.ErrInvalidInput, "plan candidates",
				fmt.Errorf("hybrid search requires a query embedding"))
		}
		return candidatePlan{
			ctes: []string{
				vectorCTE(args, queryVectorCTE, vector),
				vectorCandidates(textVectors, o, facets.SQL, o.HybridPool, o.TextDistanceThreshold),
				fullTextCandidates(args, o, req.Term, facets.SQL, o.HybridPool),
				lexicalCandidates(args, o, req.Term, facets.SQL, o.HybridPool),
			},
			facetsInside: true,
		}, nil
	default:
		return candidatePlan{}, domain.WrapError(domain.ErrInvalidInput, "plan candidates",
			fmt.Errorf("unknown strategy %q", req.Strategy))
	}
}

func lexicalCandidates(args *Args, o Options, term, facetSQL string, limit int) string {
	pattern := args.Bind(LexicalPattern(term))
	matches := make([]string, len(lexicalColumns))
	for i, col := range lexicalColumns {
		matches[i] = fmt.Sprintf("p.%s ILIKE %s", col, pattern)
	}
	predicate := and("("+strings.Join(matches, " OR ")+")", facetSQL)

	body := fmt.Sprintf("SELECT p.id, ROW_NUMBER() OVER (ORDER BY p.name, p.id) AS sql_rank\nFROM %s p%s",
		o.Table, where(predicate))
	if limit > 0 {
		body += fmt.Sprintf("\nORDER BY p.name, p.id\nLIMIT %d", limit)
	}
	return cte(lexicalCTE, body)
}

func fullTextCandidates(args *Args, o Options, term, facetSQL string, limit int) string {
	tsquery := fmt.Sprintf("websearch_to_tsquery(%s, %s)", QuoteString(o.TextSearchConfig), args.Bind(term))
	rank := fmt.Sprintf("ts_rank(p.fts_document, %s)", tsquery)
	predicate := and("p.fts_document @@ "+tsquery, facetSQL)

	body := fmt.Sprintf("SELECT p.id, %s::float8 AS fts_rank_score, ROW_NUMBER() OVER (ORDER BY %s DESC, p.id) AS fts_rank\nFROM %s p%s",
		rank, rank, o.Table, where(predicate))
	if limit > 0 {
		body += fmt.Sprintf("\nORDER BY fts_rank_score DESC, p.id\nLIMIT %d", limit)
	}
	return cte(fullTextCTE, body)
}

func vectorCTE(args *Args, name string, vector []float32) string {
	return cte(name, fmt.Sprintf("SELECT %s::vector AS embedding", args.Bind(VectorLiteral(vector))))
}

// vectorCandidates takes the limit nearest rows that already satisfy the facet
// predicate. The pool is therefore "nearest among the selected facets", not a
// filter over the unfiltered nearest pool: when the bound truncates, a
// filtered search can surface products the unfiltered search did not. Facet
// counts are built from the same pool, so they always agree with the page.
func vectorCandidates(src vectorSource, o Options, facetSQL string, limit int, threshold float64) string {
	body := fmt.Sprintf(`SELECT nearest.id, nearest.distance, ROW_NUMBER() OVER (ORDER BY nearest.distance, nearest.id) AS vector_rank
FROM (
	SELECT p.id, (p.%s <=> qv.embedding)::float8 AS distance
	FROM %s p
	CROSS JOIN %s qv%s
	ORDER BY distance, p.id
	LIMIT %d
) AS nearest
WHERE nearest.distance <= %s`,
		src.column, o.Table, src.vectorCTE, indent(where(facetSQL)), limit,
		strconv.FormatFloat(threshold, 'f', -1, 64))
	return cte(src.candidatesCTE, body)
}

func cte(name, body string) string {
	return name + " AS (\n" + indent(body) + "\n)"
}

func with(ctes []string) string {
	return "WITH " + strings.Join(ctes, ",\n")
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = "\t" + line
		}
	}
	return strings.Join(lines, "\n")
}
