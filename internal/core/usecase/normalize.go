package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

const (
	gcsScheme        = "gs://"
	gcsPublicBaseURL = "https://storage.googleapis.com/"
)

var roundedColumns = map[string]int{
	"rrf_score":      4,
	"distance":       6,
	"fts_rank_score": 6,
}

// NormalizeRows converts raw engine rows into API rows. The total is taken
// from the first row, filtered_total_count winning over total_count, and
// both columns are removed from every row.
func NormalizeRows(rows []domain.Row) ([]domain.Row, int64, error) {
	out := make([]domain.Row, 0, len(rows))
	var total int64
	for i, row := range rows {
		if i == 0 {
			total = rowTotal(row)
		}
		normalized, err := normalizeRow(row)
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, normalized)
	}
	return out, total, nil
}

func rowTotal(row domain.Row) int64 {
	if n, ok := intField(row, "filtered_total_count"); ok {
		return n
	}
	n, _ := intField(row, "total_count")
	return n
}

func normalizeRow(row domain.Row) (domain.Row, error) {
	out := make(domain.Row, 0, len(row))
	sources := make(map[string]string, len(row))
	for _, f := range row {
		if f.Name == "total_count" || f.Name == "filtered_total_count" {
			continue
		}
		key := CamelCase(f.Name)
		if prev, ok := sources[key]; ok {
			return nil, domain.WrapError(domain.ErrInvariant, "normalize row",
				fmt.Errorf("columns %q and %q both map to %q", prev, f.Name, key))
		}
		sources[key] = f.Name
		out = append(out, domain.Field{Name: key, Value: normalizeValue(f.Name, f.Value)})
	}
	return out, nil
}

func normalizeValue(column string, v any) any {
	if column == "product_image_uri" {
		if s, ok := v.(string); ok {
			return PublicImageURL(s)
		}
		return v
	}
	if places, ok := roundedColumns[column]; ok {
		if f, ok := toFloat64(v); ok {
			p := math.Pow10(places)
			return math.Round(f*p) / p
		}
	}
	return v
}

// PublicImageURL rewrites a gs:// object URI to its public HTTPS form.
func PublicImageURL(uri string) string {
	if rest, ok := strings.CutPrefix(uri, gcsScheme); ok {
		return gcsPublicBaseURL + rest
	}
	return uri
}

// CamelCase maps a snake_case column name to camelCase.
func CamelCase(name string) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	b.Grow(len(name))
	b.WriteString(parts[0])
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func stringField(row domain.Row, name string) (string, bool) {
	v, ok := row.Get(name)
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	default:
		return fmt.Sprint(x), true
	}
}

func intField(row domain.Row, name string) (int64, bool) {
	v, ok := row.Get(name)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case []byte:
		f, err := strconv.ParseFloat(string(x), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
