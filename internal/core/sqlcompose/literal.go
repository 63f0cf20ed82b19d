package sqlcompose

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Literal renders v as SQL literal text. Slices and arrays become ARRAY[...]
// with each element rendered recursively; unknown types fall back to their
// quoted string form.
func Literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return QuoteString(x)
	case []byte:
		return QuoteString(string(x))
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64:
		return strconv.FormatInt(reflect.ValueOf(x).Int(), 10)
	case uint, uint8, uint16, uint32, uint64:
		return strconv.FormatUint(reflect.ValueOf(x).Uint(), 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return QuoteString(x.UTC().Format(time.RFC3339Nano))
	case fmt.Stringer:
		if isNilPointer(v) {
			return "NULL"
		}
		return QuoteString(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "NULL"
		}
		return Literal(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return "NULL"
		}
		items := make([]string, rv.Len())
		for i := range items {
			items[i] = Literal(rv.Index(i).Interface())
		}
		return "ARRAY[" + strings.Join(items, ", ") + "]"
	default:
		return QuoteString(fmt.Sprint(v))
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// Interpolate substitutes literal values for $N placeholders, highest index
// first. A placeholder only matches as a whole token outside quoted text, so
// $1 never rewrites part of $10 and text inside already-substituted literals
// is left alone.
func Interpolate(query string, params []any) string {
	if len(params) == 0 {
		return query
	}
	out := query
	for i := len(params); i >= 1; i-- {
		out = replacePlaceholder(out, i, Literal(params[i-1]))
	}
	return out
}

func replacePlaceholder(query string, n int, value string) string {
	var b strings.Builder
	b.Grow(len(query))
	scanPlaceholders(query, func(segment string, placeholder int) {
		if placeholder == n {
			b.WriteString(value)
			return
		}
		b.WriteString(segment)
	})
	return b.String()
}

func placeholders(query string) []int {
	var out []int
	scanPlaceholders(query, func(_ string, placeholder int) {
		if placeholder > 0 {
			out = append(out, placeholder)
		}
	})
	return out
}

// scanPlaceholders walks query and calls emit for each segment. Placeholder
// segments carry their index; everything else, quoted text included, is
// emitted with index 0.
func scanPlaceholders(query string, emit func(segment string, placeholder int)) {
	start := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"':
			quote = c
		case c == '$':
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j == i+1 {
				continue
			}
			n, err := strconv.Atoi(query[i+1 : j])
			if err != nil {
				continue
			}
			if start < i {
				emit(query[start:i], 0)
			}
			emit(query[i:j], n)
			start = j
			i = j - 1
		}
	}
	if start < len(query) {
		emit(query[start:], 0)
	}
}
