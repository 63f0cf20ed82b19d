package sqlcompose

import (
	"fmt"
	"strconv"
	"strings"
)

// VectorLiteral renders v in pgvector text form, e.g. [0.1,0.2].
func VectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseVectorLiteral is the inverse of VectorLiteral. It also accepts the
// {..} array form returned for real[] values.
func ParseVectorLiteral(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 {
		return nil, fmt.Errorf("vector literal too short: %q", raw)
	}
	open, close := s[0], s[len(s)-1]
	if !((open == '[' && close == ']') || (open == '{' && close == '}')) {
		return nil, fmt.Errorf("vector literal must be bracketed: %q", truncate(raw, 32))
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	if body == "" {
		return nil, fmt.Errorf("empty vector")
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
