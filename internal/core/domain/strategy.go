package domain

import (
	"fmt"
	"strings"
)

// Strategy identifies one of the retrieval strategies a search can run.
type Strategy string

const (
	StrategyLexical  Strategy = "lexical"
	StrategyFullText Strategy = "fulltext"
	StrategySemantic Strategy = "semantic"
	StrategyHybrid   Strategy = "hybrid"
	StrategyImage    Strategy = "image"
)

// Signal is the retrieval-method label a strategy contributes to a row.
type Signal string

const (
	SignalLexical  Signal = "SQL"
	SignalFullText Signal = "FTS"
	SignalVector   Signal = "VECTOR"
)

// ParseStrategy accepts the canonical identifiers as well as the search type
// labels and route names used by the HTTP layer.
func ParseStrategy(raw string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "lexical", "sql", "traditional_sql", "search":
		return StrategyLexical, nil
	case "fulltext", "fts", "fulltext-search", "full_text":
		return StrategyFullText, nil
	case "semantic", "vector", "semantic-search":
		return StrategySemantic, nil
	case "hybrid", "rrf", "hybrid-search":
		return StrategyHybrid, nil
	case "image", "image-search", "multimodal":
		return StrategyImage, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse strategy", fmt.Errorf("unknown search type %q", raw))
	}
}

// SearchType is the label reported back to callers alongside results.
func (s Strategy) SearchType() string {
	switch s {
	case StrategyLexical:
		return "TRADITIONAL_SQL"
	case StrategyFullText:
		return "FULLTEXT"
	case StrategySemantic:
		return "SEMANTIC"
	case StrategyHybrid:
		return "HYBRID"
	case StrategyImage:
		return "IMAGE"
	default:
		return strings.ToUpper(string(s))
	}
}

func (s Strategy) Valid() bool {
	switch s {
	case StrategyLexical, StrategyFullText, StrategySemantic, StrategyHybrid, StrategyImage:
		return true
	default:
		return false
	}
}

// NeedsTextEmbedding reports whether the strategy compares a text embedding.
func (s Strategy) NeedsTextEmbedding() bool {
	return s == StrategySemantic || s == StrategyHybrid
}
