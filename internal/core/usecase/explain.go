package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/catalog-search/internal/core/domain"
	"github.com/kirillkom/catalog-search/internal/core/sqlcompose"
)

// Explain returns the engine's plan for a read-only query. Anything other
// than a single self-contained SELECT or WITH statement is rejected without
// reaching the database.
func (uc *SearchUseCase) Explain(ctx context.Context, query string) domain.ExplainResult {
	query = strings.TrimSuffix(strings.TrimSpace(query), ";")
	result := domain.ExplainResult{Query: query, Data: []domain.Row{}}

	if err := checkExplainable(query); err != nil {
		slog.Warn("explain_rejected", "error", err)
		result.ErrorDetail = err.Error()
		return result
	}

	rows, err := uc.executor.Explain(ctx, query)
	if err != nil {
		slog.Error("explain_failed", "query", query, "error", err)
		result.ErrorDetail = fmt.Sprintf("explain query: %v", err)
		return result
	}
	result.Data = rows
	return result
}

func checkExplainable(query string) error {
	if query == "" {
		return domain.WrapError(domain.ErrInvalidInput, "explain", errors.New("query is required"))
	}
	first := strings.ToUpper(strings.TrimLeft(strings.Fields(query)[0], "("))
	if first != "SELECT" && first != "WITH" {
		return domain.WrapError(domain.ErrInvalidInput, "explain", errors.New("only SELECT queries can be explained"))
	}
	if strings.Contains(query, ";") {
		return domain.WrapError(domain.ErrInvalidInput, "explain", errors.New("multiple statements are not allowed"))
	}
	// Search responses carry both forms; only interpolatedQuery runs standalone.
	if sqlcompose.HasPlaceholders(query) {
		return domain.WrapError(domain.ErrInvalidInput, "explain",
			errors.New("query has $N parameters; explain the interpolatedQuery from the search response instead"))
	}
	return nil
}
