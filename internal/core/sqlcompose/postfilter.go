package sqlcompose

import (
	"fmt"
	"strings"
)

const (
	classifierFunction = "ai.if"
	classifierPrompt   = "Does the following product satisfy this condition: "
)

// WrapPostFilter runs stmt as a subquery and keeps only the rows the
// in-database classifier accepts for condition. The condition is bound as a
// parameter numbered after the ones stmt already carries. The wrapped
// statement reports filtered_total_count, the number of rows that survive on
// this page. A blank condition returns stmt unchanged.
func WrapPostFilter(stmt SearchStatement, condition string) (SearchStatement, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return stmt, nil
	}

	args := argsFrom(stmt.Args)
	sql := fmt.Sprintf(`SELECT base.*, COUNT(*) OVER () AS filtered_total_count
FROM (
%s
) AS base
WHERE %s(prompt => %s || %s::text || %s || CONCAT_WS(' ', base.name, base.brand, base.category, base.department, base.product_description))
ORDER BY %s`,
		indent(stmt.SQL), classifierFunction, QuoteString(classifierPrompt), args.Bind(condition),
		QuoteString(". Product: "), stmt.OrderBy)

	out := SearchStatement{Statement: Statement{SQL: sql, Args: args.Values()}, OrderBy: stmt.OrderBy}
	if err := out.Validate(); err != nil {
		return SearchStatement{}, err
	}
	return out, nil
}
