package sqlcompose

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/kirillkom/catalog-search/internal/core/domain"
)

// Args is the parameter cursor of one statement.
type Args struct {
	values []any
}

func argsFrom(values []any) *Args {
	return &Args{values: slices.Clone(values)}
}

// Bind appends v and returns the placeholder that refers to it.
func (a *Args) Bind(v any) string {
	a.values = append(a.values, v)
	return Placeholder(len(a.values))
}

func (a *Args) Len() int { return len(a.values) }

// Next is the index the following Bind call will allocate.
func (a *Args) Next() int { return len(a.values) + 1 }

func (a *Args) Values() []any { return slices.Clone(a.values) }

func Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// HasPlaceholders reports whether query references a $N parameter outside
// quoted text.
func HasPlaceholders(query string) bool {
	return len(placeholders(query)) > 0
}

// Statement is executable query text plus its ordered parameters.
type Statement struct {
	SQL  string
	Args []any
}

// Interpolated renders the statement with literals in place of placeholders.
// Display only.
func (s Statement) Interpolated() string {
	return Interpolate(s.SQL, s.Args)
}

// Validate checks that every placeholder refers to a bound parameter and that
// every bound parameter is referenced.
func (s Statement) Validate() error {
	used := make(map[int]bool, len(s.Args))
	for _, n := range placeholders(s.SQL) {
		if n < 1 || n > len(s.Args) {
			return domain.WrapError(domain.ErrInvariant, "validate statement",
				fmt.Errorf("placeholder $%d has no bound parameter (%d bound)", n, len(s.Args)))
		}
		used[n] = true
	}
	for i := 1; i <= len(s.Args); i++ {
		if !used[i] {
			return domain.WrapError(domain.ErrInvariant, "validate statement",
				fmt.Errorf("parameter $%d is bound but never referenced", i))
		}
	}
	return nil
}
