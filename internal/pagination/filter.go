package pagination

import (
	"fmt"
	"strings"
)

// Filter accumulates SQL predicates with positional ($n) arguments.
type Filter struct {
	clauses []string
	args    []any
}

// NewFilter returns an empty filter.
func NewFilter() *Filter {
	return &Filter{}
}

func (f *Filter) bind(value any) string {
	f.args = append(f.args, value)
	return fmt.Sprintf("$%d", len(f.args))
}

// Eq adds column = value when value is non-empty. Absent parameters impose no constraint.
func (f *Filter) Eq(column, value string) *Filter {
	if strings.TrimSpace(value) == "" {
		return f
	}
	return f.Where(column+" = %s", value)
}

// Where adds a raw clause; each %s is replaced by a placeholder bound to the
// corresponding value.
func (f *Filter) Where(clause string, values ...any) *Filter {
	placeholders := make([]any, len(values))
	for i, v := range values {
		placeholders[i] = f.bind(v)
	}
	f.clauses = append(f.clauses, fmt.Sprintf(clause, placeholders...))
	return f
}

// Search adds a case-insensitive substring match across columns. LIKE
// metacharacters in term are matched literally.
func (f *Filter) Search(term string, columns ...string) *Filter {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return f
	}
	placeholder := f.bind("%" + escapeLike(term) + "%")
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = fmt.Sprintf("%s ILIKE %s", column, placeholder)
	}
	f.clauses = append(f.clauses, "("+strings.Join(parts, " OR ")+")")
	return f
}

// WhereSQL renders the WHERE clause, or an empty string when unconstrained.
func (f *Filter) WhereSQL() string {
	if len(f.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.clauses, " AND ")
}

// Args returns the bound arguments.
func (f *Filter) Args() []any {
	return append([]any(nil), f.args...)
}

// CountQuery renders SELECT COUNT(*) over table with the filter applied.
func (f *Filter) CountQuery(table string) (string, []any) {
	return "SELECT COUNT(*) FROM " + table + f.WhereSQL(), f.Args()
}

// PageQuery renders selectSQL with the filter, order and page window applied.
func (f *Filter) PageQuery(selectSQL, orderBy string, req Request) (string, []any) {
	args := f.Args()
	args = append(args, req.Limit, req.Offset())
	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectSQL, f.WhereSQL(), orderBy, len(args)-1, len(args))
	return query, args
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
