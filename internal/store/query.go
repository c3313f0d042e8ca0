package store

import "strings"

// QueryBuilder rewrites queries written with ? placeholders for a dialect.
type QueryBuilder struct {
	dialect Dialect
}

// NewQueryBuilder creates a new QueryBuilder for the given dialect.
func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

// Build replaces each ? with the dialect's numbered placeholder.
//
//	input:    "SELECT * FROM runs WHERE tileset = ? AND status = ?"
//	Postgres: "SELECT * FROM runs WHERE tileset = $1 AND status = $2"
func (qb *QueryBuilder) Build(query string) string {
	if qb.dialect.Placeholder(1) == "?" || !strings.Contains(query, "?") {
		return query
	}

	var sb strings.Builder
	sb.Grow(len(query) + 8)
	position := 1
	for _, part := range strings.SplitAfter(query, "?") {
		if strings.HasSuffix(part, "?") {
			sb.WriteString(part[:len(part)-1])
			sb.WriteString(qb.dialect.Placeholder(position))
			position++
			continue
		}
		sb.WriteString(part)
	}
	return sb.String()
}

// BuildWithReturning is Build plus the RETURNING clause the dialect needs
// to report the generated column.
func (qb *QueryBuilder) BuildWithReturning(query string, column string) string {
	converted := qb.Build(query)
	if !qb.dialect.SupportsLastInsertID() {
		converted += qb.dialect.ReturningClause(column)
	}
	return converted
}
