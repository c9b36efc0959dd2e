package dbx

import (
	sq "github.com/Masterminds/squirrel"
)

// Dialect selects the SQL flavour spoken by the underlying driver.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// StatementBuilder returns a query builder emitting the placeholders of d:
// '$1', '$2', ... for PostgreSQL and '?' otherwise.
func StatementBuilder(d Dialect) sq.StatementBuilderType {
	if d == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}
