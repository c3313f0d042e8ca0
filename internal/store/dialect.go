package store

// Dialect abstracts the SQL differences between SQLite and PostgreSQL.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// Placeholder returns the parameter placeholder for the given position (1-indexed).
	Placeholder(position int) string

	// SupportsLastInsertID reports whether Result.LastInsertId works.
	SupportsLastInsertID() bool

	// ReturningClause returns the clause appended to INSERT statements to
	// read back a generated column, or "".
	ReturningClause(column string) string

	// InitStatements run once after the connection is opened.
	InitStatements() []string

	// IDColumn is the column definition of an auto-incrementing primary key.
	IDColumn() string

	// IsDuplicateKeyError reports a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType identifies the database dialect.
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect creates a Dialect. Unknown types fall back to SQLite.
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &PostgresDialect{}
	default:
		return &SQLiteDialect{}
	}
}
