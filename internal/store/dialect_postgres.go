package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresDialect implements Dialect for the lib/pq driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

// Placeholder returns "$N".
func (d *PostgresDialect) Placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

// SupportsLastInsertID is false; inserts use RETURNING instead.
func (d *PostgresDialect) SupportsLastInsertID() bool {
	return false
}

func (d *PostgresDialect) ReturningClause(column string) string {
	return " RETURNING " + column
}

func (d *PostgresDialect) InitStatements() []string {
	return nil
}

func (d *PostgresDialect) IDColumn() string {
	return "id BIGSERIAL PRIMARY KEY"
}

// IsDuplicateKeyError checks for SQLSTATE 23505 (unique_violation).
func (d *PostgresDialect) IsDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
