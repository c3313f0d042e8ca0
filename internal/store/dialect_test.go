package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"
)

func TestNewDialect(t *testing.T) {
	if _, ok := NewDialect(DialectSQLite).(*SQLiteDialect); !ok {
		t.Error("NewDialect(sqlite) is not *SQLiteDialect")
	}
	if _, ok := NewDialect(DialectPostgres).(*PostgresDialect); !ok {
		t.Error("NewDialect(postgres) is not *PostgresDialect")
	}
	if _, ok := NewDialect("unknown").(*SQLiteDialect); !ok {
		t.Error("unknown dialect should default to *SQLiteDialect")
	}
}

func TestDialectPlaceholders(t *testing.T) {
	tests := []struct {
		d        Dialect
		position int
		want     string
	}{
		{&SQLiteDialect{}, 1, "?"},
		{&SQLiteDialect{}, 10, "?"},
		{&PostgresDialect{}, 1, "$1"},
		{&PostgresDialect{}, 12, "$12"},
	}
	for _, tt := range tests {
		if got := tt.d.Placeholder(tt.position); got != tt.want {
			t.Errorf("%s Placeholder(%d) = %q, want %q", tt.d.DriverName(), tt.position, got, tt.want)
		}
	}
}

func TestDialectIDColumn(t *testing.T) {
	if got := (&SQLiteDialect{}).IDColumn(); !strings.Contains(got, "AUTOINCREMENT") {
		t.Errorf("SQLite IDColumn() = %q", got)
	}
	if got := (&PostgresDialect{}).IDColumn(); !strings.Contains(got, "BIGSERIAL") {
		t.Errorf("Postgres IDColumn() = %q", got)
	}
}

func TestSQLiteDialect_IsDuplicateKeyError(t *testing.T) {
	d := &SQLiteDialect{}
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("UNIQUE constraint failed: runs.id"), true},
		{errors.New("no such table"), false},
	}
	for _, tt := range tests {
		if got := d.IsDuplicateKeyError(tt.err); got != tt.want {
			t.Errorf("IsDuplicateKeyError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestPostgresDialect_IsDuplicateKeyError(t *testing.T) {
	d := &PostgresDialect{}
	dup := &pq.Error{Code: "23505", Message: "duplicate key value"}
	other := &pq.Error{Code: "42P01", Message: "undefined table"}

	if !d.IsDuplicateKeyError(dup) {
		t.Error("IsDuplicateKeyError(23505) = false, want true")
	}
	if d.IsDuplicateKeyError(other) {
		t.Error("IsDuplicateKeyError(42P01) = true, want false")
	}
	if d.IsDuplicateKeyError(errors.New("duplicate key")) {
		t.Error("plain errors are not pq errors")
	}
	if d.IsDuplicateKeyError(nil) {
		t.Error("IsDuplicateKeyError(nil) = true")
	}
}

func TestQueryBuilder_Build(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{"sqlite unchanged", &SQLiteDialect{}, "SELECT * FROM runs WHERE id = ?", "SELECT * FROM runs WHERE id = ?"},
		{"postgres single", &PostgresDialect{}, "SELECT * FROM runs WHERE id = ?", "SELECT * FROM runs WHERE id = $1"},
		{"postgres several", &PostgresDialect{}, "WHERE a = ? AND b = ? LIMIT ?", "WHERE a = $1 AND b = $2 LIMIT $3"},
		{"postgres none", &PostgresDialect{}, "SELECT 1", "SELECT 1"},
		{"postgres empty", &PostgresDialect{}, "", ""},
		{"postgres trailing", &PostgresDialect{}, "?", "$1"},
	}
	for _, tt := range tests {
		if got := NewQueryBuilder(tt.dialect).Build(tt.query); got != tt.want {
			t.Errorf("%s: Build(%q) = %q, want %q", tt.name, tt.query, got, tt.want)
		}
	}
}

func TestQueryBuilder_BuildWithReturning(t *testing.T) {
	query := "INSERT INTO runs (tileset) VALUES (?)"

	if got := NewQueryBuilder(&SQLiteDialect{}).BuildWithReturning(query, "id"); got != query {
		t.Errorf("SQLite BuildWithReturning() = %q, want %q", got, query)
	}
	want := "INSERT INTO runs (tileset) VALUES ($1) RETURNING id"
	if got := NewQueryBuilder(&PostgresDialect{}).BuildWithReturning(query, "id"); got != want {
		t.Errorf("Postgres BuildWithReturning() = %q, want %q", got, want)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.User = "wfc"
	cfg.Password = "secret"
	cfg.Database = "runs"

	want := "host=localhost port=5432 user=wfc password=secret dbname=runs sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
