package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// passthroughConverter lets array parameters reach the mock the way the pgx
// driver accepts them.
type passthroughConverter struct{}

func (passthroughConverter) ConvertValue(v any) (driver.Value, error) {
	return v, nil
}

type textArrayArg []string

func (a textArrayArg) Match(v driver.Value) bool {
	got, ok := v.([]string)
	return ok && slices.Equal(got, a)
}

func newCatalogRepoWithMock(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(passthroughConverter{}))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewCatalogRepository(db, ""), mock, func() { _ = db.Close() }
}

func TestCatalogRepositoryQueryPreservesColumnOrder(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "name", "retail_price", "total_count"}).
		AddRow(int64(1), []byte("Parka"), 129.5, int64(2)).
		AddRow(int64(2), "Puffer", 89.0, int64(2))
	mock.ExpectQuery(regexp.QuoteMeta("p.brand = ANY($1::text[])")).
		WithArgs(textArrayArg{"Coach"}, "%parka%").
		WillReturnRows(rows)

	out, err := repo.Query(context.Background(),
		"SELECT p.id FROM products p WHERE p.brand = ANY($1::text[]) AND p.name ILIKE $2",
		[]string{"Coach"}, "%parka%")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if names := strings.Join(out[0].Names(), ","); names != "id,name,retail_price,total_count" {
		t.Fatalf("unexpected column order %s", names)
	}
	if v, _ := out[0].Get("name"); v != "Parka" {
		t.Fatalf("expected byte column converted to string, got %#v", v)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCatalogRepositoryQueryWrapsDriverError(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("syntax error at or near"))

	_, err := repo.Query(context.Background(), "SELECT broken")
	if err == nil || !strings.Contains(err.Error(), "query catalog") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestCatalogRepositoryQueryEmptyResultIsNonNil(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	out, err := repo.Query(context.Background(), "SELECT id FROM products")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil rows, got %#v", out)
	}
}

func TestCatalogRepositoryExplainRunsInsideRolledBackTx(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("EXPLAIN (FORMAT TEXT) SELECT * FROM products")).
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).AddRow("Seq Scan on products"))
	mock.ExpectRollback()

	out, err := repo.Explain(context.Background(), "SELECT * FROM products")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if v, _ := out[0].Get("QUERY PLAN"); v != "Seq Scan on products" {
		t.Fatalf("unexpected plan row %#v", out[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newCatalogRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(schemaLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS products").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
