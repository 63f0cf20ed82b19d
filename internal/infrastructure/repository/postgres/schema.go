package postgres

import (
	"context"
	"fmt"
)

const schemaLockKey int64 = 2026101501

// EnsureSchema creates the catalog table and its text-search and vector
// columns when they are missing. Loading products is left to the operator.
func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api replicas.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	query := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	product_image_uri TEXT,
	brand TEXT,
	product_description TEXT,
	category TEXT,
	department TEXT,
	cost NUMERIC(12,2),
	retail_price NUMERIC(12,2),
	sku TEXT,
	embedding vector,
	product_image_embedding vector,
	fts_document tsvector GENERATED ALWAYS AS (
		to_tsvector('english',
			coalesce(name, '') || ' ' || coalesce(brand, '') || ' ' ||
			coalesce(category, '') || ' ' || coalesce(product_description, ''))
	) STORED
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_fts_document ON %[1]s USING GIN (fts_document);
CREATE INDEX IF NOT EXISTS idx_%[1]s_brand ON %[1]s (brand);
CREATE INDEX IF NOT EXISTS idx_%[1]s_category ON %[1]s (category);
CREATE INDEX IF NOT EXISTS idx_%[1]s_retail_price ON %[1]s (retail_price);
`, r.table)
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
