// Package catalog keeps the metadata of a joint-calling project in DuckDB:
// contigs, datasets and their samples, named sample sets, and the alleles
// discovered for each sample set.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
)

// Catalog manages a DuckDB connection holding project metadata.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens or creates a catalog database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Catalog, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	c := &Catalog{db: db, path: path}
	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return c, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (c *Catalog) DB() *sql.DB {
	return c.db
}

// Tables carry no key constraints: Import and WriteDiscoveredAlleles
// delete and re-insert rows inside one transaction, where DuckDB would
// reject re-inserting a key deleted earlier in the same transaction.
// Manifest.Validate and the overlap deletes keep rows unique.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS contigs (
		idx BIGINT,
		name VARCHAR,
		length BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS datasets (
		name VARCHAR,
		path VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_samples (
		dataset VARCHAR,
		sample VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS sample_sets (
		name VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS sample_set_members (
		sample_set VARCHAR,
		sample VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS discovered_alleles (
		sample_set VARCHAR,
		contig_id BIGINT,
		begin_pos BIGINT,
		end_pos BIGINT,
		dna VARCHAR,
		is_ref BOOLEAN,
		observation_count DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS discovered_ranges (
		sample_set VARCHAR,
		contig_id BIGINT,
		begin_pos BIGINT,
		end_pos BIGINT
	)`,
}

// ensureSchema creates tables if they don't exist.
func (c *Catalog) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := c.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Contigs returns the reference contigs in catalog order.
func (c *Catalog) Contigs(ctx context.Context) (genome.Contigs, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, length FROM contigs ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("query contigs: %w", err)
	}
	defer rows.Close()

	var contigs genome.Contigs
	for rows.Next() {
		var ct genome.Contig
		if err := rows.Scan(&ct.Name, &ct.Length); err != nil {
			return nil, fmt.Errorf("scan contig: %w", err)
		}
		contigs = append(contigs, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contigs: %w", err)
	}
	return contigs, nil
}

// SampleSetDatasets resolves a sample set to its samples and the datasets
// holding them, both sorted by name.
func (c *Catalog) SampleSetDatasets(ctx context.Context, sampleSet string) (samples, datasets []string, err error) {
	var n int64
	if err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sample_sets WHERE name = ?`, sampleSet).Scan(&n); err != nil {
		return nil, nil, fmt.Errorf("query sample set: %w", err)
	}
	if n == 0 {
		return nil, nil, status.Newf(status.NotFound, "unknown sample set", sampleSet)
	}

	samples, err = c.column(ctx,
		`SELECT sample FROM sample_set_members WHERE sample_set = ? ORDER BY sample`, sampleSet)
	if err != nil {
		return nil, nil, fmt.Errorf("query sample set members: %w", err)
	}
	datasets, err = c.column(ctx,
		`SELECT DISTINCT d.dataset
		FROM dataset_samples d JOIN sample_set_members m ON d.sample = m.sample
		WHERE m.sample_set = ?
		ORDER BY d.dataset`, sampleSet)
	if err != nil {
		return nil, nil, fmt.Errorf("query sample set datasets: %w", err)
	}
	return samples, datasets, nil
}

// SampleSets returns the names of all sample sets.
func (c *Catalog) SampleSets(ctx context.Context) ([]string, error) {
	return c.column(ctx, `SELECT name FROM sample_sets ORDER BY name`)
}

// DatasetPath returns the VCF file of a dataset.
func (c *Catalog) DatasetPath(ctx context.Context, dataset string) (string, error) {
	var path string
	err := c.db.QueryRowContext(ctx, `SELECT path FROM datasets WHERE name = ?`, dataset).Scan(&path)
	if err == sql.ErrNoRows {
		return "", &status.Error{Kind: status.NotFound, Message: "unknown dataset", Dataset: dataset}
	}
	if err != nil {
		return "", fmt.Errorf("query dataset: %w", err)
	}
	return path, nil
}

// column runs a single-column query.
func (c *Catalog) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
