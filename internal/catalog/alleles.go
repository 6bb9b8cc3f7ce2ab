package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-joint/internal/genome"
)

// WriteDiscoveredAlleles stores the alleles discovered for a sample set in
// rng and records rng as saved. Alleles stored earlier that overlap rng are
// replaced, and earlier saved ranges are cut back to their parts outside
// rng. The whole write is one transaction; rows are batch-inserted using
// the Appender API.
func (c *Catalog) WriteDiscoveredAlleles(ctx context.Context, sampleSet string, rng genome.Range, als genome.DiscoveredAlleles) (err error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer func() {
		if err != nil {
			conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if _, err := conn.ExecContext(ctx,
		`DELETE FROM discovered_alleles
		WHERE sample_set = ? AND contig_id = ? AND begin_pos < ? AND end_pos > ?`,
		sampleSet, int64(rng.ContigID), rng.End, rng.Begin); err != nil {
		return fmt.Errorf("clear discovered alleles: %w", err)
	}
	if err := saveRange(ctx, conn, sampleSet, rng); err != nil {
		return err
	}
	if len(als) > 0 {
		if err := appendAlleles(conn, sampleSet, als); err != nil {
			return err
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit discovered alleles: %w", err)
	}
	return nil
}

// saveRange cuts rng out of the sample set's saved ranges and adds it.
func saveRange(ctx context.Context, conn *sql.Conn, sampleSet string, rng genome.Range) error {
	rows, err := conn.QueryContext(ctx,
		`SELECT begin_pos, end_pos FROM discovered_ranges
		WHERE sample_set = ? AND contig_id = ? AND begin_pos < ? AND end_pos > ?`,
		sampleSet, int64(rng.ContigID), rng.End, rng.Begin)
	if err != nil {
		return fmt.Errorf("query saved ranges: %w", err)
	}
	var keep []genome.Range
	for rows.Next() {
		var old genome.Range
		if err := rows.Scan(&old.Begin, &old.End); err != nil {
			rows.Close()
			return fmt.Errorf("scan saved range: %w", err)
		}
		if old.Begin < rng.Begin {
			keep = append(keep, genome.Range{ContigID: rng.ContigID, Begin: old.Begin, End: rng.Begin})
		}
		if old.End > rng.End {
			keep = append(keep, genome.Range{ContigID: rng.ContigID, Begin: rng.End, End: old.End})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate saved ranges: %w", err)
	}

	if _, err := conn.ExecContext(ctx,
		`DELETE FROM discovered_ranges
		WHERE sample_set = ? AND contig_id = ? AND begin_pos < ? AND end_pos > ?`,
		sampleSet, int64(rng.ContigID), rng.End, rng.Begin); err != nil {
		return fmt.Errorf("clear saved ranges: %w", err)
	}
	for _, r := range append(keep, rng) {
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO discovered_ranges (sample_set, contig_id, begin_pos, end_pos) VALUES (?, ?, ?, ?)`,
			sampleSet, int64(r.ContigID), r.Begin, r.End); err != nil {
			return fmt.Errorf("insert saved range: %w", err)
		}
	}
	return nil
}

func appendAlleles(conn *sql.Conn, sampleSet string, als genome.DiscoveredAlleles) error {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "discovered_alleles")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, al := range als.Sorted() {
		info := als[al]
		if err := appender.AppendRow(
			sampleSet, int64(al.Pos.ContigID), al.Pos.Begin, al.Pos.End,
			al.DNA, info.IsRef, info.ObservationCount,
		); err != nil {
			appender.Close()
			return fmt.Errorf("append discovered allele: %w", err)
		}
	}

	// Close flushes the remaining rows.
	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush discovered alleles: %w", err)
	}
	return nil
}

// LookupDiscoveredAlleles returns the stored alleles of a sample set whose
// ranges overlap rng. When the saved ranges do not cover all of rng the
// stored alleles would be a partial answer, so ok is false and nothing is
// returned.
func (c *Catalog) LookupDiscoveredAlleles(ctx context.Context, sampleSet string, rng genome.Range) (als genome.DiscoveredAlleles, ok bool, err error) {
	ok, err = c.covered(ctx, sampleSet, rng)
	if err != nil || !ok {
		return nil, false, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT
		contig_id, begin_pos, end_pos, dna, is_ref, observation_count
		FROM discovered_alleles
		WHERE sample_set = ? AND contig_id = ? AND begin_pos < ? AND end_pos > ?`,
		sampleSet, int64(rng.ContigID), rng.End, rng.Begin)
	if err != nil {
		return nil, false, fmt.Errorf("query discovered alleles: %w", err)
	}
	defer rows.Close()

	als = make(genome.DiscoveredAlleles)
	for rows.Next() {
		var (
			contigID int64
			al       genome.Allele
			info     genome.DiscoveredAlleleInfo
		)
		if err := rows.Scan(&contigID, &al.Pos.Begin, &al.Pos.End, &al.DNA, &info.IsRef, &info.ObservationCount); err != nil {
			return nil, false, fmt.Errorf("scan discovered allele: %w", err)
		}
		al.Pos.ContigID = int(contigID)
		als[al] = info
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate discovered alleles: %w", err)
	}
	return als, true, nil
}

// covered reports whether the saved ranges of a sample set cover rng.
func (c *Catalog) covered(ctx context.Context, sampleSet string, rng genome.Range) (bool, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT begin_pos, end_pos FROM discovered_ranges
		WHERE sample_set = ? AND contig_id = ? AND begin_pos < ? AND end_pos > ?
		ORDER BY begin_pos`,
		sampleSet, int64(rng.ContigID), rng.End, rng.Begin)
	if err != nil {
		return false, fmt.Errorf("query saved ranges: %w", err)
	}
	defer rows.Close()

	pos := rng.Begin
	for rows.Next() {
		var begin, end int64
		if err := rows.Scan(&begin, &end); err != nil {
			return false, fmt.Errorf("scan saved range: %w", err)
		}
		if begin > pos {
			return false, nil
		}
		pos = max(pos, end)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate saved ranges: %w", err)
	}
	return pos >= rng.End, nil
}

// ClearDiscoveredAlleles removes every stored allele and saved range of a
// sample set.
func (c *Catalog) ClearDiscoveredAlleles(ctx context.Context, sampleSet string) error {
	for _, table := range []string{"discovered_alleles", "discovered_ranges"} {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE sample_set = ?", sampleSet); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
