package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// Manifest describes a project: its reference contigs, one VCF per dataset
// and the named sample sets to call jointly.
//
//	contigs:
//	  - {name: "21", length: 48129895}
//	datasets:
//	  - name: NA12878
//	    path: vcf/NA12878.g.vcf.gz
//	    samples: [NA12878]
//	sample_sets:
//	  trio: [NA12878, NA12891, NA12892]
type Manifest struct {
	Contigs    []ManifestContig    `yaml:"contigs"`
	Datasets   []ManifestDataset   `yaml:"datasets"`
	SampleSets map[string][]string `yaml:"sample_sets"`
}

// ManifestContig is one reference contig.
type ManifestContig struct {
	Name   string `yaml:"name"`
	Length int64  `yaml:"length"`
}

// ManifestDataset is one dataset file. When Samples is empty the samples
// are read from the file's header.
type ManifestDataset struct {
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Samples []string `yaml:"samples,omitempty"`
}

// LoadManifest reads a manifest file. Relative dataset paths are resolved
// against the manifest's directory, and missing sample lists are filled in
// from the dataset headers.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Datasets {
		d := &m.Datasets[i]
		if d.Path != "" && !filepath.IsAbs(d.Path) {
			d.Path = filepath.Join(base, d.Path)
		}
		if len(d.Samples) == 0 && d.Path != "" {
			samples, err := headerSamples(d.Path)
			if err != nil {
				return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
			}
			d.Samples = samples
		}
	}
	return &m, nil
}

func headerSamples(path string) ([]string, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.SampleNames(), nil
}

// Validate checks names are unique and every sample set member belongs to
// some dataset.
func (m *Manifest) Validate() error {
	if len(m.Contigs) == 0 {
		return status.New(status.Invalid, "manifest has no contigs")
	}
	contigs := make(map[string]bool, len(m.Contigs))
	for _, c := range m.Contigs {
		if c.Name == "" || contigs[c.Name] {
			return status.Newf(status.Invalid, "duplicate or empty contig name", c.Name)
		}
		if c.Length <= 0 {
			return status.Newf(status.Invalid, "contig length must be positive", c.Name)
		}
		contigs[c.Name] = true
	}

	datasets := make(map[string]bool, len(m.Datasets))
	samples := make(map[string]bool)
	for _, d := range m.Datasets {
		if d.Name == "" || datasets[d.Name] {
			return status.Newf(status.Invalid, "duplicate or empty dataset name", d.Name)
		}
		if d.Path == "" {
			return &status.Error{Kind: status.Invalid, Message: "dataset has no path", Dataset: d.Name}
		}
		datasets[d.Name] = true
		for _, s := range d.Samples {
			samples[s] = true
		}
	}

	for _, name := range m.sampleSetNames() {
		if name == "" {
			return status.New(status.Invalid, "empty sample set name")
		}
		for _, s := range m.SampleSets[name] {
			if !samples[s] {
				return status.Newf(status.Invalid, "sample set member has no dataset", name+": "+s)
			}
		}
	}
	return nil
}

func (m *Manifest) sampleSetNames() []string {
	names := make([]string, 0, len(m.SampleSets))
	for name := range m.SampleSets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GenomeContigs returns the manifest contigs in order.
func (m *Manifest) GenomeContigs() genome.Contigs {
	out := make(genome.Contigs, len(m.Contigs))
	for i, c := range m.Contigs {
		out[i] = genome.Contig{Name: c.Name, Length: c.Length}
	}
	return out
}

// Import replaces the catalog's metadata with the manifest's in one
// transaction. Saved alleles are dropped: they are keyed by contig index
// and computed from the previous datasets and sample sets.
func (c *Catalog) Import(ctx context.Context, m *Manifest) (err error) {
	if err := m.Validate(); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{
		"contigs", "datasets", "dataset_samples", "sample_sets", "sample_set_members",
		"discovered_alleles", "discovered_ranges",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, ct := range m.Contigs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contigs (idx, name, length) VALUES (?, ?, ?)`, int64(i), ct.Name, ct.Length); err != nil {
			return fmt.Errorf("insert contig %s: %w", ct.Name, err)
		}
	}

	for _, d := range m.Datasets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO datasets (name, path) VALUES (?, ?)`, d.Name, d.Path); err != nil {
			return fmt.Errorf("insert dataset %s: %w", d.Name, err)
		}
		for _, s := range uniq(d.Samples) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO dataset_samples (dataset, sample) VALUES (?, ?)`, d.Name, s); err != nil {
				return fmt.Errorf("insert sample %s of %s: %w", s, d.Name, err)
			}
		}
	}

	for _, name := range m.sampleSetNames() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO sample_sets (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("insert sample set %s: %w", name, err)
		}
		for _, s := range uniq(m.SampleSets[name]) {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sample_set_members (sample_set, sample) VALUES (?, ?)`, name, s); err != nil {
				return fmt.Errorf("insert member %s of %s: %w", s, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

// uniq returns the distinct values of s in sorted order.
func uniq(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	n := 0
	for i, v := range out {
		if i == 0 || v != out[n-1] {
			out[n] = v
			n++
		}
	}
	return out[:n]
}
