// Package store provides the variant records of each dataset, queried by
// genomic range.
package store

import (
	"context"
	"sync"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// Source returns a dataset's header together with its records overlapping a
// range. Returned values are shared and must not be modified.
type Source interface {
	DatasetRangeAndHeader(ctx context.Context, dataset string, rng genome.Range) (*vcf.Header, []*vcf.Record, error)
}

// dataset is one indexed dataset: a header plus an interval tree per contig.
type dataset struct {
	header *vcf.Header
	trees  map[int]*IntervalTree
}

func newDataset(header *vcf.Header, records []*vcf.Record) *dataset {
	byContig := make(map[int][]*vcf.Record)
	for _, r := range records {
		byContig[r.Range.ContigID] = append(byContig[r.Range.ContigID], r)
	}
	d := &dataset{header: header, trees: make(map[int]*IntervalTree, len(byContig))}
	for id, rs := range byContig {
		d.trees[id] = BuildIntervalTree(rs)
	}
	return d
}

func (d *dataset) query(rng genome.Range) []*vcf.Record {
	t, ok := d.trees[rng.ContigID]
	if !ok {
		return nil
	}
	return t.FindOverlaps(rng.Begin, rng.End)
}

// resolveRanges fills in each record's Range from its CHROM and span.
func resolveRanges(name string, records []*vcf.Record, contigs map[string]int) error {
	for _, r := range records {
		id, ok := contigs[r.Chrom]
		if !ok {
			return &status.Error{
				Kind:    status.Invalid,
				Message: "unknown contig",
				Dataset: name,
				Detail:  r.Chrom,
			}
		}
		begin, end := r.Span()
		r.Range = genome.Range{ContigID: id, Begin: begin, End: end}
	}
	return nil
}

// Memory is a Source over datasets held in memory.
type Memory struct {
	mu       sync.RWMutex
	datasets map[string]*dataset
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{datasets: make(map[string]*dataset)}
}

// Add registers a dataset. Each record's Range must already be set.
func (m *Memory) Add(name string, header *vcf.Header, records []*vcf.Record) {
	if header == nil {
		header = &vcf.Header{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.datasets[name] = newDataset(header, records)
}

// AddVCF registers a dataset from parsed VCF records, resolving their
// ranges against contigs.
func (m *Memory) AddVCF(name string, header *vcf.Header, records []*vcf.Record, contigs genome.Contigs) error {
	if err := resolveRanges(name, records, contigs.Index()); err != nil {
		return err
	}
	m.Add(name, header, records)
	return nil
}

// DatasetRangeAndHeader implements Source.
func (m *Memory) DatasetRangeAndHeader(_ context.Context, name string, rng genome.Range) (*vcf.Header, []*vcf.Record, error) {
	m.mu.RLock()
	d, ok := m.datasets[name]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, &status.Error{Kind: status.NotFound, Message: "unknown dataset", Dataset: name}
	}
	return d.header, d.query(rng), nil
}
