// Package discover finds the alleles observed across datasets in a genomic
// range and reconciles them into one call set with a single reference
// allele per range.
package discover

import (
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// Engine extracts and reconciles discovered alleles.
type Engine struct {
	contigs genome.Contigs
	logger  *zap.Logger
}

// NewEngine creates an engine. contigs are only used to render ranges in
// error messages.
func NewEngine(contigs genome.Contigs) *Engine {
	return &Engine{
		contigs: contigs,
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Dataset returns the alleles one dataset contributes from records, which
// must have their Range resolved.
//
// Every alternate allele made only of A, C, G and T is reported with the
// number of hard-called observations of it. The record's reference allele
// is reported alongside, but only when at least one alternate was: a
// reference-only record carries no discovery signal. A reference allele
// that is not plain DNA fails the whole call.
func (e *Engine) Dataset(dataset string, records []*vcf.Record) (genome.DiscoveredAlleles, error) {
	als := make(genome.DiscoveredAlleles)
	for _, r := range records {
		counts := countCalls(r)

		anyAlt := false
		for i := 1; i < len(r.Alleles); i++ {
			dna := strings.ToUpper(r.Alleles[i])
			if !genome.IsDNA(dna) {
				continue
			}
			insert(als, genome.NewAllele(r.Range, dna), genome.DiscoveredAlleleInfo{
				IsRef:            false,
				ObservationCount: counts[i],
			})
			anyAlt = true
		}

		ref := strings.ToUpper(r.Ref())
		if !genome.IsDNA(ref) {
			return nil, &status.Error{
				Kind:    status.Invalid,
				Message: "invalid reference allele",
				Dataset: dataset,
				Range:   e.contigs.Format(r.Range),
				Alleles: []string{ref},
			}
		}
		if anyAlt {
			insert(als, genome.NewAllele(r.Range, ref), genome.DiscoveredAlleleInfo{
				IsRef:            true,
				ObservationCount: counts[0],
			})
		}
	}

	e.logger.Debug("discovered dataset alleles",
		zap.String("dataset", dataset),
		zap.Int("records", len(records)),
		zap.Int("alleles", len(als)))
	return als, nil
}

// countCalls counts hard-called observations of each allele index across
// all samples. No-calls and out-of-range indices are ignored.
func countCalls(r *vcf.Record) []float64 {
	counts := make([]float64, len(r.Alleles))
	for _, g := range r.Genotypes {
		for _, a := range g.Alleles {
			if a >= 0 && a < len(counts) {
				counts[a]++
			}
		}
	}
	return counts
}

// insert adds an allele unless the dataset already reported it; a second
// line for the same allele in one dataset re-counts the same samples.
func insert(als genome.DiscoveredAlleles, al genome.Allele, info genome.DiscoveredAlleleInfo) {
	if _, ok := als[al]; !ok {
		als[al] = info
	}
}
