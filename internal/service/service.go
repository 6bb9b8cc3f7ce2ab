// Package service ties discovery and genotyping to the metadata catalog,
// the dataset store and the output sink.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/inodb/vibe-joint/internal/discover"
	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/genotype"
	"github.com/inodb/vibe-joint/internal/output"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/store"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// Service answers allele discovery and genotyping requests. It owns a
// worker pool shared by all genotyping calls until Close.
type Service struct {
	meta   *MetadataCache
	data   store.Source
	pool   *genotype.Pool
	engine *discover.Engine
	logger *zap.Logger
}

type options struct {
	workers int
	logger  *zap.Logger
}

// Option configures Start.
type Option func(*options)

// WithWorkers sets the worker pool size. 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Start creates a service over metadata and data.
func Start(ctx context.Context, metadata Metadata, data store.Source, opts ...Option) (*Service, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	meta, err := StartMetadataCache(ctx, metadata)
	if err != nil {
		return nil, fmt.Errorf("load contigs: %w", err)
	}

	engine := discover.NewEngine(meta.contigs)
	engine.SetLogger(o.logger)

	pool := genotype.NewPool(o.workers)
	o.logger.Debug("service started",
		zap.Int("workers", pool.Size()),
		zap.Int("contigs", len(meta.contigs)))

	return &Service{
		meta:   meta,
		data:   data,
		pool:   pool,
		engine: engine,
		logger: o.logger,
	}, nil
}

// Close waits for running work and stops the worker pool.
func (s *Service) Close() {
	s.pool.Close()
}

// Contigs returns the reference contigs.
func (s *Service) Contigs() genome.Contigs {
	return s.meta.contigs
}

// DiscoverAlleles returns the alleles observed in rng across all datasets
// of a sample set. Datasets are processed one after another; the first
// error ends the call and no partial result is returned. Once every dataset
// is merged, each range must have exactly one reference allele.
func (s *Service) DiscoverAlleles(ctx context.Context, sampleSet string, rng genome.Range) (genome.DiscoveredAlleles, error) {
	_, datasets, err := s.meta.SampleSetDatasets(ctx, sampleSet)
	if err != nil {
		return nil, err
	}
	if err := s.checkRange(rng); err != nil {
		return nil, err
	}

	start := time.Now()
	als := make(genome.DiscoveredAlleles)
	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, records, err := s.data.DatasetRangeAndHeader(ctx, ds, rng)
		if err != nil {
			return nil, err
		}
		local, err := s.engine.Dataset(ds, records)
		if err != nil {
			return nil, err
		}
		discover.Merge(local, als)
	}

	if err := s.engine.CheckReferences(als); err != nil {
		return nil, err
	}

	s.logger.Info("discovered alleles",
		zap.String("sample_set", sampleSet),
		zap.String("range", s.meta.contigs.Format(rng)),
		zap.Int("datasets", len(datasets)),
		zap.Int("alleles", len(als)),
		zap.Duration("elapsed", time.Since(start)))
	return als, nil
}

func (s *Service) checkRange(rng genome.Range) error {
	contigs := s.meta.contigs
	if rng.ContigID < 0 || rng.ContigID >= len(contigs) {
		return status.Newf(status.Invalid, "unknown contig", rng.String())
	}
	if rng.Begin < 0 || rng.End <= rng.Begin {
		return &status.Error{Kind: status.Invalid, Message: "empty range", Range: contigs.Format(rng)}
	}
	return nil
}

// GenotypeSites genotypes the samples of a sample set at sites with fn and
// writes a VCF to filename ("-" for standard output, ".gz" for BGZF).
// Records are written in site order. Sites must already be in the desired
// output order.
//
// Failing to build the header is a status.Failure; failing to open, write
// or close the output is a status.IOError. The output is closed on every
// path.
func (s *Service) GenotypeSites(ctx context.Context, fn genotype.Func, sampleSet string, sites []genotype.Site, filename string) error {
	for i, site := range sites {
		if err := s.checkRange(site.Range); err != nil {
			return err
		}
		if err := site.Validate(); err != nil {
			se := err.(*status.Error)
			se.Range = s.meta.contigs.Format(site.Range)
			se.Detail = fmt.Sprintf("site %d", i+1)
			return se
		}
	}

	samples, datasets, err := s.meta.SampleSetDatasets(ctx, sampleSet)
	if err != nil {
		return err
	}

	header, err := output.BuildHeader(s.meta.contigs, samples)
	if err != nil {
		return err
	}

	f, err := output.Create(filename)
	if err != nil {
		return &status.Error{Kind: status.IOError, Message: "failed to open output file", Detail: filename, Err: err}
	}
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
	}()

	w := output.NewVCFWriter(f, header)
	if err := w.WriteHeader(); err != nil {
		return &status.Error{Kind: status.IOError, Message: "failed to write output header", Detail: filename, Err: err}
	}

	start := time.Now()
	written := 0
	emit := func(rec *vcf.Record) error {
		if err := w.Write(rec); err != nil {
			return &status.Error{Kind: status.IOError, Message: "failed to write output record", Detail: filename, Err: err}
		}
		written++
		return nil
	}
	if err := genotype.Run(ctx, s.pool, sites, samples, datasets, fn, emit); err != nil {
		return err
	}

	if err := w.Flush(); err != nil {
		return &status.Error{Kind: status.IOError, Message: "failed to write output file", Detail: filename, Err: err}
	}
	closed = true
	if err := f.Close(); err != nil {
		return &status.Error{Kind: status.IOError, Message: "failed to close output file", Detail: filename, Err: err}
	}

	s.logger.Info("genotyped sites",
		zap.String("sample_set", sampleSet),
		zap.Int("samples", len(samples)),
		zap.Int("sites", written),
		zap.String("output", filename),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
