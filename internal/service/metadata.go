package service

import (
	"context"
	"sync"

	"github.com/inodb/vibe-joint/internal/genome"
)

// Metadata resolves sample sets and describes the reference genome.
type Metadata interface {
	// SampleSetDatasets returns the samples of a sample set and the
	// datasets holding them. An unknown set is a status.NotFound error.
	SampleSetDatasets(ctx context.Context, sampleSet string) (samples, datasets []string, err error)
	// Contigs returns the reference contigs in order.
	Contigs(ctx context.Context) (genome.Contigs, error)
}

// MetadataCache memoizes a Metadata. Contigs are loaded once at start;
// sample set resolutions are cached on first use. Failed resolutions are
// not cached.
type MetadataCache struct {
	inner   Metadata
	contigs genome.Contigs

	mu   sync.Mutex
	sets map[string]sampleSet
}

type sampleSet struct {
	samples, datasets []string
}

// StartMetadataCache loads the contigs of inner and returns a cache over it.
func StartMetadataCache(ctx context.Context, inner Metadata) (*MetadataCache, error) {
	contigs, err := inner.Contigs(ctx)
	if err != nil {
		return nil, err
	}
	return &MetadataCache{
		inner:   inner,
		contigs: contigs,
		sets:    make(map[string]sampleSet),
	}, nil
}

// Contigs implements Metadata.
func (m *MetadataCache) Contigs(context.Context) (genome.Contigs, error) {
	return m.contigs, nil
}

// SampleSetDatasets implements Metadata.
func (m *MetadataCache) SampleSetDatasets(ctx context.Context, name string) ([]string, []string, error) {
	m.mu.Lock()
	s, ok := m.sets[name]
	m.mu.Unlock()
	if ok {
		return s.samples, s.datasets, nil
	}

	samples, datasets, err := m.inner.SampleSetDatasets(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.sets[name] = sampleSet{samples: samples, datasets: datasets}
	m.mu.Unlock()
	return samples, datasets, nil
}
