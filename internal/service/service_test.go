package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/genotype"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/store"
	"github.com/inodb/vibe-joint/internal/vcf"
)

var testContigs = genome.Contigs{{Name: "21", Length: 48129895}, {Name: "22", Length: 51304566}}

// fakeMeta is an in-memory Metadata counting sample set lookups.
type fakeMeta struct {
	contigs    genome.Contigs
	contigsErr error
	sets       map[string][2][]string
	lookups    int
}

func (m *fakeMeta) Contigs(context.Context) (genome.Contigs, error) {
	return m.contigs, m.contigsErr
}

func (m *fakeMeta) SampleSetDatasets(_ context.Context, name string) ([]string, []string, error) {
	m.lookups++
	s, ok := m.sets[name]
	if !ok {
		return nil, nil, status.Newf(status.NotFound, "unknown sample set", name)
	}
	return s[0], s[1], nil
}

func newMeta() *fakeMeta {
	return &fakeMeta{
		contigs: testContigs,
		sets: map[string][2][]string{
			"trio":     {{"NA12878", "NA12891", "NA12892"}, {"child", "parents"}},
			"parents":  {{"NA12891", "NA12892"}, {"parents"}},
			"conflict": {{"NA12878", "X"}, {"child", "conflicting"}},
			"badref":   {{"NA12878", "Y"}, {"child", "badref"}},
			"missing":  {{"NA12878", "Z"}, {"child", "nowhere"}},
			"dupes":    {{"NA12878", "NA12878"}, {"child"}},
		},
	}
}

func rec(chrom string, pos int64, alleles []string, calls ...string) *vcf.Record {
	r := &vcf.Record{Chrom: chrom, Pos: pos, Alleles: alleles}
	for _, c := range calls {
		r.Genotypes = append(r.Genotypes, vcf.ParseGenotype(c))
	}
	return r
}

func newStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	require.NoError(t, m.AddVCF("child", &vcf.Header{Samples: []string{"NA12878"}}, []*vcf.Record{
		rec("21", 1000, []string{"A", "G"}, "0/1"),
		rec("21", 3000, []string{"C", "<NON_REF>"}, "0/0"),
	}, testContigs))
	require.NoError(t, m.AddVCF("parents", &vcf.Header{Samples: []string{"NA12891", "NA12892"}}, []*vcf.Record{
		rec("21", 1000, []string{"A", "G", "T"}, "1/1", "0/2"),
		rec("21", 2000, []string{"ACT", "A"}, "0/1", "0/0"),
		rec("22", 1000, []string{"G", "C"}, "0/1", "0/1"),
	}, testContigs))
	require.NoError(t, m.AddVCF("conflicting", &vcf.Header{Samples: []string{"X"}}, []*vcf.Record{
		rec("21", 1000, []string{"G", "C"}, "0/1"),
	}, testContigs))
	require.NoError(t, m.AddVCF("badref", &vcf.Header{Samples: []string{"Y"}}, []*vcf.Record{
		rec("21", 1500, []string{"N", "A"}, "0/1"),
	}, testContigs))
	return m
}

func startService(t *testing.T, meta Metadata) *Service {
	t.Helper()
	svc, err := Start(context.Background(), meta, newStore(t), WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc
}

func contig21(t *testing.T) genome.Range {
	t.Helper()
	rng, err := testContigs.ParseRange("21")
	require.NoError(t, err)
	return rng
}

func TestStart_ContigsError(t *testing.T) {
	meta := newMeta()
	meta.contigsErr = errors.New("catalog unavailable")
	_, err := Start(context.Background(), meta, store.NewMemory())
	assert.ErrorContains(t, err, "catalog unavailable")
}

func TestDiscoverAlleles(t *testing.T) {
	svc := startService(t, newMeta())

	als, err := svc.DiscoverAlleles(context.Background(), "trio", contig21(t))
	require.NoError(t, err)

	snv := genome.Range{ContigID: 0, Begin: 999, End: 1000}
	del := genome.Range{ContigID: 0, Begin: 1999, End: 2002}
	assert.Equal(t, genome.DiscoveredAlleles{
		genome.NewAllele(snv, "A"):   {IsRef: true, ObservationCount: 2},
		genome.NewAllele(snv, "G"):   {IsRef: false, ObservationCount: 3},
		genome.NewAllele(snv, "T"):   {IsRef: false, ObservationCount: 1},
		genome.NewAllele(del, "ACT"): {IsRef: true, ObservationCount: 3},
		genome.NewAllele(del, "A"):   {IsRef: false, ObservationCount: 1},
	}, als)
}

func TestDiscoverAlleles_SubRange(t *testing.T) {
	svc := startService(t, newMeta())

	rng, err := testContigs.ParseRange("21:1500-2500")
	require.NoError(t, err)
	als, err := svc.DiscoverAlleles(context.Background(), "trio", rng)
	require.NoError(t, err)
	assert.Len(t, als, 2)
}

func TestDiscoverAlleles_Errors(t *testing.T) {
	tests := []struct {
		name      string
		sampleSet string
		rng       genome.Range
		kind      *status.Error
		msg       string
	}{
		{"unknown sample set", "nope", genome.Range{ContigID: 0, Begin: 0, End: 10}, status.ErrNotFound, "unknown sample set"},
		{"unknown sample set and contig", "nope", genome.Range{ContigID: 7, Begin: 0, End: 10}, status.ErrNotFound, "unknown sample set"},
		{"unknown contig", "trio", genome.Range{ContigID: 7, Begin: 0, End: 10}, status.ErrInvalid, "unknown contig"},
		{"empty range", "trio", genome.Range{ContigID: 0, Begin: 10, End: 10}, status.ErrInvalid, "empty range"},
		{"inconsistent references", "conflict", genome.Range{ContigID: 0, Begin: 0, End: 5000}, status.ErrInvalid, "inconsistent reference alleles"},
		{"invalid reference", "badref", genome.Range{ContigID: 0, Begin: 0, End: 5000}, status.ErrInvalid, "invalid reference allele"},
		{"missing dataset", "missing", genome.Range{ContigID: 0, Begin: 0, End: 5000}, status.ErrNotFound, "nowhere"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := startService(t, newMeta())
			als, err := svc.DiscoverAlleles(context.Background(), tt.sampleSet, tt.rng)
			require.Error(t, err)
			assert.Nil(t, als)
			assert.ErrorIs(t, err, tt.kind)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDiscoverAlleles_Cancelled(t *testing.T) {
	svc := startService(t, newMeta())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.DiscoverAlleles(ctx, "trio", contig21(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func trioSites() []genotype.Site {
	return []genotype.Site{
		{Range: genome.Range{ContigID: 0, Begin: 999, End: 1000}, Alleles: []string{"A", "G", "T"}},
		{Range: genome.Range{ContigID: 0, Begin: 1999, End: 2002}, Alleles: []string{"ACT", "A"}},
		{Range: genome.Range{ContigID: 0, Begin: 2999, End: 3000}, Alleles: []string{"C", "T"}},
		{Range: genome.Range{ContigID: 1, Begin: 999, End: 1000}, Alleles: []string{"G", "C"}},
	}
}

func TestGenotypeSites(t *testing.T) {
	svc := startService(t, newMeta())
	fn := genotype.NewHardCaller(newStore(t), testContigs).Genotype
	out := filepath.Join(t.TempDir(), "trio.vcf.gz")

	require.NoError(t, svc.GenotypeSites(context.Background(), fn, "trio", trioSites(), out))

	p, err := vcf.NewParser(out)
	require.NoError(t, err)
	defer p.Close()
	records, err := p.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"NA12878", "NA12891", "NA12892"}, p.SampleNames())
	assert.Contains(t, p.Header().Lines, "##contig=<ID=22,length=51304566>")
	require.Len(t, records, 4)

	want := []struct {
		chrom string
		pos   int64
		gts   []string
	}{
		{"21", 1000, []string{"0/1", "1/1", "0/2"}},
		{"21", 2000, []string{"./.", "0/1", "0/0"}},
		{"21", 3000, []string{"0/0", "./.", "./."}},
		{"22", 1000, []string{"./.", "0/1", "0/1"}},
	}
	for i, w := range want {
		r := records[i]
		assert.Equal(t, w.chrom, r.Chrom)
		assert.Equal(t, w.pos, r.Pos)
		got := make([]string, len(r.Genotypes))
		for j, g := range r.Genotypes {
			got[j] = g.String()
		}
		assert.Equal(t, w.gts, got, "site %d", i)
	}
}

func TestGenotypeSites_GenotyperError(t *testing.T) {
	svc := startService(t, newMeta())
	boom := errors.New("model failed")
	fn := func(_ context.Context, s genotype.Site, _, _ []string) (*vcf.Record, error) {
		if s.Range.Begin == 1999 {
			return nil, boom
		}
		return &vcf.Record{Chrom: "21", Pos: s.Range.Begin + 1, Alleles: s.Alleles,
			Genotypes: make([]vcf.Genotype, 3)}, nil
	}
	out := filepath.Join(t.TempDir(), "trio.vcf")

	err := svc.GenotypeSites(context.Background(), fn, "trio", trioSites(), out)
	assert.ErrorIs(t, err, boom)
}

func TestGenotypeSites_Errors(t *testing.T) {
	fn := func(_ context.Context, s genotype.Site, _, _ []string) (*vcf.Record, error) {
		return &vcf.Record{Chrom: "21", Pos: s.Range.Begin + 1, Alleles: s.Alleles}, nil
	}
	dir := t.TempDir()

	tests := []struct {
		name      string
		sampleSet string
		sites     []genotype.Site
		out       string
		kind      *status.Error
	}{
		{"unknown sample set", "nope", trioSites(), filepath.Join(dir, "a.vcf"), status.ErrNotFound},
		{"header failure", "dupes", trioSites(), filepath.Join(dir, "b.vcf"), status.ErrFailure},
		{"open failure", "trio", trioSites(), filepath.Join(dir, "no", "such", "dir.vcf"), status.ErrIOError},
		{"record write failure", "trio", trioSites(), filepath.Join(dir, "c.vcf"), status.ErrIOError},
		{"invalid site", "trio", []genotype.Site{{Range: genome.Range{ContigID: 0, Begin: 9, End: 10}, Alleles: []string{"A", "<DEL>"}}},
			filepath.Join(dir, "d.vcf"), status.ErrInvalid},
		{"site on unknown contig", "trio", []genotype.Site{{Range: genome.Range{ContigID: 9, Begin: 9, End: 10}, Alleles: []string{"A"}}},
			filepath.Join(dir, "e.vcf"), status.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := startService(t, newMeta())
			err := svc.GenotypeSites(context.Background(), fn, tt.sampleSet, tt.sites, tt.out)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestGenotypeSites_EmptySites(t *testing.T) {
	svc := startService(t, newMeta())
	out := filepath.Join(t.TempDir(), "empty.vcf")

	require.NoError(t, svc.GenotypeSites(context.Background(), nil, "parents", nil, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\tFORMAT\tNA12891\tNA12892\n")
}

func TestMetadataCache(t *testing.T) {
	ctx := context.Background()
	meta := newMeta()
	cache, err := StartMetadataCache(ctx, meta)
	require.NoError(t, err)

	contigs, err := cache.Contigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, testContigs, contigs)

	for range 3 {
		samples, datasets, err := cache.SampleSetDatasets(ctx, "parents")
		require.NoError(t, err)
		assert.Equal(t, []string{"NA12891", "NA12892"}, samples)
		assert.Equal(t, []string{"parents"}, datasets)
	}
	assert.Equal(t, 1, meta.lookups)

	for range 2 {
		_, _, err := cache.SampleSetDatasets(ctx, "nope")
		assert.ErrorIs(t, err, status.ErrNotFound)
	}
	assert.Equal(t, 3, meta.lookups, "failures are not cached")
}
