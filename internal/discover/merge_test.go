package discover

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
)

var (
	snv   = genome.Range{ContigID: 0, Begin: 999, End: 1000}
	del   = genome.Range{ContigID: 0, Begin: 999, End: 1002}
	other = genome.Range{ContigID: 0, Begin: 4999, End: 5000}
)

func threeDatasets() []genome.DiscoveredAlleles {
	return []genome.DiscoveredAlleles{
		{
			genome.NewAllele(snv, "A"): {IsRef: true, ObservationCount: 3},
			genome.NewAllele(snv, "G"): {IsRef: false, ObservationCount: 1},
		},
		{
			genome.NewAllele(snv, "A"): {IsRef: true, ObservationCount: 1},
			genome.NewAllele(snv, "T"): {IsRef: false, ObservationCount: 2},
			genome.NewAllele(del, "ACT"): {IsRef: true, ObservationCount: 1},
			genome.NewAllele(del, "A"):   {IsRef: false, ObservationCount: 1},
		},
		{
			genome.NewAllele(snv, "G"):   {IsRef: false, ObservationCount: 4},
			genome.NewAllele(snv, "A"):   {IsRef: true, ObservationCount: 0},
			genome.NewAllele(other, "C"): {IsRef: true, ObservationCount: 2},
			genome.NewAllele(other, "T"): {IsRef: false, ObservationCount: 2},
		},
	}
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var out [][]int
	for _, p := range permutations(n - 1) {
		for i := 0; i <= len(p); i++ {
			q := append(append(append([]int{}, p[:i]...), n-1), p[i:]...)
			out = append(out, q)
		}
	}
	return out
}

func TestMerge_OrderIndependent(t *testing.T) {
	var first genome.DiscoveredAlleles
	for _, order := range permutations(3) {
		datasets := threeDatasets()
		acc := make(genome.DiscoveredAlleles)
		for _, i := range order {
			Merge(datasets[i], acc)
		}
		if first == nil {
			first = acc
			continue
		}
		assert.Equal(t, first, acc, "order %v", order)
	}

	assert.Equal(t, genome.DiscoveredAlleleInfo{IsRef: true, ObservationCount: 4}, first[genome.NewAllele(snv, "A")])
	assert.Equal(t, genome.DiscoveredAlleleInfo{IsRef: false, ObservationCount: 5}, first[genome.NewAllele(snv, "G")])
	assert.Len(t, first, 7)
}

func TestMerge_Associative(t *testing.T) {
	d := threeDatasets()

	// (a + b) + c
	left := make(genome.DiscoveredAlleles)
	Merge(d[0], left)
	Merge(d[1], left)
	Merge(d[2], left)

	// a + (b + c)
	d = threeDatasets()
	bc := make(genome.DiscoveredAlleles)
	Merge(d[1], bc)
	Merge(d[2], bc)
	right := make(genome.DiscoveredAlleles)
	Merge(d[0], right)
	Merge(bc, right)

	assert.Equal(t, left, right)
}

func TestMerge_IsRefIsOred(t *testing.T) {
	acc := genome.DiscoveredAlleles{genome.NewAllele(snv, "A"): {IsRef: false, ObservationCount: 1}}
	Merge(genome.DiscoveredAlleles{genome.NewAllele(snv, "A"): {IsRef: true, ObservationCount: 2}}, acc)

	assert.Equal(t, genome.DiscoveredAlleleInfo{IsRef: true, ObservationCount: 3}, acc[genome.NewAllele(snv, "A")])
}

func TestCheckReferences_Consistent(t *testing.T) {
	e := NewEngine(testContigs)
	acc := make(genome.DiscoveredAlleles)
	for _, d := range threeDatasets() {
		Merge(d, acc)
	}
	require.NoError(t, e.CheckReferences(acc))

	// every range has exactly one reference allele
	for _, rng := range acc.Ranges() {
		refs := 0
		for al, info := range acc {
			if al.Pos == rng && info.IsRef {
				refs++
			}
		}
		assert.Equal(t, 1, refs, "range %v", rng)
	}
}

func TestCheckReferences_Empty(t *testing.T) {
	e := NewEngine(testContigs)
	assert.NoError(t, e.CheckReferences(genome.DiscoveredAlleles{}))
}

func TestCheckReferences_Inconsistent(t *testing.T) {
	e := NewEngine(testContigs)
	datasetA := genome.DiscoveredAlleles{
		genome.NewAllele(snv, "A"): {IsRef: true, ObservationCount: 1},
		genome.NewAllele(snv, "C"): {IsRef: false, ObservationCount: 1},
	}
	datasetB := genome.DiscoveredAlleles{
		genome.NewAllele(snv, "G"): {IsRef: true, ObservationCount: 1},
		genome.NewAllele(snv, "C"): {IsRef: false, ObservationCount: 1},
	}

	// Each dataset alone is fine.
	require.NoError(t, e.CheckReferences(datasetA))
	require.NoError(t, e.CheckReferences(datasetB))

	acc := make(genome.DiscoveredAlleles)
	Merge(datasetA, acc)
	Merge(datasetB, acc)

	err := e.CheckReferences(acc)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrInvalid)

	var se *status.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "data sets contain inconsistent reference alleles", se.Message)
	assert.Equal(t, []string{"A", "G"}, se.Alleles)
	assert.Equal(t, "21:1000-1000", se.Range)
	assert.Contains(t, err.Error(), "A G")
}

func TestCheckReferences_NoReference(t *testing.T) {
	e := NewEngine(testContigs)
	als := genome.DiscoveredAlleles{
		genome.NewAllele(snv, "A"):   {IsRef: true, ObservationCount: 1},
		genome.NewAllele(snv, "G"):   {IsRef: false, ObservationCount: 1},
		genome.NewAllele(other, "T"): {IsRef: false, ObservationCount: 1},
	}

	err := e.CheckReferences(als)
	require.Error(t, err)

	var se *status.Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "data sets contain no reference allele", se.Message)
	assert.Equal(t, "21:5000-5000", se.Range)
}

func TestCheckReferences_FirstViolationInRangeOrder(t *testing.T) {
	e := NewEngine(testContigs)
	als := genome.DiscoveredAlleles{
		genome.NewAllele(other, "T"): {IsRef: false, ObservationCount: 1},
		genome.NewAllele(snv, "A"):   {IsRef: true, ObservationCount: 1},
		genome.NewAllele(snv, "C"):   {IsRef: true, ObservationCount: 1},
	}

	var se *status.Error
	require.ErrorAs(t, e.CheckReferences(als), &se)
	assert.Equal(t, "21:1000-1000", se.Range)
}
