package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/vcf"
)

func rec(id string, begin, end int64) *vcf.Record {
	return &vcf.Record{ID: id, Range: genome.Range{Begin: begin, End: end}}
}

func ids(records []*vcf.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestBuildIntervalTree_Empty(t *testing.T) {
	tree := BuildIntervalTree(nil)
	assert.Empty(t, tree.FindOverlaps(100, 101))
	assert.Equal(t, 0, tree.Len())
}

func TestIntervalTree_SingleRecord(t *testing.T) {
	tree := BuildIntervalTree([]*vcf.Record{rec("A", 100, 200)})

	assert.Equal(t, []string{"A"}, ids(tree.FindOverlaps(150, 151)))
	assert.Len(t, tree.FindOverlaps(100, 101), 1, "begin inclusive")
	assert.Len(t, tree.FindOverlaps(199, 200), 1, "last base")
	assert.Empty(t, tree.FindOverlaps(200, 201), "end exclusive")
	assert.Empty(t, tree.FindOverlaps(50, 100), "query ends at begin")
	assert.Len(t, tree.FindOverlaps(0, 1000), 1, "query covers record")
}

func TestIntervalTree_Overlapping(t *testing.T) {
	tree := BuildIntervalTree([]*vcf.Record{
		rec("C", 200, 400),
		rec("A", 100, 300),
		rec("B", 150, 250),
	})

	assert.Equal(t, []string{"A", "B"}, ids(tree.FindOverlaps(175, 176)))
	assert.Equal(t, []string{"A", "B", "C"}, ids(tree.FindOverlaps(249, 250)))
	assert.Equal(t, []string{"C"}, ids(tree.FindOverlaps(350, 351)))
	assert.Equal(t, []string{"A", "B", "C"}, ids(tree.FindOverlaps(0, 1000)), "ordered by begin")
}

func TestIntervalTree_NonOverlapping(t *testing.T) {
	tree := BuildIntervalTree([]*vcf.Record{
		rec("A", 100, 200),
		rec("B", 300, 400),
		rec("C", 500, 600),
	})

	assert.Equal(t, []string{"A"}, ids(tree.FindOverlaps(150, 151)))
	assert.Empty(t, tree.FindOverlaps(250, 260), "gap between A and B")
	assert.Equal(t, []string{"B", "C"}, ids(tree.FindOverlaps(350, 550)))
}

func TestIntervalTree_LongRecordBeforeShortOnes(t *testing.T) {
	// A long reference block followed by short records: the block must
	// still be found past the end of the short ones.
	tree := BuildIntervalTree([]*vcf.Record{
		rec("block", 100, 500),
		rec("short1", 105, 106),
		rec("short2", 110, 111),
	})

	assert.Equal(t, []string{"block"}, ids(tree.FindOverlaps(400, 401)))
}

func TestIntervalTree_StableForEqualBegins(t *testing.T) {
	tree := BuildIntervalTree([]*vcf.Record{
		rec("first", 100, 101),
		rec("second", 100, 101),
	})
	assert.Equal(t, []string{"first", "second"}, ids(tree.FindOverlaps(100, 101)))
}
