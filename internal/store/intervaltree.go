package store

import (
	"sort"

	"github.com/inodb/vibe-joint/internal/vcf"
)

// IntervalTree provides O(log n + k) overlap queries over one contig's
// records using a sorted-slice approach. Records are loaded once and never
// modified after build.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	begin  int64
	end    int64
	record *vcf.Record
}

// BuildIntervalTree creates an interval tree from records whose Range has
// been resolved. Records keep their file order among equal begins.
func BuildIntervalTree(records []*vcf.Record) *IntervalTree {
	if len(records) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(records))
	for i, r := range records {
		intervals[i] = interval{begin: r.Range.Begin, end: r.Range.End, record: r}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].begin < intervals[j].begin
	})

	// Build prefix-max array: maxEnd[i] = max(end) for intervals[:i+1]
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// FindOverlaps returns all records overlapping the half-open interval
// [begin, end), ordered by begin.
func (t *IntervalTree) FindOverlaps(begin, end int64) []*vcf.Record {
	if len(t.intervals) == 0 {
		return nil
	}

	// Candidates all start before end: [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].begin >= end
	})

	var result []*vcf.Record
	for i := hi - 1; i >= 0; i-- {
		// Prune: nothing in intervals[:i+1] reaches past begin.
		if t.maxEnd[i] <= begin {
			break
		}
		if t.intervals[i].end > begin {
			result = append(result, t.intervals[i].record)
		}
	}

	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result
}

// Len returns the number of indexed records.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}
