// Package genome provides the coordinate and allele value types shared by
// discovery and genotyping.
package genome

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a zero-based, half-open genomic interval [Begin, End) on a contig
// identified by its index in the catalog's contig list.
type Range struct {
	ContigID int
	Begin    int64
	End      int64
}

// Compare returns a negative number, zero or a positive number when r sorts
// before, equal to or after o. Ranges order by contig, then begin, then end.
func (r Range) Compare(o Range) int {
	switch {
	case r.ContigID != o.ContigID:
		return cmpInt64(int64(r.ContigID), int64(o.ContigID))
	case r.Begin != o.Begin:
		return cmpInt64(r.Begin, o.Begin)
	default:
		return cmpInt64(r.End, o.End)
	}
}

// Less reports whether r sorts before o.
func (r Range) Less(o Range) bool {
	return r.Compare(o) < 0
}

// Overlaps reports whether r and o share at least one base.
func (r Range) Overlaps(o Range) bool {
	return r.ContigID == o.ContigID && r.Begin < o.End && o.Begin < r.End
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return r.ContigID == o.ContigID && r.Begin <= o.Begin && o.End <= r.End
}

// Len returns the number of bases covered by r.
func (r Range) Len() int64 {
	return r.End - r.Begin
}

// String renders r without contig names. Use Contigs.Format for
// human-facing output.
func (r Range) String() string {
	return fmt.Sprintf("#%d:%d-%d", r.ContigID, r.Begin+1, r.End)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Contig is a named reference sequence.
type Contig struct {
	Name   string
	Length int64
}

// Contigs is the ordered contig list; a Range's ContigID indexes into it.
type Contigs []Contig

// Format renders r as name:begin-end using 1-based inclusive coordinates.
func (cs Contigs) Format(r Range) string {
	if r.ContigID < 0 || r.ContigID >= len(cs) {
		return r.String()
	}
	return fmt.Sprintf("%s:%d-%d", cs[r.ContigID].Name, r.Begin+1, r.End)
}

// Index returns a name to ContigID lookup.
func (cs Contigs) Index() map[string]int {
	idx := make(map[string]int, len(cs))
	for i, c := range cs {
		idx[c.Name] = i
	}
	return idx
}

// ParseRange parses a region in the usual "chr:begin-end" form (1-based,
// inclusive). A bare contig name selects the whole contig and "chr:pos"
// selects a single base.
func (cs Contigs) ParseRange(s string) (Range, error) {
	name, span, hasSpan := strings.Cut(strings.TrimSpace(s), ":")
	id := -1
	for i, c := range cs {
		if c.Name == name {
			id = i
			break
		}
	}
	if id < 0 {
		return Range{}, fmt.Errorf("unknown contig %q", name)
	}
	if !hasSpan {
		return Range{ContigID: id, Begin: 0, End: cs[id].Length}, nil
	}

	span = strings.ReplaceAll(span, ",", "")
	first, last, isInterval := strings.Cut(span, "-")
	begin, err := strconv.ParseInt(first, 10, 64)
	if err != nil || begin < 1 {
		return Range{}, fmt.Errorf("invalid begin position in %q", s)
	}
	end := begin
	if isInterval {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil {
			return Range{}, fmt.Errorf("invalid end position in %q", s)
		}
	}
	if end < begin {
		return Range{}, fmt.Errorf("end before begin in %q", s)
	}
	return Range{ContigID: id, Begin: begin - 1, End: end}, nil
}
