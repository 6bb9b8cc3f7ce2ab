package genome

import (
	"sort"
	"strings"
)

// Allele is a DNA sequence at a genomic range. DNA is always upper case, so
// two Alleles are equal iff their ranges and normalized sequences are.
type Allele struct {
	Pos Range
	DNA string
}

// NewAllele returns the allele at pos with its sequence upper-cased.
func NewAllele(pos Range, dna string) Allele {
	return Allele{Pos: pos, DNA: strings.ToUpper(dna)}
}

// IsDNA reports whether s is a non-empty string over A, C, G and T only.
// Symbolic alleles such as <NON_REF>, the "*" overlap marker and IUPAC
// ambiguity codes all fail.
func IsDNA(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}
	return true
}

// DiscoveredAlleleInfo is what discovery learned about one allele.
type DiscoveredAlleleInfo struct {
	IsRef            bool
	ObservationCount float64
}

// DiscoveredAlleles maps each distinct allele to its discovery info.
type DiscoveredAlleles map[Allele]DiscoveredAlleleInfo

// Ranges returns the distinct ranges present, in sorted order.
func (d DiscoveredAlleles) Ranges() []Range {
	seen := make(map[Range]struct{}, len(d))
	for al := range d {
		seen[al.Pos] = struct{}{}
	}
	ranges := make([]Range, 0, len(seen))
	for r := range seen {
		ranges = append(ranges, r)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Less(ranges[j]) })
	return ranges
}

// Sorted returns the alleles ordered by range and then sequence.
func (d DiscoveredAlleles) Sorted() []Allele {
	als := make([]Allele, 0, len(d))
	for al := range d {
		als = append(als, al)
	}
	sort.Slice(als, func(i, j int) bool {
		if c := als[i].Pos.Compare(als[j].Pos); c != 0 {
			return c < 0
		}
		return als[i].DNA < als[j].DNA
	})
	return als
}
