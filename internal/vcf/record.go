// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"strconv"
	"strings"

	"github.com/inodb/vibe-joint/internal/genome"
)

// MissingAllele is the allele index of a no-call ('.') in a genotype.
const MissingAllele = -1

// Header holds the meta-information lines and sample columns of a VCF file.
type Header struct {
	Lines   []string // ## lines and the #CHROM line, in file order
	Samples []string // sample names from the #CHROM line
}

// SampleIndex returns the column index of each sample.
func (h *Header) SampleIndex() map[string]int {
	idx := make(map[string]int, len(h.Samples))
	for i, s := range h.Samples {
		idx[s] = i
	}
	return idx
}

// Record is a single multi-allelic VCF data line with its genotype calls.
type Record struct {
	Chrom     string                 // Chromosome name (e.g., "21", "chr21")
	Pos       int64                  // 1-based genomic position
	ID        string                 // Variant identifier (e.g., rs ID)
	Alleles   []string               // Alleles[0] is the reference, the rest are alternates
	Qual      float64                // Quality score
	Filter    string                 // Filter status (PASS or filter name)
	Info      map[string]interface{} // INFO field key-value pairs
	Format    []string               // FORMAT keys
	Genotypes []Genotype             // GT per sample, in header order

	// Range is the record's span on the catalog contigs. It is filled in by
	// the dataset store, which knows the contig list; the parser leaves it
	// zero.
	Range genome.Range
}

// Ref returns the reference allele.
func (r *Record) Ref() string {
	if len(r.Alleles) == 0 {
		return ""
	}
	return r.Alleles[0]
}

// Alts returns the alternate alleles.
func (r *Record) Alts() []string {
	if len(r.Alleles) < 2 {
		return nil
	}
	return r.Alleles[1:]
}

// Span returns the zero-based half-open interval the record covers. The
// reference length decides the end unless an INFO END key (gVCF reference
// blocks) extends it.
func (r *Record) Span() (begin, end int64) {
	begin = r.Pos - 1
	end = begin + int64(len(r.Ref()))
	if v, ok := r.Info["END"].(string); ok {
		if e, err := strconv.ParseInt(v, 10, 64); err == nil && e > begin {
			end = e
		}
	}
	if end <= begin {
		end = begin + 1
	}
	return begin, end
}

// Genotype is one sample's hard call.
type Genotype struct {
	Alleles []int // allele indices; MissingAllele for '.'
	Phased  bool
}

// ParseGenotype parses a GT value such as "0/1", "1|0", "./." or "1".
func ParseGenotype(s string) Genotype {
	var g Genotype
	if s == "" {
		return g
	}
	g.Phased = strings.IndexByte(s, '|') >= 0
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '|' }) {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			idx = MissingAllele
		}
		g.Alleles = append(g.Alleles, idx)
	}
	return g
}

// String formats the genotype in VCF GT syntax.
func (g Genotype) String() string {
	if len(g.Alleles) == 0 {
		return "."
	}
	sep := "/"
	if g.Phased {
		sep = "|"
	}
	var b strings.Builder
	for i, a := range g.Alleles {
		if i > 0 {
			b.WriteString(sep)
		}
		if a == MissingAllele {
			b.WriteByte('.')
		} else {
			b.WriteString(strconv.Itoa(a))
		}
	}
	return b.String()
}

// IsCalled reports whether at least one allele is called.
func (g Genotype) IsCalled() bool {
	for _, a := range g.Alleles {
		if a != MissingAllele {
			return true
		}
	}
	return false
}
