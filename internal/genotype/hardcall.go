package genotype

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/store"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// HardCaller is a Func that copies each sample's existing hard call onto a
// site's alleles. It does no statistical modelling:
//   - a record with exactly the site's range has its allele indices mapped
//     onto the site alleles by sequence; unknown sequences become no-calls;
//   - otherwise a reference block covering the site gives hom-ref;
//   - otherwise the sample is a no-call.
//
// A sample present in several datasets takes its call from the first
// dataset in name order.
type HardCaller struct {
	data    store.Source
	contigs genome.Contigs
}

// NewHardCaller creates a HardCaller reading records from data.
func NewHardCaller(data store.Source, contigs genome.Contigs) *HardCaller {
	return &HardCaller{data: data, contigs: contigs}
}

// Genotype implements Func.
func (h *HardCaller) Genotype(ctx context.Context, site Site, samples, datasets []string) (*vcf.Record, error) {
	want := make(map[string]int, len(samples))
	for i, s := range samples {
		want[s] = i
	}
	siteIdx := make(map[string]int, len(site.Alleles))
	for i, a := range site.Alleles {
		siteIdx[strings.ToUpper(a)] = i
	}

	calls := make([]vcf.Genotype, len(samples))
	found := make([]bool, len(samples))

	ordered := append([]string(nil), datasets...)
	sort.Strings(ordered)
	for _, ds := range ordered {
		header, records, err := h.data.DatasetRangeAndHeader(ctx, ds, site.Range)
		if err != nil {
			return nil, err
		}
		for col, name := range header.Samples {
			i, ok := want[name]
			if !ok || found[i] {
				continue
			}
			calls[i] = callSample(site, siteIdx, records, col)
			found[i] = true
		}
	}

	for i := range calls {
		if !found[i] {
			calls[i] = noCall(2)
		}
	}

	return &vcf.Record{
		Chrom:     h.chrom(site.Range.ContigID),
		Pos:       site.Range.Begin + 1,
		ID:        ".",
		Alleles:   append([]string(nil), site.Alleles...),
		Filter:    ".",
		Format:    []string{"GT"},
		Genotypes: calls,
		Range:     site.Range,
	}, nil
}

func (h *HardCaller) chrom(id int) string {
	if id >= 0 && id < len(h.contigs) {
		return h.contigs[id].Name
	}
	return fmt.Sprintf("#%d", id)
}

// callSample derives the call of the sample in column col.
func callSample(site Site, siteIdx map[string]int, records []*vcf.Record, col int) vcf.Genotype {
	var block *vcf.Record
	for _, r := range records {
		if col >= len(r.Genotypes) {
			continue
		}
		if r.Range == site.Range {
			return remap(r, r.Genotypes[col], siteIdx)
		}
		if block == nil && isRefBlock(r) && r.Range.Contains(site.Range) {
			block = r
		}
	}
	if block == nil {
		return noCall(2)
	}

	g := block.Genotypes[col]
	if len(g.Alleles) == 0 {
		return noCall(2)
	}
	for _, a := range g.Alleles {
		if a != 0 {
			return noCall(len(g.Alleles))
		}
	}
	return vcf.Genotype{Alleles: make([]int, len(g.Alleles)), Phased: g.Phased}
}

// remap translates g's allele indices from r's alleles to the site's.
func remap(r *vcf.Record, g vcf.Genotype, siteIdx map[string]int) vcf.Genotype {
	out := vcf.Genotype{Alleles: make([]int, len(g.Alleles)), Phased: g.Phased}
	for j, a := range g.Alleles {
		out.Alleles[j] = vcf.MissingAllele
		if a < 0 || a >= len(r.Alleles) {
			continue
		}
		if i, ok := siteIdx[strings.ToUpper(r.Alleles[a])]; ok {
			out.Alleles[j] = i
		}
	}
	if len(out.Alleles) == 0 {
		return noCall(2)
	}
	return out
}

// isRefBlock reports whether r has no DNA alternate alleles.
func isRefBlock(r *vcf.Record) bool {
	for _, a := range r.Alts() {
		if genome.IsDNA(strings.ToUpper(a)) {
			return false
		}
	}
	return true
}

func noCall(ploidy int) vcf.Genotype {
	g := vcf.Genotype{Alleles: make([]int, ploidy)}
	for i := range g.Alleles {
		g.Alleles[i] = vcf.MissingAllele
	}
	return g
}
