package genotype

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
)

// Site is a unified site: a range and the alleles to genotype there, the
// reference first.
type Site struct {
	Range   genome.Range
	Alleles []string
}

// Ref returns the reference allele.
func (s Site) Ref() string {
	if len(s.Alleles) == 0 {
		return ""
	}
	return s.Alleles[0]
}

// Validate checks that the site has a reference allele spanning its range
// and that all alleles are distinct DNA sequences.
func (s Site) Validate() error {
	if len(s.Alleles) == 0 {
		return status.New(status.Invalid, "site has no alleles")
	}
	seen := make(map[string]bool, len(s.Alleles))
	for _, a := range s.Alleles {
		if !genome.IsDNA(a) {
			return &status.Error{Kind: status.Invalid, Message: "invalid site allele", Alleles: []string{a}}
		}
		if seen[a] {
			return &status.Error{Kind: status.Invalid, Message: "duplicate site allele", Alleles: []string{a}}
		}
		seen[a] = true
	}
	if int64(len(s.Ref())) != s.Range.Len() {
		return &status.Error{
			Kind:    status.Invalid,
			Message: "reference allele does not span site",
			Alleles: []string{s.Ref()},
		}
	}
	return nil
}

// siteEntry is one site in a YAML site list.
type siteEntry struct {
	Contig  string   `yaml:"contig"`
	Pos     int64    `yaml:"pos"` // 1-based
	Alleles []string `yaml:"alleles"`
}

// LoadSites reads a YAML list of sites:
//
//	- contig: "21"
//	  pos: 1000
//	  alleles: [A, G]
//
// Sites are returned in file order; callers genotype them in that order.
func LoadSites(r io.Reader, contigs genome.Contigs) ([]Site, error) {
	var entries []siteEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode sites: %w", err)
	}

	index := contigs.Index()
	sites := make([]Site, 0, len(entries))
	for i, e := range entries {
		id, ok := index[e.Contig]
		if !ok {
			return nil, status.Newf(status.Invalid, "unknown contig", fmt.Sprintf("site %d: %s", i+1, e.Contig))
		}
		alleles := make([]string, len(e.Alleles))
		for j, a := range e.Alleles {
			alleles[j] = strings.ToUpper(a)
		}
		if e.Pos < 1 || len(alleles) == 0 {
			return nil, status.Newf(status.Invalid, "site needs a position and alleles", fmt.Sprintf("site %d", i+1))
		}
		begin := e.Pos - 1
		site := Site{
			Range:   genome.Range{ContigID: id, Begin: begin, End: begin + int64(len(alleles[0]))},
			Alleles: alleles,
		}
		if err := site.Validate(); err != nil {
			se := err.(*status.Error)
			se.Range = contigs.Format(site.Range)
			se.Detail = fmt.Sprintf("site %d", i+1)
			return nil, se
		}
		if l := contigs[id].Length; l > 0 && site.Range.End > l {
			return nil, &status.Error{
				Kind:    status.Invalid,
				Message: "site beyond contig end",
				Range:   contigs.Format(site.Range),
				Detail:  fmt.Sprintf("site %d", i+1),
			}
		}
		sites = append(sites, site)
	}
	return sites, nil
}
