// Package output writes genotyped sites as VCF.
package output

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// gtFormatLine declares the only FORMAT field written.
const gtFormatLine = `##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`

// BuildHeader assembles the output header for the given contigs and
// samples. Contig and sample names must be non-empty, free of whitespace
// and unique.
func BuildHeader(contigs genome.Contigs, samples []string) (*vcf.Header, error) {
	lines := []string{"##fileformat=VCFv4.2", gtFormatLine}

	seen := make(map[string]bool, len(contigs))
	for _, c := range contigs {
		if !validName(c.Name) || seen[c.Name] {
			return nil, status.Newf(status.Failure, "cannot build output header: bad contig", c.Name)
		}
		seen[c.Name] = true
		lines = append(lines, fmt.Sprintf("##contig=<ID=%s,length=%d>", c.Name, c.Length))
	}

	seen = make(map[string]bool, len(samples))
	for _, s := range samples {
		if !validName(s) || seen[s] {
			return nil, status.Newf(status.Failure, "cannot build output header: bad sample", s)
		}
		seen[s] = true
	}

	cols := append([]string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO", "FORMAT"}, samples...)
	lines = append(lines, strings.Join(cols, "\t"))

	return &vcf.Header{
		Lines:   lines,
		Samples: append([]string(nil), samples...),
	}, nil
}

func validName(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \t\n\r")
}

// VCFWriter writes a header followed by records with GT sample columns.
type VCFWriter struct {
	w      *bufio.Writer
	header *vcf.Header
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, header *vcf.Header) *VCFWriter {
	return &VCFWriter{
		w:      bufio.NewWriter(w),
		header: header,
	}
}

// WriteHeader writes the header lines.
func (vw *VCFWriter) WriteHeader() error {
	for _, line := range vw.header.Lines {
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes one record. The record must carry one genotype per header
// sample.
func (vw *VCFWriter) Write(r *vcf.Record) error {
	if len(r.Genotypes) != len(vw.header.Samples) {
		return fmt.Errorf("record %s:%d has %d genotypes, header has %d samples",
			r.Chrom, r.Pos, len(r.Genotypes), len(vw.header.Samples))
	}

	var lb strings.Builder
	lb.Grow(64 + 4*len(r.Genotypes))

	lb.WriteString(r.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(r.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(orDot(r.ID))
	lb.WriteByte('\t')
	lb.WriteString(orDot(r.Ref()))
	lb.WriteByte('\t')
	lb.WriteString(orDot(strings.Join(r.Alts(), ",")))
	lb.WriteByte('\t')
	if r.Qual != 0 {
		lb.WriteString(strconv.FormatFloat(r.Qual, 'g', -1, 64))
	} else {
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(orDot(r.Filter))
	lb.WriteByte('\t')
	lb.WriteString(formatInfo(r.Info))
	lb.WriteString("\tGT")
	for _, g := range r.Genotypes {
		lb.WriteByte('\t')
		lb.WriteString(g.String())
	}
	lb.WriteByte('\n')

	_, err := vw.w.WriteString(lb.String())
	return err
}

// Flush flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// formatInfo renders INFO in key order; flags have a nil or true value.
func formatInfo(info map[string]interface{}) string {
	if len(info) == 0 {
		return "."
	}
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := info[k].(type) {
		case nil:
			parts = append(parts, k)
		case bool:
			if v {
				parts = append(parts, k)
			}
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	return strings.Join(parts, ";")
}
