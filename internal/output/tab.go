package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-joint/internal/genome"
)

// TabWriter writes discovered alleles in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	contigs genome.Contigs
	columns []string
}

// NewTabWriter creates a new tab-delimited writer. contigs name the ranges.
func NewTabWriter(w io.Writer, contigs genome.Contigs) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		contigs: contigs,
		columns: []string{
			"#Location",
			"Allele",
			"Ref",
			"Observations",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single allele.
func (tw *TabWriter) Write(al genome.Allele, info genome.DiscoveredAlleleInfo) error {
	ref := "-"
	if info.IsRef {
		ref = "YES"
	}

	values := []string{
		tw.contigs.Format(al.Pos),
		al.DNA,
		ref,
		strconv.FormatFloat(info.ObservationCount, 'g', -1, 64),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes every allele in range then sequence order.
func (tw *TabWriter) WriteAll(als genome.DiscoveredAlleles) error {
	for _, al := range als.Sorted() {
		if err := tw.Write(al, als[al]); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
