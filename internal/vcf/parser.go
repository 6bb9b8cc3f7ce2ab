// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Parser reads records from a VCF file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	header     Header
	gtIndex    map[string]int // FORMAT string -> position of GT, memoized per layout
}

// NewParser creates a new VCF parser for the given file.
// Supports both plain VCF and gzipped or BGZF-compressed VCF (.vcf.gz) files.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := &Parser{file: file, gtIndex: make(map[string]int)}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	_, err = io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read vcf header: %w", err)
	}

	// Seek back to beginning
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seek vcf file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b); BGZF is multi-member gzip.
	if buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) (*Parser, error) {
	p := &Parser{
		reader:  bufio.NewReader(r),
		gtIndex: make(map[string]int),
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader reads and stores VCF header lines.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("read header: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "##") {
			p.header.Lines = append(p.header.Lines, line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			p.header.Lines = append(p.header.Lines, line)
			// Extract sample names from columns after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				p.header.Samples = fields[9:]
			}
			return nil
		}

		// Non-header line encountered without #CHROM
		return &ParseError{
			Line:    p.lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return &ParseError{
		Line:    p.lineNumber,
		Message: "no #CHROM header line found",
	}
}

// Next reads the next record from the VCF file.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*Record, error) {
	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read record line: %w", err)
		}
		p.lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue // Skip empty lines
		}
		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Record.
func (p *Parser) parseLine(line string) (*Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 8 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, &ParseError{
			Line:    p.lineNumber,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	qual := 0.0
	if fields[5] != "." {
		qual, _ = strconv.ParseFloat(fields[5], 64)
	}

	r := &Record{
		Chrom:   fields[0],
		Pos:     pos,
		ID:      fields[2],
		Alleles: []string{fields[3]},
		Qual:    qual,
		Filter:  fields[6],
		Info:    parseInfo(fields[7]),
	}
	if fields[4] != "." && fields[4] != "" {
		r.Alleles = append(r.Alleles, strings.Split(fields[4], ",")...)
	}

	if len(fields) > 8 {
		r.Format = strings.Split(fields[8], ":")
		samples := fields[9:]
		if len(p.header.Samples) > 0 && len(samples) != len(p.header.Samples) {
			return nil, &ParseError{
				Line: p.lineNumber,
				Message: fmt.Sprintf("expected %d sample columns, found %d",
					len(p.header.Samples), len(samples)),
			}
		}
		gt := p.gtPosition(fields[8], r.Format)
		r.Genotypes = make([]Genotype, len(samples))
		if gt >= 0 {
			for i, s := range samples {
				r.Genotypes[i] = ParseGenotype(sampleField(s, gt))
			}
		}
	}

	return r, nil
}

// gtPosition returns the index of GT within the FORMAT keys, or -1.
func (p *Parser) gtPosition(format string, keys []string) int {
	if i, ok := p.gtIndex[format]; ok {
		return i
	}
	i := -1
	for k, key := range keys {
		if key == "GT" {
			i = k
			break
		}
	}
	p.gtIndex[format] = i
	return i
}

// sampleField returns the i-th ':'-separated value of a sample column.
func sampleField(column string, i int) string {
	for ; i > 0; i-- {
		sep := strings.IndexByte(column, ':')
		if sep < 0 {
			return ""
		}
		column = column[sep+1:]
	}
	if sep := strings.IndexByte(column, ':'); sep >= 0 {
		return column[:sep]
	}
	return column
}

// parseInfo parses the INFO field into a map.
func parseInfo(info string) map[string]interface{} {
	result := make(map[string]interface{})
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			// Flag-type INFO field
			result[parts[0]] = true
		}
	}

	return result
}

// ReadAll reads every remaining record.
func (p *Parser) ReadAll() ([]*Record, error) {
	var records []*Record
	for {
		r, err := p.Next()
		if err != nil {
			return nil, err
		}
		if r == nil {
			return records, nil
		}
		records = append(records, r)
	}
}

// Header returns the VCF header.
func (p *Parser) Header() *Header {
	return &p.header
}

// SampleNames returns sample names from the #CHROM header line.
// Returns nil if no sample columns are present.
func (p *Parser) SampleNames() []string {
	return p.header.Samples
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
