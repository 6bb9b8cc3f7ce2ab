package output

import (
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bgzf"
)

// Create opens path for writing. "-" means standard output, which Close
// leaves open. Paths ending in ".gz" are BGZF-compressed so they can be
// indexed like any bgzipped VCF.
func Create(path string) (io.WriteCloser, error) {
	if path == "-" {
		return stdout{os.Stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		return &bgzfFile{Writer: bgzf.NewWriter(f, 1), f: f}, nil
	}
	return f, nil
}

type stdout struct {
	io.Writer
}

func (stdout) Close() error { return nil }

// bgzfFile closes the compressor, which writes the EOF block, and then the
// file.
type bgzfFile struct {
	*bgzf.Writer
	f *os.File
}

func (b *bgzfFile) Close() error {
	err := b.Writer.Close()
	if cerr := b.f.Close(); err == nil {
		err = cerr
	}
	return err
}
