package store

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/status"
	"github.com/inodb/vibe-joint/internal/vcf"
)

// PathResolver maps a dataset name to its VCF file.
type PathResolver interface {
	DatasetPath(ctx context.Context, dataset string) (string, error)
}

// FileStore is a Source reading one VCF file per dataset. Parsed datasets
// are cached and reloaded when the file's size or modification time
// changes.
type FileStore struct {
	paths   PathResolver
	contigs map[string]int
	logger  *zap.Logger

	mu     sync.Mutex
	loaded map[string]*fileDataset
	loads  singleflight.Group
}

type fileDataset struct {
	fp FileFingerprint
	ds *dataset
}

// NewFileStore creates a store resolving dataset files through paths and
// record contigs against contigs.
func NewFileStore(paths PathResolver, contigs genome.Contigs) *FileStore {
	return &FileStore{
		paths:   paths,
		contigs: contigs.Index(),
		logger:  zap.NewNop(),
		loaded:  make(map[string]*fileDataset),
	}
}

// SetLogger sets the logger for load messages.
func (s *FileStore) SetLogger(l *zap.Logger) {
	s.logger = l
}

// DatasetRangeAndHeader implements Source.
func (s *FileStore) DatasetRangeAndHeader(ctx context.Context, name string, rng genome.Range) (*vcf.Header, []*vcf.Record, error) {
	d, err := s.load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return d.header, d.query(rng), nil
}

// Preload loads the named datasets using up to workers concurrent loads.
func (s *FileStore) Preload(ctx context.Context, names []string, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, name := range names {
		g.Go(func() error {
			_, err := s.load(ctx, name)
			return err
		})
	}
	return g.Wait()
}

// Loaded returns the number of datasets currently cached.
func (s *FileStore) Loaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loaded)
}

func (s *FileStore) load(ctx context.Context, name string) (*dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.paths.DatasetPath(ctx, name)
	if err != nil {
		return nil, err
	}
	fp, err := StatFile(path)
	if err != nil {
		kind := status.IOError
		if errors.Is(err, os.ErrNotExist) {
			kind = status.NotFound
		}
		return nil, &status.Error{Kind: kind, Message: "dataset file", Dataset: name, Detail: path, Err: err}
	}

	s.mu.Lock()
	cached, ok := s.loaded[name]
	s.mu.Unlock()
	if ok && cached.fp.Same(fp) {
		return cached.ds, nil
	}

	// Concurrent callers for the same dataset share one parse.
	v, err, _ := s.loads.Do(name, func() (interface{}, error) {
		ds, err := s.parse(name, path)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.loaded[name] = &fileDataset{fp: fp, ds: ds}
		s.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset), nil
}

func (s *FileStore) parse(name, path string) (*dataset, error) {
	p, err := vcf.NewParser(path)
	if err != nil {
		return nil, &status.Error{Kind: status.Invalid, Message: "open dataset", Dataset: name, Detail: path, Err: err}
	}
	defer p.Close()

	records, err := p.ReadAll()
	if err != nil {
		return nil, &status.Error{Kind: status.Invalid, Message: "read dataset", Dataset: name, Detail: path, Err: err}
	}
	if err := resolveRanges(name, records, s.contigs); err != nil {
		return nil, err
	}

	s.logger.Debug("loaded dataset",
		zap.String("dataset", name),
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("samples", len(p.SampleNames())))

	return newDataset(p.Header(), records), nil
}

// StaticPaths is a PathResolver over a fixed map.
type StaticPaths map[string]string

// DatasetPath implements PathResolver.
func (m StaticPaths) DatasetPath(_ context.Context, name string) (string, error) {
	path, ok := m[name]
	if !ok {
		return "", &status.Error{Kind: status.NotFound, Message: "unknown dataset", Dataset: name}
	}
	return path, nil
}
