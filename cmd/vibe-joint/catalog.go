package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-joint/internal/catalog"
	"github.com/inodb/vibe-joint/internal/service"
	"github.com/inodb/vibe-joint/internal/store"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the project catalog",
		Long:  "Register contigs, datasets and sample sets, and inspect what is registered.",
	}
	cmd.AddCommand(newCatalogImportCmd())
	cmd.AddCommand(newCatalogShowCmd())
	cmd.AddCommand(newCatalogClearCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Replace the catalog contents with a YAML manifest",
		Long: `Replace the catalog's contigs, datasets and sample sets with those of a
YAML manifest. Alleles saved with "discover --save" are dropped.

Relative dataset paths are resolved against the manifest's directory. When a
dataset lists no samples they are read from its VCF header.

  contigs:
    - {name: "21", length: 48129895}
  datasets:
    - name: NA12878
      path: vcf/NA12878.g.vcf.gz
  sample_sets:
    trio: [NA12878, NA12891, NA12892]`,
		Args: positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := catalog.LoadManifest(args[0])
			if err != nil {
				return err
			}
			cat, err := catalog.Open(viper.GetString("catalog"))
			if err != nil {
				return err
			}
			defer cat.Close()

			if err := cat.Import(cmd.Context(), m); err != nil {
				return err
			}
			logger.Info("imported manifest",
				zap.String("manifest", args[0]),
				zap.String("catalog", viper.GetString("catalog")),
				zap.Int("contigs", len(m.Contigs)),
				zap.Int("datasets", len(m.Datasets)),
				zap.Int("sample_sets", len(m.SampleSets)))
			return nil
		},
	}
}

func newCatalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List contigs and sample sets",
		Args:  positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(viper.GetString("catalog"))
			if err != nil {
				return err
			}
			defer cat.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			contigs, err := cat.Contigs(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Contigs: %d\n", len(contigs))
			for _, c := range contigs {
				fmt.Fprintf(out, "  %s\t%d\n", c.Name, c.Length)
			}

			sets, err := cat.SampleSets(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Sample sets: %d\n", len(sets))
			for _, name := range sets {
				samples, datasets, err := cat.SampleSetDatasets(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s\t%d samples\t%d datasets\n", name, len(samples), len(datasets))
			}
			return nil
		},
	}
}

func newCatalogClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <sample-set>",
		Short: "Remove the saved alleles of a sample set",
		Args:  positional(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(viper.GetString("catalog"))
			if err != nil {
				return err
			}
			defer cat.Close()
			return cat.ClearDiscoveredAlleles(cmd.Context(), args[0])
		},
	}
}

// project is an open catalog with a file-backed dataset store and a
// service over both.
type project struct {
	cat   *catalog.Catalog
	files *store.FileStore
	svc   *service.Service
}

// openProject opens the configured catalog and starts a service on it.
func openProject(ctx context.Context) (*project, error) {
	cat, err := catalog.Open(viper.GetString("catalog"))
	if err != nil {
		return nil, err
	}

	contigs, err := cat.Contigs(ctx)
	if err != nil {
		cat.Close()
		return nil, err
	}
	if len(contigs) == 0 {
		cat.Close()
		return nil, fmt.Errorf("catalog %s has no contigs; import a manifest with: vibe-joint catalog import <manifest.yaml>",
			viper.GetString("catalog"))
	}

	files := store.NewFileStore(cat, contigs)
	files.SetLogger(logger)

	svc, err := service.Start(ctx, cat, files,
		service.WithWorkers(viper.GetInt("workers")),
		service.WithLogger(logger))
	if err != nil {
		cat.Close()
		return nil, err
	}
	return &project{cat: cat, files: files, svc: svc}, nil
}

// preload reads the datasets of a sample set in parallel.
func (p *project) preload(ctx context.Context, sampleSet string) error {
	_, datasets, err := p.cat.SampleSetDatasets(ctx, sampleSet)
	if err != nil {
		return err
	}
	return p.files.Preload(ctx, datasets, viper.GetInt("workers"))
}

func (p *project) Close() {
	p.svc.Close()
	p.cat.Close()
}
