package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-joint/internal/genome"
	"github.com/inodb/vibe-joint/internal/output"
	"github.com/inodb/vibe-joint/internal/status"
)

func newDiscoverCmd() *cobra.Command {
	var (
		sampleSet  string
		rangeStr   string
		outputFile string
		save       bool
		cached     bool
		preload    bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover the alleles of a sample set in a genomic range",
		Long: `Discover every allele observed in the datasets of a sample set within a
range, with the number of hard-called observations of each. Each range in
the result has exactly one reference allele; datasets that disagree on it
are reported as an error.`,
		Example: `  vibe-joint discover --sample-set trio --range 21
  vibe-joint discover --sample-set trio --range 21:9,411,000-9,412,000 -o alleles.tsv
  vibe-joint discover --sample-set trio --range 21 --save
  vibe-joint discover --sample-set trio --range 21:9,411,000-9,412,000 --cached`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			rng, err := p.svc.Contigs().ParseRange(rangeStr)
			if err != nil {
				return usageError{status.Wrap(status.Invalid, "bad --range", err)}
			}

			var (
				als   genome.DiscoveredAlleles
				found bool
			)
			if cached {
				if als, found, err = p.cat.LookupDiscoveredAlleles(ctx, sampleSet, rng); err != nil {
					return err
				}
				logger.Debug("looked up saved alleles",
					zap.String("sample_set", sampleSet),
					zap.Bool("covered", found),
					zap.Int("alleles", len(als)))
			}

			if !found {
				if preload {
					if err := p.preload(ctx, sampleSet); err != nil {
						return err
					}
				}
				if als, err = p.svc.DiscoverAlleles(ctx, sampleSet, rng); err != nil {
					return err
				}
			}

			if save && !found {
				if err := p.cat.WriteDiscoveredAlleles(ctx, sampleSet, rng, als); err != nil {
					return fmt.Errorf("save discovered alleles: %w", err)
				}
			}

			f, err := output.Create(outputFile)
			if err != nil {
				return status.Wrap(status.IOError, "failed to open output file", err)
			}
			if err := writeAlleles(f, p.svc.Contigs(), als); err != nil {
				f.Close()
				return status.Wrap(status.IOError, "failed to write output file", err)
			}
			if err := f.Close(); err != nil {
				return status.Wrap(status.IOError, "failed to close output file", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sampleSet, "sample-set", "s", "", "Sample set to discover alleles for")
	cmd.Flags().StringVarP(&rangeStr, "range", "r", "", "Range: contig, contig:pos or contig:begin-end (1-based)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output TSV file (- for stdout, .gz for BGZF)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the result in the catalog")
	cmd.Flags().BoolVar(&cached, "cached", false, "Use alleles saved in the catalog when saved ranges cover the whole range")
	cmd.Flags().BoolVar(&preload, "preload", false, "Read all datasets in parallel before discovery")
	cmd.MarkFlagRequired("sample-set")
	cmd.MarkFlagRequired("range")

	return cmd
}

func writeAlleles(w io.Writer, contigs genome.Contigs, als genome.DiscoveredAlleles) error {
	tw := output.NewTabWriter(w, contigs)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	if err := tw.WriteAll(als); err != nil {
		return err
	}
	return tw.Flush()
}
