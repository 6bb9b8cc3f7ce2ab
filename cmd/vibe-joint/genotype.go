package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-joint/internal/genotype"
)

func newGenotypeCmd() *cobra.Command {
	var (
		sampleSet  string
		sitesFile  string
		outputFile string
		preload    bool
	)

	cmd := &cobra.Command{
		Use:   "genotype",
		Short: "Genotype a sample set at unified sites",
		Long: `Genotype every sample of a sample set at the sites listed in a YAML file
and write a multi-sample VCF. Sites are genotyped in parallel and written in
file order.

Each sample's call is taken from its own dataset: a record at exactly the
site's position has its alleles matched to the site alleles, a reference
block covering the site gives a homozygous reference call, and anything else
is a no-call.

Sites file:
  - {contig: "21", pos: 9411239, alleles: [G, A]}
  - {contig: "21", pos: 9411245, alleles: [CTT, C]}`,
		Example: `  vibe-joint genotype --sample-set trio --sites sites.yaml -o trio.vcf.gz
  vibe-joint genotype -s trio --sites sites.yaml --workers 16 > trio.vcf`,
		Args: positional(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			f, err := os.Open(sitesFile)
			if err != nil {
				return fmt.Errorf("open sites: %w", err)
			}
			sites, err := genotype.LoadSites(f, p.svc.Contigs())
			f.Close()
			if err != nil {
				return err
			}

			if preload {
				if err := p.preload(ctx, sampleSet); err != nil {
					return err
				}
			}

			caller := genotype.NewHardCaller(p.files, p.svc.Contigs())
			return p.svc.GenotypeSites(ctx, caller.Genotype, sampleSet, sites, outputFile)
		},
	}

	cmd.Flags().StringVarP(&sampleSet, "sample-set", "s", "", "Sample set to genotype")
	cmd.Flags().StringVar(&sitesFile, "sites", "", "YAML file listing the sites to genotype, in output order")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "-", "Output VCF file (- for stdout, .gz for BGZF)")
	cmd.Flags().BoolVar(&preload, "preload", false, "Read all datasets in parallel before genotyping")
	cmd.MarkFlagRequired("sample-set")
	cmd.MarkFlagRequired("sites")

	return cmd
}
