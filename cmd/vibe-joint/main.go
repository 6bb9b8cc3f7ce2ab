// Package main provides the vibe-joint command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-joint/internal/status"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is set up by the root command before any subcommand runs.
var logger = zap.NewNop()

// usageError marks errors caused by bad command-line input.
type usageError struct{ error }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) || isCobraUsage(err) {
		return ExitUsage
	}
	switch status.KindOf(err) {
	case status.NotFound:
		fmt.Fprintf(os.Stderr, "Hint: list sample sets with: vibe-joint catalog show\n")
	case status.IOError:
		fmt.Fprintf(os.Stderr, "Hint: check that the output directory exists and is writable\n")
	}
	return ExitError
}

// isCobraUsage reports errors cobra raises for bad input without going
// through the flag error func.
func isCobraUsage(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "required flag")
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-joint",
		Short: "Joint allele discovery and genotyping across VCF datasets",
		Long: `vibe-joint discovers the alleles observed across many single-sample or
multi-sample VCF datasets and genotypes a sample set at unified sites.

Datasets, samples and sample sets are registered in a catalog from a YAML
manifest (see "vibe-joint catalog import --help").`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initConfig()
			l, err := newLogger(viper.GetString("log-level"))
			if err != nil {
				return usageError{err}
			}
			logger = l
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.String("catalog", defaultCatalogPath(), "Catalog database file")
	pf.Int("workers", 0, "Genotyping worker threads (0 = number of CPUs)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	for _, name := range []string{"catalog", "workers", "log-level"} {
		viper.BindPFlag(name, pf.Lookup(name))
	}

	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newGenotypeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// initConfig reads ~/.vibe-joint.yaml and VIBE_JOINT_* environment
// variables.
func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetConfigName(".vibe-joint")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("VIBE_JOINT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: reading config: %v\n", err)
		}
	}
}

func defaultCatalogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vibe-joint.duckdb"
	}
	return filepath.Join(home, ".vibe-joint", "catalog.duckdb")
}

// newLogger builds a console logger on stderr.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

// positional wraps a positional argument validator so that its errors are
// reported as usage errors.
func positional(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := v(cmd, a); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  positional(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-joint version %s (%s) built %s\n", version, commit, date)
		},
	}
}
