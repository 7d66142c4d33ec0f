// Package main provides the locusfa command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/locusfa/internal/duckdb"
	"github.com/inodb/locusfa/internal/pipeline"
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

const configName = ".locusfa"

var (
	cfgFile string
	verbose bool
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks errors caused by invalid arguments.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locusfa",
		Short: "Extract DNA sequence windows around gene loci",
		Long: `locusfa cuts sequence out of per-chromosome FASTA files for the loci listed
in a site table. Overlapping loci are merged and CpG islands can be masked.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.locusfa.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newSitesCmd())
	root.AddCommand(newWindowCmd())
	root.AddCommand(newLookupCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "locusfa version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// initConfig reads the config file if one exists. A missing default config
// file is not an error.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("LOCUSFA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// defaultConfigPath returns ~/.locusfa.yaml.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

// newLogger builds a development logger at debug level with --verbose and
// a production logger at info level otherwise. Both write to stderr.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// openOutput creates the output file, or returns stdout for "-".
func openOutput(path string) (*os.File, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// openStore opens the audit database at path and records the given inputs.
// With reset set, extractions from earlier runs are removed first. It
// returns nil when path is empty.
func openStore(path string, reset bool, inputs map[string]string) (*duckdb.Store, error) {
	if path == "" {
		return nil, nil
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	if reset {
		if err := store.ClearExtractions(); err != nil {
			store.Close()
			return nil, fmt.Errorf("clear audit database: %w", err)
		}
	}
	for kind, in := range inputs {
		if in == "" || in == "-" {
			continue
		}
		if err := store.RecordInput(kind, in); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

func printSummary(mode string, sum pipeline.Summary) {
	fmt.Fprintf(os.Stderr, "%s: %d records read, %d skipped", mode, sum.Read, sum.Skipped)
	if sum.Excluded > 0 {
		fmt.Fprintf(os.Stderr, ", %d not in filter", sum.Excluded)
	}
	if sum.Merged > 0 {
		fmt.Fprintf(os.Stderr, ", %d merged", sum.Merged)
	}
	fmt.Fprintf(os.Stderr, "\n  %d emitted (%d clamped), %d empty, %d CpG filtered, %d on missing chromosomes\n",
		sum.Emitted, sum.Clamped, sum.Empty, sum.Filtered, sum.Missing)
}
