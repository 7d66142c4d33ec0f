package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/locusfa/internal/output"
	"github.com/inodb/locusfa/internal/pipeline"
	"github.com/inodb/locusfa/internal/sites"
)

func newWindowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "window <sites-file> <chrom-dir> <out-file>",
		Short: "Extract a fixed window around each transcription start",
		Long: `Extract a window of --range bases on either side of each gene's
transcription start: the start coordinate for plus-strand genes, the end
coordinate for minus-strand genes. Minus-strand windows are written
reverse-complemented. Chromosomes are loaded on first use and records on
chromosomes without a FASTA file are skipped.`,
		Example: `  locusfa window genes.txt hg19/ windows.fa
  locusfa window -r 50 -l 100 genes.txt hg19/ windows.fa
  locusfa window -f symbols.txt genes.txt hg19/ windows.fa`,
		Args: cobra.ExactArgs(3),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"window.range":  "range",
				"window.limit":  "limit",
				"window.filter": "filter",
				"audit_db":      "db",
				"audit_clear":   "clear-db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(args[0], args[1], args[2])
		},
	}

	cmd.Flags().Int64P("range", "r", pipeline.DefaultWindowRange, "Window half-width in bases")
	cmd.Flags().IntP("limit", "l", 0, "Process at most this many sites (0 for all)")
	cmd.Flags().StringP("filter", "f", "", "File of gene symbols to restrict extraction to, one per line")
	cmd.Flags().String("db", "", "DuckDB audit database recording every processed locus")
	cmd.Flags().Bool("clear-db", false, "Remove extractions of earlier runs from the audit database")

	return cmd
}

func runWindow(sitesFile, chromDir, outPath string) error {
	r := viper.GetInt64("window.range")
	if r < 0 {
		return &usageError{msg: fmt.Sprintf("--range must be non-negative, got %d", r)}
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	cfg := pipeline.Config{
		ChromDir:    chromDir,
		WindowRange: r,
		Limit:       viper.GetInt("window.limit"),
	}

	filterPath := viper.GetString("window.filter")
	if filterPath != "" {
		filter, err := sites.LoadSymbolFilter(filterPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Restricting to %d symbols from %s\n", len(filter), filterPath)
		cfg.Filter = filter
	}

	parser, err := sites.NewParser(sitesFile)
	if err != nil {
		return err
	}
	defer parser.Close()

	f, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}

	p := pipeline.New(cfg, output.NewWriter(f, output.WindowHeader))
	p.SetLogger(logger)

	store, err := openStore(viper.GetString("audit_db"), viper.GetBool("audit_clear"), map[string]string{
		"sites":  sitesFile,
		"filter": filterPath,
	})
	if err != nil {
		closeOut()
		return err
	}
	if store != nil {
		defer store.Close()
		p.SetStore(store)
		logger.Info("recording extractions", zap.String("db", store.Path()), zap.String("run_id", store.RunID()))
	}

	sum, err := p.Window(parser)
	if cerr := closeOut(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	if err != nil {
		return err
	}

	logger.Debug("window run finished", zap.Any("summary", sum))
	printSummary(pipeline.ModeWindow, sum)
	return nil
}
