package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/locusfa/internal/cpg"
	"github.com/inodb/locusfa/internal/output"
	"github.com/inodb/locusfa/internal/pipeline"
	"github.com/inodb/locusfa/internal/sites"
)

func newSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Extract merged loci from a site table",
		Long: `Extract the sequence of every locus in a site table (a cppmatch result file
or gene database file). Loci are sorted, overlapping loci on the same
chromosome are merged into one record, and CpG islands can be masked.`,
		Example: `  locusfa sites --sites-file result.txt --chrom-dir hg19/ --out loci.fa
  locusfa sites --sites-file result.txt --chrom-dir hg19/ --out loci.fa \
      --db-file genes.db --cpg-filter-file cpg.csv --cpg-filter-remove
  locusfa sites --sites-file result.txt --chrom-dir hg19/ --out loci.fa --db audit.duckdb`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"chrom_dir":       "chrom-dir",
				"sites.limit":     "limit",
				"sites.strand_db": "db-file",
				"cpg.file":        "cpg-filter-file",
				"cpg.fill":        "cpg-filter-character",
				"cpg.remove":      "cpg-filter-remove",
				"audit_db":        "db",
				"audit_clear":     "clear-db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			sitesFile, _ := cmd.Flags().GetString("sites-file")
			out, _ := cmd.Flags().GetString("out")
			return runSites(sitesFile, out)
		},
	}

	cmd.Flags().String("sites-file", "", "Site table: cppmatch result or gene database file ('-' for stdin)")
	cmd.Flags().String("chrom-dir", "", "Directory of per-chromosome FASTA files (<chrom>.fa)")
	cmd.Flags().String("out", "", "Output file ('-' for stdout)")
	cmd.Flags().Int("limit", 0, "Process at most this many records (0 for all)")
	cmd.Flags().String("db-file", "", "Gene database file used to look up missing strands")
	cmd.Flags().String("cpg-filter-file", "", "CpG island CSV (chrom,start,end)")
	cmd.Flags().String("cpg-filter-character", string(rune(cpg.DefaultFill)), "Character substituted for CpG island bases")
	cmd.Flags().Bool("cpg-filter-remove", false, "Drop loci entirely covered by CpG islands")
	cmd.Flags().String("db", "", "DuckDB audit database recording every processed locus")
	cmd.Flags().Bool("clear-db", false, "Remove extractions of earlier runs from the audit database")
	_ = cmd.MarkFlagRequired("sites-file")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runSites(sitesFile, outPath string) error {
	chromDir := viper.GetString("chrom_dir")
	if chromDir == "" {
		return &usageError{msg: "--chrom-dir is required"}
	}

	fill, err := fillChar(viper.GetString("cpg.fill"))
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	cfg := pipeline.Config{
		ChromDir:          chromDir,
		Limit:             viper.GetInt("sites.limit"),
		Fill:              fill,
		RemoveFullyMasked: viper.GetBool("cpg.remove"),
	}

	if path := viper.GetString("sites.strand_db"); path != "" {
		strands, err := sites.LoadStrandTable(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Loaded strands for %d genes from %s\n", len(strands), path)
		cfg.Strands = strands
	}

	if path := viper.GetString("cpg.file"); path != "" {
		idx, err := cpg.LoadIndex(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Loaded %d CpG islands on %d chromosomes\n", idx.Count(), len(idx.Chromosomes()))
		cfg.CpG = idx
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

	p := pipeline.New(cfg, output.NewWriter(f, output.SitesHeader))
	p.SetLogger(logger)

	store, err := openStore(viper.GetString("audit_db"), viper.GetBool("audit_clear"), map[string]string{
		"sites":     sitesFile,
		"strand_db": viper.GetString("sites.strand_db"),
		"cpg":       viper.GetString("cpg.file"),
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

	sum, err := p.Sites(parser)
	if cerr := closeOut(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	if err != nil {
		return err
	}

	logger.Debug("sites run finished", zap.Any("summary", sum))
	printSummary(pipeline.ModeSites, sum)
	return nil
}

// fillChar validates the CpG substitution character.
func fillChar(s string) (byte, error) {
	if len(s) != 1 {
		return 0, &usageError{msg: fmt.Sprintf("CpG filter character must be a single character, got %q", s)}
	}
	return s[0], nil
}

// bindFlags binds viper keys to the command's flags, so values from the
// config file apply when a flag is not given.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}
