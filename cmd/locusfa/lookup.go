package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/locusfa/internal/duckdb"
)

// inputKinds are the input labels recorded by the sites and window commands.
var inputKinds = []string{"sites", "strand_db", "cpg", "filter"}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <symbol>",
		Short: "Show recorded extractions for a gene symbol",
		Long: `Look up a gene symbol in a DuckDB audit database written with --db. Every
recorded locus listing the symbol is shown, including merged loci where it
is not the first identifier, followed by the outcome counts and the input
files of the audited runs.`,
		Example: `  locusfa lookup TP53 --db audit.duckdb
  locusfa lookup TP53 --db audit.duckdb --run 0b6c1b0e-5f0a-4c1e-9d8f-3a4e2c7d9b11`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"audit_db": "db",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			run, _ := cmd.Flags().GetString("run")
			showSeq, _ := cmd.Flags().GetBool("sequence")
			return runLookup(cmd.OutOrStdout(), args[0], run, showSeq)
		},
	}

	cmd.Flags().String("db", "", "DuckDB audit database to query")
	cmd.Flags().String("run", "", "Only show extractions from this run ID")
	cmd.Flags().Bool("sequence", false, "Print the extracted sequence of each emitted locus")

	return cmd
}

func runLookup(w io.Writer, symbol, runID string, showSeq bool) error {
	path := viper.GetString("audit_db")
	if path == "" {
		return &usageError{msg: "--db is required"}
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audit database: %w", err)
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	exts, err := store.LookupSymbol(symbol)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Run\tMode\tLocus\tStatus\tLength\tMasked")
	found := 0
	for _, e := range exts {
		if runID != "" && e.RunID != runID {
			continue
		}
		found++
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			e.RunID, e.Mode, e.Locus.String(), e.Status, len(e.Sequence), e.Masked)
		if showSeq && e.Sequence != "" {
			fmt.Fprintf(tw, "\t\t%s\t\t\t\n", e.Sequence)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if found == 0 {
		fmt.Fprintf(w, "No extractions recorded for %s\n", symbol)
	}

	counts, err := store.CountByStatus(runID)
	if err != nil {
		return err
	}
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	fmt.Fprintln(w, "\nOutcomes:")
	for _, status := range statuses {
		fmt.Fprintf(w, "  %s: %d\n", status, counts[status])
	}

	fmt.Fprintln(w, "\nInputs:")
	for _, kind := range inputKinds {
		fps, err := store.Inputs(kind)
		if err != nil {
			return err
		}
		for _, fp := range fps {
			fmt.Fprintf(w, "  %s: %s (%d bytes, modified %s)\n",
				kind, fp.Path, fp.Size, fp.ModTime.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}
