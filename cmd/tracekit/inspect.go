package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sanonone/tracekit/pkg/engine"
	"github.com/sanonone/tracekit/pkg/stats"
)

var (
	inspectAttr string
	inspectJSON bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [document]",
	Short: "Inspect a data directory without starting a server",
	Long: `Open the data directory, replay its journal and print the documents it
holds. With a document name, print per-trace statistics of --attr instead.
Do not run this against a directory a live server is writing to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectAttr, "attr", "y", "Attribute path to summarize")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print JSON instead of a table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Log.Level == "" || cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	eng, _, err := openEngine(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		return printDocuments(out, eng.ListDocuments())
	}

	summaries, err := eng.Stats(args[0], inspectAttr)
	if err != nil {
		return err
	}
	return printStats(out, summaries)
}

func printDocuments(w io.Writer, docs []engine.DocumentInfo) error {
	if inspectJSON {
		return writeJSON(w, docs)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTRACES\tREVISION\tUNDO\tREDO\tUPDATED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n",
			d.Name, d.Traces, d.Revision, d.UndoDepth, d.RedoDepth, d.Updated.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func printStats(w io.Writer, summaries []stats.TraceSummary) error {
	if inspectJSON {
		return writeJSON(w, summaries)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACE\tCOUNT\tMIN\tMAX\tMEAN\tSTDDEV\tMEDIAN")
	for _, ts := range summaries {
		if !ts.Present {
			fmt.Fprintf(tw, "%d\t-\t\t\t\t\t\n", ts.Trace)
			continue
		}
		s := ts.Summary
		fmt.Fprintf(tw, "%d\t%d\t%g\t%g\t%g\t%g\t%g\n", ts.Trace, s.Count, s.Min, s.Max, s.Mean, s.StdDev, s.Median)
	}
	if lo, hi, ok := stats.Autorange(summaries, 0.05); ok {
		fmt.Fprintf(tw, "\nrange\t[%g, %g]\n", lo, hi)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
