package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/atelier-editor/atelier/pkg/workspace/journal"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent tree mutations",
	Long:  `List recent mutations recorded in the journal, newest first.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config: %v", err)
		return err
	}
	if !cfg.Journal.Enabled {
		printInfo("Journal is disabled in configuration.")
		return nil
	}

	jnl, err := journal.New(cfg.Journal.Path)
	if err != nil {
		printError("opening journal: %v", err)
		return err
	}

	entries, err := jnl.List(historyLimit)
	if err != nil {
		printError("listing history: %v", err)
		return err
	}
	if len(entries) == 0 {
		printInfo("No history recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tOPERATION\tPATH\tDETAIL")
	for _, e := range entries {
		path := e.Path
		if path == "" {
			path = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", humanize.Time(e.Timestamp), e.Operation, path, e.Detail)
	}
	return w.Flush()
}
