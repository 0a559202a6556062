package main

import (
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/atelier-editor/atelier/pkg/atelier/archive"
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id> <output.zip>",
	Short: "Export a project as a zip archive",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	projectID, out := args[0], args[1]

	st, err := openStore()
	if err != nil {
		printError("%v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	p, err := st.GetProject(projectID)
	if err != nil {
		printError("loading project: %v", err)
		return err
	}

	data, err := archive.Export(p)
	if err != nil {
		printError("building archive: %v", err)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		printError("writing %s: %v", out, err)
		return err
	}

	printInfo("Exported %s (%d files, %s) to %s", p.Name, p.FileCount(), humanize.Bytes(uint64(len(data))), out)
	return nil
}
