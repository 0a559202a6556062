package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/store"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage stored projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored projects",
	RunE:  runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsCreate,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a stored project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

// openStore opens the project database from the resolved configuration.
func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", cfg.DataDir, err)
	}
	if err := st.EnsureSchema(); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		printError("%v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	summaries, err := st.ListProjectSummaries()
	if err != nil {
		printError("listing projects: %v", err)
		return err
	}
	if len(summaries) == 0 {
		printInfo("No projects. Create one with: atelier projects create <name>")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFILES\tMODIFIED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Name, s.FileCount, humanize.Time(s.LastModified))
	}
	return w.Flush()
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		printError("%v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	eng := engine.New(st, ident.UUID{})
	id, err := eng.NewProject(args[0])
	if err != nil {
		printError("creating project: %v", err)
		return err
	}
	printInfo("Created project %s (%s)", args[0], id)
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		printError("%v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	if err := st.DeleteProject(args[0]); err != nil {
		printError("deleting project: %v", err)
		return err
	}
	printInfo("Deleted project %s", args[0])
	return nil
}
