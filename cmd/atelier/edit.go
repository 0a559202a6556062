package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/store"
	"github.com/atelier-editor/atelier/pkg/workspace/tabs"

	"github.com/atelier-editor/atelier/cmd/atelier/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit <project-id-or-name>",
	Short: "Open a project in the terminal editor",
	Long: `Open a stored project in an interactive terminal editor with a file
tree, tabbed editing, and write-through saves.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		printError("%v", err)
		return err
	}
	defer func() { _ = st.Close() }()

	p, err := resolveProject(st, args[0])
	if err != nil {
		printError("%v", err)
		return err
	}

	eng := engine.New(st, ident.UUID{})
	eng.Load(p)
	coord := tabs.New(eng, ident.UUID{})

	program := tea.NewProgram(tui.NewModel(eng, coord), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		printError("editor failed: %v", err)
		return err
	}
	return nil
}

// resolveProject accepts a project id or, failing that, a unique name.
func resolveProject(st *store.Store, ref string) (*types.Project, error) {
	p, err := st.GetProject(ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	summaries, err := st.ListProjectSummaries()
	if err != nil {
		return nil, err
	}
	var matched string
	for _, s := range summaries {
		if s.Name == ref {
			if matched != "" {
				return nil, fmt.Errorf("project name %q is ambiguous, use the id", ref)
			}
			matched = s.ID
		}
	}
	if matched == "" {
		return nil, fmt.Errorf("no project with id or name %q", ref)
	}
	return st.GetProject(matched)
}
