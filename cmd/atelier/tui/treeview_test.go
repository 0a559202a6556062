package tui

import (
	"strings"
	"testing"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// Helper to create a test project snapshot.
func createTestProject() *types.Project {
	return &types.Project{
		ID:   "p1",
		Name: "test",
		Files: []*types.FileNode{
			{
				ID:   "d1",
				Name: "src",
				Kind: types.KindFolder,
				Children: []*types.FileNode{
					{ID: "f1", Name: "main.go", Kind: types.KindFile, ParentID: "d1"},
					{ID: "f2", Name: "util.go", Kind: types.KindFile, ParentID: "d1"},
				},
			},
			{ID: "f3", Name: "README.md", Kind: types.KindFile},
		},
	}
}

func TestTreeViewCollapsedByDefault(t *testing.T) {
	tv := NewTreeView(createTestProject())

	if len(tv.flat) != 2 {
		t.Errorf("expected 2 visible rows with folders collapsed, got %d", len(tv.flat))
	}
}

func TestTreeViewToggleExpandsFolder(t *testing.T) {
	tv := NewTreeView(createTestProject())

	tv.Toggle()
	if len(tv.flat) != 4 {
		t.Errorf("expected 4 visible rows after expanding src, got %d", len(tv.flat))
	}

	tv.Toggle()
	if len(tv.flat) != 2 {
		t.Errorf("expected 2 visible rows after collapsing src, got %d", len(tv.flat))
	}
}

func TestTreeViewToggleIgnoresFiles(t *testing.T) {
	tv := NewTreeView(createTestProject())
	tv.MoveDown() // README.md

	before := len(tv.flat)
	tv.Toggle()
	if len(tv.flat) != before {
		t.Errorf("toggling a file changed row count from %d to %d", before, len(tv.flat))
	}
}

func TestTreeViewCursorBounds(t *testing.T) {
	tv := NewTreeView(createTestProject())

	tv.MoveUp()
	if tv.cursor != 0 {
		t.Errorf("cursor moved above 0: %d", tv.cursor)
	}

	for i := 0; i < 10; i++ {
		tv.MoveDown()
	}
	if tv.cursor != len(tv.flat)-1 {
		t.Errorf("cursor moved past last row: %d", tv.cursor)
	}
}

func TestTreeViewSelectedFolderID(t *testing.T) {
	tv := NewTreeView(createTestProject())

	if got := tv.SelectedFolderID(); got != "d1" {
		t.Errorf("cursor on folder should resolve to itself, got %q", got)
	}

	tv.Toggle()
	tv.MoveDown() // main.go
	if got := tv.SelectedFolderID(); got != "d1" {
		t.Errorf("cursor on file should resolve to its parent, got %q", got)
	}
}

func TestTreeViewPreservesExpansionAcrossSnapshots(t *testing.T) {
	tv := NewTreeView(createTestProject())
	tv.Toggle()

	tv.SetProject(createTestProject())
	if len(tv.flat) != 4 {
		t.Errorf("expansion state lost across snapshot replace: %d rows", len(tv.flat))
	}
}

func TestTreeViewEmptyProject(t *testing.T) {
	tv := NewTreeView(&types.Project{ID: "p1", Name: "empty"})

	if tv.Selected() != nil {
		t.Error("expected no selection in empty project")
	}
	view := tv.View(40, 10)
	if !strings.Contains(view, "empty project") {
		t.Errorf("expected empty placeholder, got %q", view)
	}
}

func TestTreeViewRenderShowsCursor(t *testing.T) {
	tv := NewTreeView(createTestProject())
	view := tv.View(40, 10)

	if !strings.Contains(view, "src") {
		t.Errorf("expected folder name in view, got %q", view)
	}
	if !strings.Contains(view, "README.md") {
		t.Errorf("expected file name in view, got %q", view)
	}
}
