package tui

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/tabs"
)

// stubGateway is a minimal in-memory persistence fake for model tests.
type stubGateway struct {
	projects map[string]*types.Project
}

func (g *stubGateway) GetProject(id string) (*types.Project, error) {
	p, ok := g.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id)
	}
	return p, nil
}

func (g *stubGateway) SaveProject(p *types.Project) error {
	g.projects[p.ID] = p
	return nil
}

func (g *stubGateway) ListProjectSummaries() ([]types.ProjectSummary, error) { return nil, nil }
func (g *stubGateway) DeleteProject(id string) error                         { return nil }
func (g *stubGateway) GetSettings() (*types.Settings, error)                 { return types.DefaultSettings(), nil }
func (g *stubGateway) SaveSettings(s *types.Settings) error                  { return nil }

func newTestModel(t *testing.T) (Model, *engine.Engine, *tabs.Coordinator) {
	t.Helper()

	gw := &stubGateway{projects: make(map[string]*types.Project)}
	eng := engine.New(gw, &ident.Sequence{Prefix: "n"})
	if _, err := eng.NewProject("demo"); err != nil {
		t.Fatalf("creating project: %v", err)
	}
	if _, err := eng.Create("main.go", "", types.KindFile); err != nil {
		t.Fatalf("creating file: %v", err)
	}

	coord := tabs.New(eng, &ident.Sequence{Prefix: "tab"})
	return NewModel(eng, coord), eng, coord
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+w":
		return tea.KeyMsg{Type: tea.KeyCtrlW}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func update(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func TestModelStartsInBrowseState(t *testing.T) {
	m, _, _ := newTestModel(t)

	if m.state != StateBrowse {
		t.Errorf("expected browse state, got %v", m.state)
	}
	if !strings.Contains(m.View(), "main.go") {
		t.Error("expected file name in initial view")
	}
}

func TestModelOpensFileIntoEditor(t *testing.T) {
	m, _, coord := newTestModel(t)

	m = update(m, key("enter"))

	if m.state != StateEdit {
		t.Errorf("expected edit state after opening a file, got %v", m.state)
	}
	active := coord.Active()
	if active == nil || active.Title != "main.go" {
		t.Errorf("expected active tab main.go, got %+v", active)
	}
}

func TestModelSaveWritesThroughEngine(t *testing.T) {
	m, eng, coord := newTestModel(t)

	m = update(m, key("enter"))
	m.editor.SetValue("package main\n")
	m = update(m, key("ctrl+s"))

	active := coord.Active()
	if active == nil || active.Dirty {
		t.Errorf("expected clean tab after save, got %+v", active)
	}
	node := eng.Snapshot().FindByID(active.FileID)
	if node == nil || node.Content != "package main\n" {
		t.Error("expected saved content in the engine snapshot")
	}
}

func TestModelDirtyCloseNeedsConfirmation(t *testing.T) {
	m, _, coord := newTestModel(t)

	m = update(m, key("enter"))
	m.editor.SetValue("changed")
	m = update(m, key("ctrl+w"))

	if m.state != StateConfirmClose {
		t.Fatalf("expected confirmation state, got %v", m.state)
	}
	if len(coord.Tabs()) != 1 {
		t.Error("tab should still be open while confirming")
	}

	// Discard closes the tab.
	m = update(m, key("tab"), key("enter"))
	if len(coord.Tabs()) != 0 {
		t.Error("expected tab closed after discard")
	}
	if m.state != StateBrowse {
		t.Errorf("expected browse state after closing last tab, got %v", m.state)
	}
}

func TestModelCleanCloseSkipsConfirmation(t *testing.T) {
	m, _, coord := newTestModel(t)

	m = update(m, key("enter"), key("ctrl+w"))

	if m.state != StateBrowse {
		t.Errorf("expected browse state, got %v", m.state)
	}
	if len(coord.Tabs()) != 0 {
		t.Error("expected tab closed without confirmation")
	}
}

func TestModelNewFilePrompt(t *testing.T) {
	m, eng, _ := newTestModel(t)

	m = update(m, key("n"))
	if m.state != StatePrompt {
		t.Fatalf("expected prompt state, got %v", m.state)
	}

	m.input.SetValue("util.go")
	m = update(m, key("enter"))

	if m.state != StateBrowse {
		t.Errorf("expected browse state after prompt, got %v", m.state)
	}
	found := false
	eng.Snapshot().Walk(func(n *types.FileNode) bool {
		if n.Name == "util.go" {
			found = true
			return false
		}
		return true
	})
	if !found {
		t.Error("expected util.go in the tree")
	}
}

func TestModelDeleteReconcilesTabs(t *testing.T) {
	m, _, coord := newTestModel(t)

	m = update(m, key("enter"), key("esc"))
	if len(coord.Tabs()) != 1 {
		t.Fatal("expected one open tab")
	}

	m = update(m, key("x"))
	if len(coord.Tabs()) != 0 {
		t.Error("expected tab closed after its file was deleted")
	}
}
