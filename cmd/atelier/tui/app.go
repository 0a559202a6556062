package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/tabs"
)

// AppState represents the current state of the application.
type AppState int

const (
	StateBrowse AppState = iota
	StateEdit
	StatePrompt
	StateConfirmClose
)

// promptKind says what the name prompt is collecting.
type promptKind int

const (
	promptNewFile promptKind = iota
	promptNewFolder
	promptRename
)

// Model is the main Bubble Tea model for the atelier editor TUI.
type Model struct {
	state  AppState
	engine *engine.Engine
	tabs   *tabs.Coordinator

	tree   *TreeView
	editor textarea.Model
	input  textinput.Model

	prompt       promptKind
	promptTarget string // File id for rename prompts

	// Confirmation dialog state for closing a dirty tab.
	confirmFocused int // 0 = keep editing, 1 = discard
	confirmTabID   string

	status string
	width  int
	height int
}

// NewModel creates the editor model over an engine with a loaded project.
func NewModel(eng *engine.Engine, coord *tabs.Coordinator) Model {
	ta := textarea.New()
	ta.ShowLineNumbers = true

	ti := textinput.New()
	ti.CharLimit = 256

	return Model{
		state:  StateBrowse,
		engine: eng,
		tabs:   coord,
		tree:   NewTreeView(eng.Snapshot()),
		editor: ta,
		input:  ti,
		width:  80,
		height: 24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editor.SetWidth(m.editorWidth())
		m.editor.SetHeight(m.paneHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateBrowse:
		return m.handleBrowseKey(msg)
	case StateEdit:
		return m.handleEditKey(msg)
	case StatePrompt:
		return m.handlePromptKey(msg)
	case StateConfirmClose:
		return m.handleConfirmKey(msg)
	}
	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		m.tree.MoveUp()

	case "down", "j":
		m.tree.MoveDown()

	case "enter", " ":
		node := m.tree.Selected()
		if node == nil {
			break
		}
		if node.IsFolder() {
			m.tree.Toggle()
			break
		}
		return m.openTab(node.ID)

	case "n":
		return m.startPrompt(promptNewFile, "new file name"), nil

	case "f":
		return m.startPrompt(promptNewFolder, "new folder name"), nil

	case "r":
		node := m.tree.Selected()
		if node == nil {
			break
		}
		m.promptTarget = node.ID
		return m.startPrompt(promptRename, "rename to"), nil

	case "c":
		node := m.tree.Selected()
		if node == nil {
			break
		}
		if id, err := m.engine.Duplicate(node.ID); err != nil {
			m.status = errorTextStyle.Render(err.Error())
		} else {
			m.refreshTree()
			m.status = fmt.Sprintf("duplicated to %s", m.nodeName(id))
		}

	case "x":
		node := m.tree.Selected()
		if node == nil {
			break
		}
		name := node.Name
		if err := m.engine.Delete(node.ID); err != nil {
			m.status = errorTextStyle.Render(err.Error())
		} else {
			m.tabs.Reconcile(m.engine.Snapshot())
			m.refreshTree()
			m.status = fmt.Sprintf("deleted %s", name)
		}

	case "tab":
		if m.tabs.Active() != nil {
			m.state = StateEdit
			m.editor.Focus()
		}
	}
	return m, nil
}

func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.syncActiveTab()
		m.editor.Blur()
		m.state = StateBrowse
		return m, nil

	case "ctrl+c":
		return m, tea.Quit

	case "ctrl+s":
		m.syncActiveTab()
		active := m.tabs.Active()
		if active == nil {
			return m, nil
		}
		if err := m.tabs.Save(active.ID); err != nil {
			if errors.Is(err, tabs.ErrNotDirty) {
				m.status = "no changes to save"
			} else {
				m.status = errorTextStyle.Render(err.Error())
			}
		} else {
			m.refreshTree()
			m.status = fmt.Sprintf("saved %s", active.Title)
		}
		return m, nil

	case "ctrl+w":
		m.syncActiveTab()
		active := m.tabs.Active()
		if active == nil {
			return m, nil
		}
		if active.Dirty {
			m.state = StateConfirmClose
			m.confirmTabID = active.ID
			m.confirmFocused = 0
			return m, nil
		}
		return m.closeTab(active.ID)

	case "ctrl+right":
		m.syncActiveTab()
		m.cycleTab(1)
		return m, nil

	case "ctrl+left":
		m.syncActiveTab()
		m.cycleTab(-1)
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = StateBrowse
		m.input.Blur()
		return m, nil

	case "enter":
		name := strings.TrimSpace(m.input.Value())
		m.state = StateBrowse
		m.input.Blur()
		if name == "" {
			return m, nil
		}
		m.applyPrompt(name)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// applyPrompt runs the mutation the prompt was collecting a name for.
func (m *Model) applyPrompt(name string) {
	var err error
	switch m.prompt {
	case promptNewFile:
		_, err = m.engine.Create(name, m.tree.SelectedFolderID(), types.KindFile)
		if errors.Is(err, engine.ErrNameExists) {
			m.status = fmt.Sprintf("%s already exists", name)
			err = nil
		}
	case promptNewFolder:
		_, err = m.engine.Create(name, m.tree.SelectedFolderID(), types.KindFolder)
	case promptRename:
		err = m.engine.Rename(m.promptTarget, name)
		if err == nil {
			m.tabs.Reconcile(m.engine.Snapshot())
		}
	}

	if err != nil {
		m.status = errorTextStyle.Render(err.Error())
		return
	}
	m.refreshTree()
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "right", "tab":
		m.confirmFocused = 1 - m.confirmFocused
	case "esc":
		m.state = StateEdit
	case "enter":
		if m.confirmFocused == 1 {
			return m.closeTab(m.confirmTabID)
		}
		m.state = StateEdit
	}
	return m, nil
}

// startPrompt switches to the name prompt state.
func (m Model) startPrompt(kind promptKind, placeholder string) Model {
	m.state = StatePrompt
	m.prompt = kind
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	return m
}

// openTab opens (or switches to) a tab and moves focus to the editor.
func (m Model) openTab(fileID string) (tea.Model, tea.Cmd) {
	tab, err := m.tabs.Open(fileID)
	if err != nil {
		m.status = errorTextStyle.Render(err.Error())
		return m, nil
	}
	m.editor.SetValue(tab.Content)
	m.editor.SetWidth(m.editorWidth())
	m.editor.SetHeight(m.paneHeight())
	m.editor.Focus()
	m.state = StateEdit
	m.status = ""
	return m, nil
}

// closeTab closes a tab and loads whichever tab became active.
func (m Model) closeTab(tabID string) (tea.Model, tea.Cmd) {
	if err := m.tabs.Close(tabID); err != nil {
		m.status = errorTextStyle.Render(err.Error())
	}
	if active := m.tabs.Active(); active != nil {
		m.editor.SetValue(active.Content)
		m.state = StateEdit
		return m, nil
	}
	m.editor.Blur()
	m.state = StateBrowse
	return m, nil
}

// cycleTab activates the next or previous tab in open order.
func (m *Model) cycleTab(dir int) {
	open := m.tabs.Tabs()
	if len(open) < 2 {
		return
	}
	activeIdx := 0
	for i, t := range open {
		if t.Active {
			activeIdx = i
			break
		}
	}
	next := open[(activeIdx+dir+len(open))%len(open)]
	if err := m.tabs.Activate(next.ID); err != nil {
		return
	}
	m.editor.SetValue(next.Content)
}

// syncActiveTab pushes the textarea buffer into the active tab's working
// copy so Dirty tracking stays accurate.
func (m *Model) syncActiveTab() {
	active := m.tabs.Active()
	if active == nil {
		return
	}
	_ = m.tabs.Edit(active.ID, m.editor.Value())
}

func (m *Model) refreshTree() {
	m.tree.SetProject(m.engine.Snapshot())
}

func (m *Model) nodeName(id string) string {
	if node, ok := m.engine.Find(id); ok {
		return node.Name
	}
	return id
}

func (m Model) treeWidth() int {
	w := m.width / 3
	if w < 24 {
		w = 24
	}
	return w
}

func (m Model) editorWidth() int {
	w := m.width - m.treeWidth() - 6
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) paneHeight() int {
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

// View renders the UI.
func (m Model) View() string {
	if m.state == StateConfirmClose {
		return m.renderConfirm()
	}

	tabBar := m.renderTabBar()

	treePane := paneStyle
	editorPane := paneStyle
	if m.state == StateBrowse || m.state == StatePrompt {
		treePane = focusedPaneStyle
	} else {
		editorPane = focusedPaneStyle
	}

	tree := treePane.Width(m.treeWidth()).Render(m.tree.View(m.treeWidth(), m.paneHeight()))

	var editorBody string
	if m.tabs.Active() != nil {
		editorBody = m.editor.View()
	} else {
		editorBody = center(mutedTextStyle.Render("no open files"), m.editorWidth())
	}
	editor := editorPane.Width(m.editorWidth() + 2).Render(editorBody)

	body := lipgloss.JoinHorizontal(lipgloss.Top, tree, editor)

	var footer string
	if m.state == StatePrompt {
		footer = m.input.View()
	} else {
		footer = m.renderKeyHints()
	}
	if m.status != "" {
		footer = m.status + "  " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, tabBar, body, footer)
}

// renderTabBar renders the open tab strip with dirty markers.
func (m Model) renderTabBar() string {
	open := m.tabs.Tabs()
	if len(open) == 0 {
		return titleStyle.Render(" atelier ") + mutedTextStyle.Render(" no open tabs")
	}

	parts := make([]string, 0, len(open))
	for _, t := range open {
		label := t.Title
		if t.Dirty {
			label += dirtyMarkStyle.Render(" ●")
		}
		if t.Active {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderKeyHints renders the context-sensitive key help line.
func (m Model) renderKeyHints() string {
	hint := func(key, desc string) string {
		return keyStyle.Render(key) + keyDescStyle.Render(" "+desc)
	}

	if m.state == StateEdit {
		return strings.Join([]string{
			hint("ctrl+s", "save"),
			hint("ctrl+w", "close"),
			hint("ctrl+←/→", "switch tab"),
			hint("esc", "tree"),
		}, "  ")
	}
	return strings.Join([]string{
		hint("enter", "open"),
		hint("n", "new file"),
		hint("f", "new folder"),
		hint("r", "rename"),
		hint("c", "duplicate"),
		hint("x", "delete"),
		hint("q", "quit"),
	}, "  ")
}

// renderConfirm renders the dirty-close confirmation dialog.
func (m Model) renderConfirm() string {
	keep := inactiveButtonStyle.Render("Keep editing")
	discard := inactiveButtonStyle.Render("Discard")
	if m.confirmFocused == 0 {
		keep = activeButtonStyle.Render("Keep editing")
	} else {
		discard = activeButtonStyle.Render("Discard")
	}

	dialog := dialogBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		dialogTitleStyle.Render("Unsaved changes"),
		"",
		"This tab has unsaved changes.",
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, keep, discard),
	))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
}
