package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// Tree view icons using Unicode symbols.
const (
	iconExpanded  = "▼" // Black down-pointing triangle
	iconCollapsed = "▶" // Black right-pointing triangle
	iconFile      = "·" // Middle dot
)

// treeRow is one visible row of the flattened tree.
type treeRow struct {
	node  *types.FileNode
	depth int
}

// TreeView displays the project tree with expand/collapse, cursor
// movement, and scrolling. It renders from snapshots and holds no
// reference into the engine's arena.
type TreeView struct {
	roots    []*types.FileNode
	flat     []treeRow
	cursor   int
	offset   int
	expanded map[string]bool // Folder ids currently expanded
}

// NewTreeView creates a TreeView over a project snapshot.
func NewTreeView(p *types.Project) *TreeView {
	tv := &TreeView{expanded: make(map[string]bool)}
	tv.SetProject(p)
	return tv
}

// SetProject replaces the snapshot, preserving expansion state and
// keeping the cursor in bounds.
func (tv *TreeView) SetProject(p *types.Project) {
	if p == nil {
		tv.roots = nil
	} else {
		tv.roots = p.Files
	}
	tv.refresh()
}

// refresh rebuilds the flat row list from the current tree state.
func (tv *TreeView) refresh() {
	tv.flat = tv.flat[:0]
	for _, root := range tv.roots {
		tv.flatten(root, 0)
	}

	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

func (tv *TreeView) flatten(n *types.FileNode, depth int) {
	tv.flat = append(tv.flat, treeRow{node: n, depth: depth})
	if n.IsFolder() && tv.expanded[n.ID] {
		for _, child := range n.Children {
			tv.flatten(child, depth+1)
		}
	}
}

// MoveUp moves the cursor up one position.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
	}
}

// MoveDown moves the cursor down one position.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.flat)-1 {
		tv.cursor++
	}
}

// Toggle expands or collapses the folder under the cursor.
func (tv *TreeView) Toggle() {
	node := tv.Selected()
	if node == nil || !node.IsFolder() {
		return
	}
	tv.expanded[node.ID] = !tv.expanded[node.ID]
	tv.refresh()
}

// Selected returns the node under the cursor, nil when the tree is empty.
func (tv *TreeView) Selected() *types.FileNode {
	if len(tv.flat) == 0 || tv.cursor < 0 || tv.cursor >= len(tv.flat) {
		return nil
	}
	return tv.flat[tv.cursor].node
}

// SelectedFolderID returns the folder id the cursor resolves to: the
// node itself when it is a folder, otherwise its parent. Empty string
// means root.
func (tv *TreeView) SelectedFolderID() string {
	node := tv.Selected()
	if node == nil {
		return ""
	}
	if node.IsFolder() {
		return node.ID
	}
	return node.ParentID
}

// View renders the tree within the given dimensions.
func (tv *TreeView) View(width, height int) string {
	if len(tv.flat) == 0 {
		return center(mutedTextStyle.Render("empty project"), width) + "\n"
	}

	var b strings.Builder

	visibleRows := height
	if visibleRows < 1 {
		visibleRows = 1
	}
	tv.ensureVisible(visibleRows)

	for i := tv.offset; i < tv.offset+visibleRows && i < len(tv.flat); i++ {
		row := tv.flat[i]
		b.WriteString(tv.renderRow(row, width, i == tv.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

// ensureVisible adjusts offset to keep the cursor on screen.
func (tv *TreeView) ensureVisible(visible int) {
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	} else if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

// renderRow renders a single tree row.
func (tv *TreeView) renderRow(row treeRow, width int, isCursor bool) string {
	indent := strings.Repeat("  ", row.depth)

	var icon string
	if row.node.IsFolder() {
		if tv.expanded[row.node.ID] {
			icon = iconExpanded
		} else {
			icon = iconCollapsed
		}
	} else {
		icon = iconFile
	}

	text := truncate(indent+icon+" "+row.node.Name, width)
	if pad := width - lipgloss.Width(text); pad > 0 {
		text += strings.Repeat(" ", pad)
	}

	if isCursor {
		return treeRowHighlightStyle.Render(text)
	}
	if row.node.IsFolder() {
		return treeFolderStyle.Render(text)
	}
	return treeRowNormalStyle.Render(text)
}
