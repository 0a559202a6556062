package engine

import (
	"strings"
	"time"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// node is the arena representation of a tree entry. Structure is held as
// index references (parentID / childIDs) into the arena map rather than
// nested pointers, so lookups are O(1) and cycles cannot be expressed
// without being caught by the reparenting check.
type node struct {
	id           string
	name         string
	kind         types.NodeKind
	content      string
	parentID     string // empty at project root
	childIDs     []string
	lastModified time.Time
}

// childList returns the ordered id list owned by parentID, with the root
// list for an empty id. The second result is false when parentID does not
// resolve to a folder.
func (e *Engine) childList(parentID string) ([]string, bool) {
	if parentID == "" {
		return e.rootIDs, true
	}
	parent, ok := e.nodes[parentID]
	if !ok || parent.kind != types.KindFolder {
		return nil, false
	}
	return parent.childIDs, true
}

// setChildList replaces the id list owned by parentID.
func (e *Engine) setChildList(parentID string, ids []string) {
	if parentID == "" {
		e.rootIDs = ids
		return
	}
	e.nodes[parentID].childIDs = ids
}

// removeFromParent detaches id from its containing list without touching
// the node itself.
func (e *Engine) removeFromParent(id string) {
	n, ok := e.nodes[id]
	if !ok {
		return
	}
	list, ok := e.childList(n.parentID)
	if !ok {
		return
	}
	for i, cid := range list {
		if cid == id {
			e.setChildList(n.parentID, append(list[:i:i], list[i+1:]...))
			return
		}
	}
}

// isDescendant reports whether candidate is id itself or sits anywhere in
// id's subtree. Used to reject reparenting that would create a cycle.
func (e *Engine) isDescendant(id, candidate string) bool {
	if id == candidate {
		return true
	}
	n, ok := e.nodes[id]
	if !ok {
		return false
	}
	for _, cid := range n.childIDs {
		if e.isDescendant(cid, candidate) {
			return true
		}
	}
	return false
}

// siblingFileExists returns the id of a sibling file with the given name
// under parentID, or empty if none.
func (e *Engine) siblingFileExists(parentID, name string) string {
	list, ok := e.childList(parentID)
	if !ok {
		return ""
	}
	for _, cid := range list {
		if sib := e.nodes[cid]; sib.kind == types.KindFile && sib.name == name {
			return cid
		}
	}
	return ""
}

// path derives the slash-joined name chain from root to id. Paths are
// always computed from the arena, never cached, so renames and moves can
// never leave a stale path behind.
func (e *Engine) path(id string) string {
	var parts []string
	for cur := id; cur != ""; {
		n, ok := e.nodes[cur]
		if !ok {
			return ""
		}
		parts = append(parts, n.name)
		cur = n.parentID
	}
	// Reverse into root-first order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// materialize converts an arena node and its subtree into the nested
// snapshot form with computed paths.
func (e *Engine) materialize(id string) *types.FileNode {
	n, ok := e.nodes[id]
	if !ok {
		return nil
	}

	out := &types.FileNode{
		ID:           n.id,
		Name:         n.name,
		Kind:         n.kind,
		ParentID:     n.parentID,
		Path:         e.path(n.id),
		LastModified: n.lastModified,
	}
	if n.kind == types.KindFile {
		out.Content = n.content
		out.Size = int64(len(n.content))
	} else {
		out.Children = make([]*types.FileNode, 0, len(n.childIDs))
		for _, cid := range n.childIDs {
			out.Children = append(out.Children, e.materialize(cid))
		}
	}
	return out
}

// register inserts a materialized subtree into the arena under parentID.
// Position is recorded on the arena nodes; the snapshot's own ParentID and
// Path fields are ignored, keeping ownership purely positional.
func (e *Engine) register(fn *types.FileNode, parentID string) {
	n := &node{
		id:           fn.ID,
		name:         fn.Name,
		kind:         fn.Kind,
		parentID:     parentID,
		lastModified: fn.LastModified,
	}
	if fn.Kind == types.KindFile {
		n.content = fn.Content
	}
	e.nodes[fn.ID] = n

	list, _ := e.childList(parentID)
	e.setChildList(parentID, append(list, fn.ID))

	for _, child := range fn.Children {
		e.register(child, fn.ID)
	}
}

// snapshotLocked materializes the full project. Callers must hold the lock.
func (e *Engine) snapshotLocked() *types.Project {
	files := make([]*types.FileNode, 0, len(e.rootIDs))
	for _, id := range e.rootIDs {
		files = append(files, e.materialize(id))
	}
	return &types.Project{
		ID:           e.projectID,
		Name:         e.projectName,
		Files:        files,
		LastModified: e.lastModified,
	}
}
