// Package engine implements the project tree engine: the sole mutator of a
// project's in-memory file tree. Every mutation recomputes the tree, writes
// it through the persistence gateway, and broadcasts the new snapshot
// before returning.
package engine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/logging"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/broadcaster"
)

// Expected-outcome conditions surfaced by mutations. None of these
// indicate a corrupted tree.
var (
	// ErrNameExists reports a duplicate-name short-circuit on Create: the
	// existing sibling file's id is returned alongside this error.
	ErrNameExists = errors.New("file with that name already exists")

	// ErrInvalidMove reports a rejected move that would place a folder
	// inside itself or one of its descendants.
	ErrInvalidMove = errors.New("cannot move a folder into itself or its descendants")

	// ErrNotFound reports a missing node for operations that must tell the
	// caller, such as Duplicate.
	ErrNotFound = errors.New("file not found")

	// ErrNotAFile reports a Duplicate attempt on a folder.
	ErrNotAFile = errors.New("only files can be duplicated")

	// ErrEmptyName reports a Create with an empty name.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrNoProject reports an operation before any project was loaded.
	ErrNoProject = errors.New("no project loaded")
)

// Gateway is the persistence contract the engine writes through. The
// badger-backed store implements it; tests use in-memory fakes.
type Gateway interface {
	GetProject(id string) (*types.Project, error)
	SaveProject(p *types.Project) error
	ListProjectSummaries() ([]types.ProjectSummary, error)
	DeleteProject(id string) error
	GetSettings() (*types.Settings, error)
	SaveSettings(s *types.Settings) error
}

// Engine owns the in-memory tree of a single project. All structural
// mutations go through it; readers receive materialized snapshots and
// never share mutable state with the arena.
type Engine struct {
	mu      sync.Mutex
	gateway Gateway
	alloc   ident.Allocator
	bc      *broadcaster.Broadcaster
	log     *logging.Logger

	projectID    string
	projectName  string
	lastModified time.Time
	nodes        map[string]*node
	rootIDs      []string
}

// New creates an engine backed by the given gateway.
func New(gateway Gateway, alloc ident.Allocator) *Engine {
	return NewWithBroadcaster(gateway, alloc, nil)
}

// NewWithBroadcaster creates an engine that publishes a tree event after
// every mutation.
func NewWithBroadcaster(gateway Gateway, alloc ident.Allocator, bc *broadcaster.Broadcaster) *Engine {
	return &Engine{
		gateway: gateway,
		alloc:   alloc,
		bc:      bc,
		log:     logging.Get("engine"),
		nodes:   make(map[string]*node),
	}
}

// NewProject initializes an empty project, persists it, and makes it the
// engine's current project.
func (e *Engine) NewProject(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.projectID = e.alloc.NewID()
	e.projectName = name
	e.lastModified = time.Now()
	e.nodes = make(map[string]*node)
	e.rootIDs = nil

	return e.projectID, e.persistAndNotify(broadcaster.EventTreeReplaced, "")
}

// Load installs a persisted project as the engine's current project.
// The arena is rebuilt from tree position alone, so parent references are
// consistent by construction regardless of what the stored copy claims.
func (e *Engine) Load(p *types.Project) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.projectID = p.ID
	e.projectName = p.Name
	e.lastModified = p.LastModified
	e.nodes = make(map[string]*node)
	e.rootIDs = nil
	for _, root := range p.Files {
		e.register(root, "")
	}
}

// ProjectID returns the id of the loaded project, empty if none.
func (e *Engine) ProjectID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.projectID
}

// Snapshot returns the full materialized project. The result shares no
// state with the arena and is safe to hand to renderers and codecs.
func (e *Engine) Snapshot() *types.Project {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Create adds a file or folder under parentID (project root when empty).
// A parent id that does not resolve to a folder falls back to root.
// Creating a file whose name collides with a sibling file short-circuits:
// the existing id is returned with ErrNameExists and the tree is unchanged.
func (e *Engine) Create(name, parentID string, kind types.NodeKind) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return "", ErrNoProject
	}
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}

	if _, ok := e.childList(parentID); !ok {
		e.log.Debug("create parent did not resolve to a folder, using root", "parent_id", parentID)
		parentID = ""
	}

	if kind == types.KindFile {
		if existing := e.siblingFileExists(parentID, name); existing != "" {
			return existing, ErrNameExists
		}
	}

	n := &node{
		id:           e.alloc.NewID(),
		name:         name,
		kind:         kind,
		parentID:     parentID,
		lastModified: time.Now(),
	}
	e.nodes[n.id] = n
	list, _ := e.childList(parentID)
	e.setChildList(parentID, append(list, n.id))

	return n.id, e.persistAndNotify(broadcaster.EventCreated, n.id)
}

// Delete removes the node and its entire subtree. Deleting an unknown id
// is an idempotent no-op that still persists the (unchanged) tree.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return ErrNoProject
	}

	if _, ok := e.nodes[id]; ok {
		e.removeFromParent(id)
		e.prune(id)
	}

	return e.persistAndNotify(broadcaster.EventDeleted, id)
}

// prune deletes id and all descendants from the arena.
func (e *Engine) prune(id string) {
	n, ok := e.nodes[id]
	if !ok {
		return
	}
	for _, cid := range n.childIDs {
		e.prune(cid)
	}
	delete(e.nodes, id)
}

// Rename changes a node's display name. An unknown id is a silent no-op;
// paths are derived from the arena, so no descendant path can go stale.
func (e *Engine) Rename(id, newName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return ErrNoProject
	}

	n, ok := e.nodes[id]
	if !ok {
		e.log.Debug("rename target not found", "id", id)
		return nil
	}

	n.name = newName
	n.lastModified = time.Now()

	return e.persistAndNotify(broadcaster.EventRenamed, id)
}

// Duplicate copies a file next to the original under a derived name:
// the suffix "_copy" goes before the extension, or at the end when the
// name has none. Folders cannot be duplicated.
func (e *Engine) Duplicate(id string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return "", ErrNoProject
	}

	src, ok := e.nodes[id]
	if !ok {
		return "", ErrNotFound
	}
	if src.kind != types.KindFile {
		return "", ErrNotAFile
	}

	dup := &node{
		id:           e.alloc.NewID(),
		name:         copyName(src.name),
		kind:         types.KindFile,
		content:      src.content,
		parentID:     src.parentID,
		lastModified: time.Now(),
	}
	e.nodes[dup.id] = dup
	list, _ := e.childList(src.parentID)
	e.setChildList(src.parentID, append(list, dup.id))

	return dup.id, e.persistAndNotify(broadcaster.EventCreated, dup.id)
}

// copyName derives the duplicate's name: "notes.txt" -> "notes_copy.txt",
// "Makefile" -> "Makefile_copy".
func copyName(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return name + "_copy"
	}
	return name[:idx] + "_copy" + name[idx:]
}

// Move reparents a node under newParentID (root when empty or when the
// target does not resolve to a folder). A move that would place a folder
// inside itself or its own subtree is rejected with ErrInvalidMove and
// leaves the tree untouched. An unknown source id is a silent no-op.
func (e *Engine) Move(id, newParentID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return ErrNoProject
	}

	n, ok := e.nodes[id]
	if !ok {
		e.log.Debug("move source not found", "id", id)
		return nil
	}

	if newParentID != "" {
		if e.isDescendant(id, newParentID) {
			return ErrInvalidMove
		}
		if _, ok := e.childList(newParentID); !ok {
			newParentID = ""
		}
	}

	e.removeFromParent(id)
	n.parentID = newParentID
	list, _ := e.childList(newParentID)
	e.setChildList(newParentID, append(list, id))
	n.lastModified = time.Now()

	return e.persistAndNotify(broadcaster.EventMoved, id)
}

// UpdateContent replaces a file's content. An unknown id is a silent
// no-op. Every call is a write-through: callers that produce keystroke
// rate updates are expected to debounce before invoking it.
func (e *Engine) UpdateContent(id, content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return ErrNoProject
	}

	n, ok := e.nodes[id]
	if !ok {
		e.log.Debug("content update target not found", "id", id)
		return nil
	}

	n.content = content
	n.lastModified = time.Now()

	return e.persistAndNotify(broadcaster.EventContentChanged, id)
}

// Replace installs a whole new tree, as produced by an archive import.
// The previous tree is discarded atomically.
func (e *Engine) Replace(files []*types.FileNode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.projectID == "" {
		return ErrNoProject
	}

	e.nodes = make(map[string]*node)
	e.rootIDs = nil
	for _, root := range files {
		e.register(root, "")
	}

	return e.persistAndNotify(broadcaster.EventTreeReplaced, "")
}

// Find returns the materialized node for id, including its subtree for
// folders, or false when absent.
func (e *Engine) Find(id string) (*types.FileNode, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.nodes[id]; !ok {
		return nil, false
	}
	return e.materialize(id), true
}

// ResolvePath derives the slash-joined path of id, or false when absent.
func (e *Engine) ResolvePath(id string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.nodes[id]; !ok {
		return "", false
	}
	return e.path(id), true
}

// persistAndNotify bumps the project timestamp, writes the full snapshot
// through the gateway, and broadcasts it. The in-memory tree is never
// rolled back on a failed write; the caller may retry, and a later
// mutation carries the complete current tree anyway.
// Callers must hold the lock.
func (e *Engine) persistAndNotify(event broadcaster.EventType, fileID string) error {
	e.lastModified = time.Now()
	snapshot := e.snapshotLocked()

	saveErr := e.gateway.SaveProject(snapshot)
	if saveErr != nil {
		e.log.Error("persisting project failed", "project_id", e.projectID, "error", saveErr)
		saveErr = fmt.Errorf("persisting project %s: %w", e.projectID, saveErr)
	}

	if e.bc != nil {
		e.bc.Notify(&broadcaster.TreeEvent{
			Type:      event,
			ProjectID: e.projectID,
			FileID:    fileID,
			Snapshot:  snapshot,
		})
	}

	return saveErr
}
