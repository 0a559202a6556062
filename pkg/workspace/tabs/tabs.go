// Package tabs implements the open-tab coordinator: the ephemeral list of
// editing tabs bound to file ids, reconciled against tree mutations.
// Tabs are never persisted; they own a working copy of the file content
// that may diverge from the saved tree until Save pushes it through the
// engine.
package tabs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/logging"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/broadcaster"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
)

var (
	// ErrTabNotFound reports an operation on an unknown tab id. Unlike
	// tree mutations, tab operations never silently ignore a missing id.
	ErrTabNotFound = errors.New("tab not found")

	// ErrFileGone reports a save whose bound file no longer exists.
	ErrFileGone = errors.New("file no longer exists")

	// ErrFolderNotEditable reports an attempt to open a folder in a tab.
	ErrFolderNotEditable = errors.New("folders cannot be opened in a tab")

	// ErrNotDirty reports a save on a tab with no unsaved changes.
	ErrNotDirty = errors.New("tab has no unsaved changes")
)

// Tab is an ephemeral binding between an editing session and a file id.
type Tab struct {
	ID       string `json:"id"`
	FileID   string `json:"file_id"`
	Title    string `json:"title"`
	Language string `json:"language"`
	Content  string `json:"content"`
	Dirty    bool   `json:"dirty"`
	Active   bool   `json:"active"`

	// savedContent is the content at last save, the baseline for Dirty.
	savedContent string
}

// Coordinator maintains open tabs and keeps them consistent with the
// project tree engine. It never mutates file content directly; saves
// always route through the engine.
type Coordinator struct {
	mu     sync.Mutex
	engine *engine.Engine
	alloc  ident.Allocator
	log    *logging.Logger

	// order is open order, oldest first; activation falls back to the
	// most recently opened tab.
	order    []string
	tabs     map[string]*Tab
	activeID string
}

// New creates a coordinator for the given engine.
func New(eng *engine.Engine, alloc ident.Allocator) *Coordinator {
	return &Coordinator{
		engine: eng,
		alloc:  alloc,
		log:    logging.Get("tabs"),
		tabs:   make(map[string]*Tab),
	}
}

// Open opens a tab for fileID, seeding the working copy from the file's
// current content. If a tab for the file already exists it is activated
// instead (switch-to semantics, never duplicate-open).
func (c *Coordinator) Open(fileID string) (*Tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range c.order {
		if t := c.tabs[id]; t.FileID == fileID {
			c.activateLocked(id)
			return c.cloneLocked(id), nil
		}
	}

	file, ok := c.engine.Find(fileID)
	if !ok {
		return nil, fmt.Errorf("opening %s: %w", fileID, ErrFileGone)
	}
	if file.IsFolder() {
		return nil, ErrFolderNotEditable
	}

	tab := &Tab{
		ID:           c.alloc.NewID(),
		FileID:       fileID,
		Title:        file.Name,
		Language:     types.DetectLanguage(file.Name),
		Content:      file.Content,
		savedContent: file.Content,
	}
	c.tabs[tab.ID] = tab
	c.order = append(c.order, tab.ID)
	c.activateLocked(tab.ID)

	return c.cloneLocked(tab.ID), nil
}

// Edit updates a tab's working copy. Dirty tracks divergence from the
// content at last save, so editing back to the saved text clears it.
// The underlying file is not touched.
func (c *Coordinator) Edit(tabID, newContent string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tab, ok := c.tabs[tabID]
	if !ok {
		return ErrTabNotFound
	}

	tab.Content = newContent
	tab.Dirty = newContent != tab.savedContent
	return nil
}

// Save pushes the tab's working copy into the tree engine. Saving a tab
// whose bound file was deleted fails with ErrFileGone rather than being
// silently swallowed.
func (c *Coordinator) Save(tabID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tab, ok := c.tabs[tabID]
	if !ok {
		return ErrTabNotFound
	}
	if !tab.Dirty {
		return ErrNotDirty
	}
	if _, ok := c.engine.Find(tab.FileID); !ok {
		return fmt.Errorf("saving tab %s: %w", tabID, ErrFileGone)
	}

	if err := c.engine.UpdateContent(tab.FileID, tab.Content); err != nil {
		return err
	}

	tab.savedContent = tab.Content
	tab.Dirty = false
	return nil
}

// Close removes a tab. Gating a dirty close behind a confirmation is the
// caller's job; the coordinator never blocks it. If the closed tab was
// active, the most recently opened remaining tab becomes active.
func (c *Coordinator) Close(tabID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tabs[tabID]; !ok {
		return ErrTabNotFound
	}
	c.removeLocked(tabID)
	return nil
}

// Reconcile aligns tabs with a new tree snapshot: tabs bound to deleted
// files close, titles follow renames, and unsaved content is untouched.
func (c *Coordinator) Reconcile(snapshot *types.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range append([]string(nil), c.order...) {
		tab := c.tabs[id]
		file := snapshot.FindByID(tab.FileID)
		if file == nil {
			c.log.Debug("closing tab for deleted file", "tab_id", id, "file_id", tab.FileID)
			c.removeLocked(id)
			continue
		}
		if file.Name != tab.Title {
			tab.Title = file.Name
			tab.Language = types.DetectLanguage(file.Name)
		}
	}
}

// Run pumps broadcaster events into Reconcile until the subscription
// closes. Intended to run in its own goroutine.
func (c *Coordinator) Run(sub *broadcaster.Subscriber) {
	for event := range sub.Events {
		if event.Snapshot != nil {
			c.Reconcile(event.Snapshot)
		}
	}
}

// Get returns a copy of the tab, or ErrTabNotFound.
func (c *Coordinator) Get(tabID string) (*Tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tabs[tabID]; !ok {
		return nil, ErrTabNotFound
	}
	return c.cloneLocked(tabID), nil
}

// Tabs returns copies of all open tabs in open order.
func (c *Coordinator) Tabs() []*Tab {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Tab, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.cloneLocked(id))
	}
	return out
}

// Active returns the active tab, or nil when no tab is open.
func (c *Coordinator) Active() *Tab {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeID == "" {
		return nil
	}
	return c.cloneLocked(c.activeID)
}

// Activate makes the given tab active.
func (c *Coordinator) Activate(tabID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tabs[tabID]; !ok {
		return ErrTabNotFound
	}
	c.activateLocked(tabID)
	return nil
}

func (c *Coordinator) activateLocked(tabID string) {
	if c.activeID != "" {
		if prev, ok := c.tabs[c.activeID]; ok {
			prev.Active = false
		}
	}
	c.activeID = tabID
	c.tabs[tabID].Active = true
}

func (c *Coordinator) removeLocked(tabID string) {
	wasActive := c.activeID == tabID
	delete(c.tabs, tabID)
	for i, id := range c.order {
		if id == tabID {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}

	if !wasActive {
		return
	}
	c.activeID = ""
	if len(c.order) > 0 {
		c.activateLocked(c.order[len(c.order)-1])
	}
}

func (c *Coordinator) cloneLocked(tabID string) *Tab {
	t := *c.tabs[tabID]
	return &t
}
