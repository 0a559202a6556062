// Package mirror materializes a project onto a scratch directory so files
// can be edited with external tools, and watches that directory to route
// content changes back through the tree engine. Structural changes on
// disk (new files, deletions, renames) are deliberately ignored: the
// engine stays the sole authority over tree shape.
package mirror

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/atelier-editor/atelier/pkg/atelier/logging"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
)

// Mirror links a project snapshot on disk to the engine.
type Mirror struct {
	engine  *engine.Engine
	dir     string
	watcher *fsnotify.Watcher
	log     *logging.Logger

	mu      sync.Mutex
	byPath  map[string]string // relative path -> file id
	closed  bool
	stopped chan struct{}
}

// New creates a mirror for the engine's current project rooted at dir.
func New(eng *engine.Engine, dir string) (*Mirror, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving mirror directory: %w", err)
	}

	return &Mirror{
		engine:  eng,
		dir:     absDir,
		log:     logging.Get("mirror"),
		byPath:  make(map[string]string),
		stopped: make(chan struct{}),
	}, nil
}

// Dir returns the mirror's root directory.
func (m *Mirror) Dir() string {
	return m.dir
}

// Materialize writes the current project tree to the mirror directory and
// records the path-to-id index used to route changes back.
func (m *Mirror) Materialize() error {
	snapshot := m.engine.Snapshot()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byPath = make(map[string]string)

	var werr error
	snapshot.Walk(func(n *types.FileNode) bool {
		target := filepath.Join(m.dir, filepath.FromSlash(n.Path))
		if n.IsFolder() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				werr = fmt.Errorf("creating %s: %w", target, err)
				return false
			}
			return true
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			werr = fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
			return false
		}
		if err := os.WriteFile(target, []byte(n.Content), 0o644); err != nil {
			werr = fmt.Errorf("writing %s: %w", target, err)
			return false
		}
		m.byPath[n.Path] = n.ID
		return true
	})
	return werr
}

// Watch starts watching the mirror directory and routing writes back into
// the engine. It blocks until Close is called.
func (m *Mirror) Watch() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = fsw.Close()
		return nil
	}
	m.watcher = fsw
	m.mu.Unlock()

	// Watch every directory in the mirror; fsnotify is not recursive.
	err = filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("adding watches: %w", err)
	}

	defer close(m.stopped)
	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				m.handleWrite(event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("watch error", "error", err)
		}
	}
}

// handleWrite pushes an on-disk content change back through the engine.
// Paths that do not map to a known file are ignored.
func (m *Mirror) handleWrite(path string) {
	rel, err := filepath.Rel(m.dir, path)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "..") {
		return
	}

	m.mu.Lock()
	fileID, ok := m.byPath[rel]
	m.mu.Unlock()
	if !ok {
		m.log.Debug("ignoring write outside the mirrored tree", "path", rel)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		m.log.Warn("reading mirrored file failed", "path", path, "error", err)
		return
	}

	// Editors often fire several events per save; skip the write-through
	// when the content did not actually change.
	if node, ok := m.engine.Find(fileID); ok && node.Content == string(data) {
		return
	}

	if err := m.engine.UpdateContent(fileID, string(data)); err != nil {
		m.log.Error("routing external edit failed", "file_id", fileID, "error", err)
	}
}

// Close stops the watcher. Safe to call more than once.
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
