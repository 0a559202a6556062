// Package archive converts project trees to and from portable zip
// archives. Files become entries at their resolved paths; folders are
// implicit in entry path prefixes, so empty folders do not survive a
// round trip. Import synthesizes folder nodes for every intermediate
// path segment and allocates fresh ids throughout.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// ErrMalformed reports an archive that could not be read. Import is all
// or nothing: a single unreadable entry aborts it and no partial tree is
// returned.
var ErrMalformed = errors.New("malformed archive")

// Export serializes the project's file tree into a zip archive.
// Node paths must be materialized, as in an engine snapshot.
func Export(p *types.Project) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	var werr error
	p.Walk(func(n *types.FileNode) bool {
		if n.Kind != types.KindFile {
			return true
		}
		entry, err := w.Create(n.Path)
		if err != nil {
			werr = fmt.Errorf("creating entry %s: %w", n.Path, err)
			return false
		}
		if _, err := entry.Write([]byte(n.Content)); err != nil {
			werr = fmt.Errorf("writing entry %s: %w", n.Path, err)
			return false
		}
		return true
	})
	if werr != nil {
		return nil, werr
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Import parses a zip archive into a file tree. Entry paths are split on
// "/"; a folder node is synthesized once per intermediate path segment,
// deduplicated by the path so far, and file nodes attach to their
// immediate parent folder (or the root list when the path has a single
// segment). Every node gets a fresh id from the allocator.
func Import(data []byte, alloc ident.Allocator) ([]*types.FileNode, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	now := time.Now()
	var roots []*types.FileNode
	folders := make(map[string]*types.FileNode) // path so far -> folder node

	// Stable traversal keeps sibling order deterministic.
	entries := make([]*zip.File, len(r.File))
	copy(entries, r.File)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	attach := func(n *types.FileNode, parent *types.FileNode) {
		if parent == nil {
			roots = append(roots, n)
			return
		}
		n.ParentID = parent.ID
		parent.Children = append(parent.Children, n)
	}

	ensureFolder := func(path, name string, parent *types.FileNode) *types.FileNode {
		if f, ok := folders[path]; ok {
			return f
		}
		f := &types.FileNode{
			ID:           alloc.NewID(),
			Name:         name,
			Kind:         types.KindFolder,
			Path:         path,
			LastModified: now,
		}
		attach(f, parent)
		folders[path] = f
		return f
	}

	for _, entry := range entries {
		name := strings.Trim(entry.Name, "/")
		if name == "" {
			continue
		}

		segments := strings.Split(name, "/")
		var parent *types.FileNode
		var pathSoFar string
		for _, seg := range segments[:len(segments)-1] {
			if pathSoFar == "" {
				pathSoFar = seg
			} else {
				pathSoFar += "/" + seg
			}
			parent = ensureFolder(pathSoFar, seg, parent)
		}

		if entry.FileInfo().IsDir() {
			if pathSoFar == "" {
				ensureFolder(name, segments[len(segments)-1], parent)
			} else {
				ensureFolder(pathSoFar+"/"+segments[len(segments)-1], segments[len(segments)-1], parent)
			}
			continue
		}

		content, err := readEntry(entry)
		if err != nil {
			return nil, err
		}

		file := &types.FileNode{
			ID:           alloc.NewID(),
			Name:         segments[len(segments)-1],
			Kind:         types.KindFile,
			Content:      content,
			Path:         name,
			Size:         int64(len(content)),
			LastModified: now,
		}
		attach(file, parent)
	}

	return roots, nil
}

func readEntry(entry *zip.File) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", ErrMalformed, entry.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrMalformed, entry.Name, err)
	}
	return string(data), nil
}
