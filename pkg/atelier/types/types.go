// Package types provides core data types for the atelier workspace engine.
// It includes the file tree node and project aggregate persisted by the
// storage layer, editor settings, and language detection helpers.
package types

import (
	"strings"
	"time"
)

// NodeKind distinguishes files from folders.
type NodeKind string

const (
	// KindFile marks a node that carries text content.
	KindFile NodeKind = "file"
	// KindFolder marks a node that contains children.
	KindFolder NodeKind = "folder"
)

// FileNode represents a file or folder in a project tree.
// The materialized form carries resolved paths and nested children; the
// engine keeps its own flat arena representation and produces these
// snapshots for persistence, transport, and rendering.
type FileNode struct {
	// ID is the node's unique identifier, immutable for its lifetime.
	ID string `json:"id"`

	// Name is the display name, unique among sibling files.
	Name string `json:"name"`

	// Kind is "file" or "folder", immutable after creation.
	Kind NodeKind `json:"kind"`

	// Content is the text payload. Only meaningful for files.
	Content string `json:"content,omitempty"`

	// ParentID references the owning folder, empty at project root.
	ParentID string `json:"parent_id,omitempty"`

	// Children holds child nodes in insertion order. Only set for folders.
	Children []*FileNode `json:"children,omitempty"`

	// Path is the slash-joined name chain from root to this node,
	// computed when the snapshot is materialized.
	Path string `json:"path"`

	// Size is the content length in bytes, informational only.
	Size int64 `json:"size,omitempty"`

	// LastModified is the last content or metadata change time.
	LastModified time.Time `json:"last_modified"`
}

// IsFolder reports whether the node is a folder.
func (n *FileNode) IsFolder() bool {
	return n.Kind == KindFolder
}

// Walk visits the node and all descendants depth-first in child order.
// The visit function returning false stops the walk.
func (n *FileNode) Walk(visit func(*FileNode) bool) bool {
	if !visit(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(visit) {
			return false
		}
	}
	return true
}

// Project is the aggregate root owning a file tree.
type Project struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Files        []*FileNode `json:"files"`
	LastModified time.Time   `json:"last_modified"`
}

// FileCount returns the number of file nodes (folders excluded).
func (p *Project) FileCount() int {
	count := 0
	for _, root := range p.Files {
		root.Walk(func(n *FileNode) bool {
			if n.Kind == KindFile {
				count++
			}
			return true
		})
	}
	return count
}

// Walk visits every node of every root depth-first.
func (p *Project) Walk(visit func(*FileNode) bool) {
	for _, root := range p.Files {
		if !root.Walk(visit) {
			return
		}
	}
}

// FindByID returns the first node with the given id in traversal order,
// or nil if absent.
func (p *Project) FindByID(id string) *FileNode {
	var found *FileNode
	p.Walk(func(n *FileNode) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// ProjectSummary is the listing view of a stored project.
type ProjectSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	FileCount    int       `json:"file_count"`
	LastModified time.Time `json:"last_modified"`
}

// Settings holds user preferences for the editing surface.
type Settings struct {
	Theme       string `json:"theme" mapstructure:"theme"`
	FontSize    int    `json:"font_size" mapstructure:"font_size"`
	TabSize     int    `json:"tab_size" mapstructure:"tab_size"`
	WordWrap    bool   `json:"word_wrap" mapstructure:"word_wrap"`
	AutoSave    bool   `json:"auto_save" mapstructure:"auto_save"`
	ShowPreview bool   `json:"show_preview" mapstructure:"show_preview"`
}

// DefaultSettings returns the settings used when none have been saved.
func DefaultSettings() *Settings {
	return &Settings{
		Theme:       "dark",
		FontSize:    14,
		TabSize:     4,
		WordWrap:    true,
		AutoSave:    false,
		ShowPreview: true,
	}
}

// languageMap maps file extensions to editor language tags.
var languageMap = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".java": "java",
	".rb":   "ruby",
	".sh":   "shell",
	".bash": "shell",

	".html": "html",
	".htm":  "html",
	".css":  "css",
	".scss": "css",
	".vue":  "vue",

	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".xml":  "xml",
	".csv":  "csv",
	".sql":  "sql",

	".md":       "markdown",
	".markdown": "markdown",
	".txt":      "plaintext",
}

// DetectLanguage returns the editor language tag for a file name based on
// its extension. Matching is case-insensitive. Unknown extensions and
// names without an extension map to "plaintext".
func DetectLanguage(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "plaintext"
	}
	if lang, ok := languageMap[strings.ToLower(name[idx:])]; ok {
		return lang
	}
	return "plaintext"
}
