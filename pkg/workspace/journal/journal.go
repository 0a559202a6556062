// Package journal provides an on-disk history of tree mutations. Each
// mutation becomes one JSON entry file; old entries are pruned by age.
// Journaling is best-effort and must never fail a mutation.
package journal

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Operation is the kind of mutation recorded.
type Operation string

const (
	OpCreate    Operation = "create"
	OpDelete    Operation = "delete"
	OpRename    Operation = "rename"
	OpMove      Operation = "move"
	OpDuplicate Operation = "duplicate"
	OpContent   Operation = "content"
	OpImport    Operation = "import"
)

// Entry is a single recorded mutation.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	ProjectID string    `json:"project_id"`
	FileID    string    `json:"file_id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Journal manages mutation history on the filesystem.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// New creates a Journal rooted at dir. The directory is created lazily on
// first record.
func New(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory cannot be empty")
	}
	return &Journal{dir: dir}, nil
}

// Record persists one mutation entry.
func (j *Journal) Record(op Operation, projectID, fileID, path, detail string) (*Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(j.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	entry := &Entry{
		ID:        generateID(op),
		Timestamp: time.Now().UTC(),
		Operation: op,
		ProjectID: projectID,
		FileID:    fileID,
		Path:      path,
		Detail:    detail,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding journal entry: %w", err)
	}

	// Write atomically using a temp file and rename
	filePath := filepath.Join(j.dir, entry.ID+".json")
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing journal entry: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("renaming journal entry: %w", err)
	}

	return entry, nil
}

// List returns entries newest first. A non-positive limit returns all.
func (j *Journal) List(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading journal directory: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(j.dir, f.Name()))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			// Skip files that can't be parsed
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Prune removes entries older than the retention window. Returns the
// number of removed entries.
func (j *Journal) Prune(retention time.Duration) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	files, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading journal directory: %w", err)
	}

	cutoff := time.Now().UTC().Add(-retention)
	removed := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		path := filepath.Join(j.dir, f.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		if entry.Timestamp.Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// generateID produces a sortable unique id: <unix-nanos>-<op>-<random>.
func generateID(op Operation) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%d-%s-%s", time.Now().UTC().UnixNano(), op, hex.EncodeToString(buf))
}
