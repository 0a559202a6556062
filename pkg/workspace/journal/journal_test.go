package journal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-editor/atelier/pkg/workspace/journal"
)

func TestRecordAndList(t *testing.T) {
	j, err := journal.New(t.TempDir())
	require.NoError(t, err)

	first, err := j.Record(journal.OpCreate, "p1", "f1", "src/main.go", "")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	time.Sleep(5 * time.Millisecond)
	_, err = j.Record(journal.OpRename, "p1", "f1", "src/main.go", "renamed to app.go")
	require.NoError(t, err)

	entries, err := j.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, journal.OpRename, entries[0].Operation, "newest first")
	assert.Equal(t, journal.OpCreate, entries[1].Operation)
}

func TestListLimit(t *testing.T) {
	j, err := journal.New(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := j.Record(journal.OpContent, "p1", "f1", "a.txt", "")
		require.NoError(t, err)
	}

	entries, err := j.List(3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestListEmptyDirectory(t *testing.T) {
	j, err := journal.New(t.TempDir() + "/never-created")
	require.NoError(t, err)

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPrune(t *testing.T) {
	j, err := journal.New(t.TempDir())
	require.NoError(t, err)

	_, err = j.Record(journal.OpDelete, "p1", "f1", "old.txt", "")
	require.NoError(t, err)

	// Nothing is older than an hour yet.
	removed, err := j.Prune(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Everything is older than zero retention.
	time.Sleep(5 * time.Millisecond)
	removed, err = j.Prune(0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := j.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEmptyDirRejected(t *testing.T) {
	_, err := journal.New("")
	assert.Error(t, err)
}
