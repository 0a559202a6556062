package engine_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/broadcaster"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
)

// memGateway is an in-memory Gateway for engine tests.
type memGateway struct {
	mu       sync.Mutex
	projects map[string]*types.Project
	settings *types.Settings
	saves    int
	failSave error
}

func newMemGateway() *memGateway {
	return &memGateway{projects: make(map[string]*types.Project)}
}

func (g *memGateway) GetProject(id string) (*types.Project, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.projects[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (g *memGateway) SaveProject(p *types.Project) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves++
	if g.failSave != nil {
		return g.failSave
	}
	g.projects[p.ID] = p
	return nil
}

func (g *memGateway) ListProjectSummaries() ([]types.ProjectSummary, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []types.ProjectSummary
	for _, p := range g.projects {
		out = append(out, types.ProjectSummary{ID: p.ID, Name: p.Name})
	}
	return out, nil
}

func (g *memGateway) DeleteProject(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.projects, id)
	return nil
}

func (g *memGateway) GetSettings() (*types.Settings, error) {
	if g.settings == nil {
		return types.DefaultSettings(), nil
	}
	return g.settings, nil
}

func (g *memGateway) SaveSettings(s *types.Settings) error {
	g.settings = s
	return nil
}

func newTestEngine(t *testing.T) (*engine.Engine, *memGateway) {
	t.Helper()
	gw := newMemGateway()
	e := engine.New(gw, &ident.Sequence{Prefix: "n"})
	_, err := e.NewProject("test")
	require.NoError(t, err)
	return e, gw
}

// checkInvariants verifies that every node's ParentID matches its actual
// containing list's owner and that paths equal the joined name chain.
func checkInvariants(t *testing.T, p *types.Project) {
	t.Helper()
	var walk func(n *types.FileNode, parentID, parentPath string)
	walk = func(n *types.FileNode, parentID, parentPath string) {
		assert.Equal(t, parentID, n.ParentID, "parent back-reference for %s", n.Name)
		wantPath := n.Name
		if parentPath != "" {
			wantPath = parentPath + "/" + n.Name
		}
		assert.Equal(t, wantPath, n.Path, "path for %s", n.Name)
		for _, c := range n.Children {
			walk(c, n.ID, n.Path)
		}
	}
	for _, root := range p.Files {
		walk(root, "", "")
	}
}

func TestCreate(t *testing.T) {
	t.Run("creates file at root", func(t *testing.T) {
		e, gw := newTestEngine(t)

		id, err := e.Create("main.go", "", types.KindFile)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		n, ok := e.Find(id)
		require.True(t, ok)
		assert.Equal(t, "main.go", n.Name)
		assert.Equal(t, "main.go", n.Path)
		assert.Empty(t, n.ParentID)

		// Write-through: project persisted before Create returned.
		saved, err := gw.GetProject(e.ProjectID())
		require.NoError(t, err)
		require.NotNil(t, saved.FindByID(id))
	})

	t.Run("creates file inside folder", func(t *testing.T) {
		e, _ := newTestEngine(t)

		dir, err := e.Create("src", "", types.KindFolder)
		require.NoError(t, err)
		id, err := e.Create("main.go", dir, types.KindFile)
		require.NoError(t, err)

		path, ok := e.ResolvePath(id)
		require.True(t, ok)
		assert.Equal(t, "src/main.go", path)
		checkInvariants(t, e.Snapshot())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		e, _ := newTestEngine(t)

		_, err := e.Create("  ", "", types.KindFile)
		assert.ErrorIs(t, err, engine.ErrEmptyName)
	})

	t.Run("unresolvable parent falls back to root", func(t *testing.T) {
		e, _ := newTestEngine(t)

		id, err := e.Create("a.txt", "no-such-folder", types.KindFile)
		require.NoError(t, err)

		n, _ := e.Find(id)
		assert.Empty(t, n.ParentID)
		assert.Equal(t, "a.txt", n.Path)
	})

	t.Run("file parent falls back to root", func(t *testing.T) {
		e, _ := newTestEngine(t)

		fileID, err := e.Create("a.txt", "", types.KindFile)
		require.NoError(t, err)
		id, err := e.Create("b.txt", fileID, types.KindFile)
		require.NoError(t, err)

		n, _ := e.Find(id)
		assert.Empty(t, n.ParentID, "files cannot own children")
	})

	t.Run("duplicate file name short-circuits", func(t *testing.T) {
		e, _ := newTestEngine(t)

		first, err := e.Create("a.txt", "", types.KindFile)
		require.NoError(t, err)

		second, err := e.Create("a.txt", "", types.KindFile)
		assert.ErrorIs(t, err, engine.ErrNameExists)
		assert.Equal(t, first, second, "existing id is returned")

		snap := e.Snapshot()
		assert.Len(t, snap.Files, 1, "tree gains exactly one node")
	})

	t.Run("folder name collisions are not checked", func(t *testing.T) {
		e, _ := newTestEngine(t)

		a, err := e.Create("docs", "", types.KindFolder)
		require.NoError(t, err)
		b, err := e.Create("docs", "", types.KindFolder)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("file and folder may share a name", func(t *testing.T) {
		e, _ := newTestEngine(t)

		_, err := e.Create("docs", "", types.KindFolder)
		require.NoError(t, err)
		_, err = e.Create("docs", "", types.KindFile)
		assert.NoError(t, err, "kind differs, no collision")
	})

	t.Run("requires a loaded project", func(t *testing.T) {
		e := engine.New(newMemGateway(), &ident.Sequence{})
		_, err := e.Create("a.txt", "", types.KindFile)
		assert.ErrorIs(t, err, engine.ErrNoProject)
	})
}

func TestDelete(t *testing.T) {
	t.Run("removes node", func(t *testing.T) {
		e, _ := newTestEngine(t)

		id, _ := e.Create("a.txt", "", types.KindFile)
		require.NoError(t, e.Delete(id))

		_, ok := e.Find(id)
		assert.False(t, ok)
	})

	t.Run("cascades to descendants", func(t *testing.T) {
		e, _ := newTestEngine(t)

		dir, _ := e.Create("src", "", types.KindFolder)
		sub, _ := e.Create("internal", dir, types.KindFolder)
		file, _ := e.Create("a.go", sub, types.KindFile)

		require.NoError(t, e.Delete(dir))

		for _, id := range []string{dir, sub, file} {
			_, ok := e.Find(id)
			assert.False(t, ok, "descendant %s must be gone", id)
		}
		assert.Empty(t, e.Snapshot().Files)
	})

	t.Run("is idempotent", func(t *testing.T) {
		e, gw := newTestEngine(t)

		id, _ := e.Create("a.txt", "", types.KindFile)
		require.NoError(t, e.Delete(id))
		before := e.Snapshot()
		savesBefore := gw.saves

		require.NoError(t, e.Delete(id), "second delete succeeds")
		assert.Equal(t, len(before.Files), len(e.Snapshot().Files))
		assert.Greater(t, gw.saves, savesBefore, "no-op delete still persists")
	})
}

func TestRename(t *testing.T) {
	t.Run("renames and keeps descendant paths fresh", func(t *testing.T) {
		e, _ := newTestEngine(t)

		dir, _ := e.Create("src", "", types.KindFolder)
		file, _ := e.Create("main.go", dir, types.KindFile)

		require.NoError(t, e.Rename(dir, "lib"))

		path, _ := e.ResolvePath(file)
		assert.Equal(t, "lib/main.go", path, "derived paths observe the rename")
		checkInvariants(t, e.Snapshot())
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		e, _ := newTestEngine(t)
		assert.NoError(t, e.Rename("missing", "x"))
	})
}

func TestDuplicate(t *testing.T) {
	t.Run("copies file with derived name", func(t *testing.T) {
		e, _ := newTestEngine(t)

		src, _ := e.Create("notes.txt", "", types.KindFile)
		require.NoError(t, e.UpdateContent(src, "hi"))

		dup, err := e.Duplicate(src)
		require.NoError(t, err)
		require.NotEqual(t, src, dup)

		n, ok := e.Find(dup)
		require.True(t, ok)
		assert.Equal(t, "notes_copy.txt", n.Name)
		assert.Equal(t, "hi", n.Content)

		orig, _ := e.Find(src)
		assert.Equal(t, "notes.txt", orig.Name)
		assert.Equal(t, "hi", orig.Content)
	})

	t.Run("no extension appends suffix", func(t *testing.T) {
		e, _ := newTestEngine(t)

		src, _ := e.Create("Makefile", "", types.KindFile)
		dup, err := e.Duplicate(src)
		require.NoError(t, err)

		n, _ := e.Find(dup)
		assert.Equal(t, "Makefile_copy", n.Name)
	})

	t.Run("duplicate lands next to source", func(t *testing.T) {
		e, _ := newTestEngine(t)

		dir, _ := e.Create("src", "", types.KindFolder)
		src, _ := e.Create("a.go", dir, types.KindFile)

		dup, err := e.Duplicate(src)
		require.NoError(t, err)

		n, _ := e.Find(dup)
		assert.Equal(t, dir, n.ParentID)
		assert.Equal(t, "src/a_copy.go", n.Path)
	})

	t.Run("unknown id fails", func(t *testing.T) {
		e, _ := newTestEngine(t)
		_, err := e.Duplicate("missing")
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})

	t.Run("folders cannot be duplicated", func(t *testing.T) {
		e, _ := newTestEngine(t)
		dir, _ := e.Create("src", "", types.KindFolder)
		_, err := e.Duplicate(dir)
		assert.ErrorIs(t, err, engine.ErrNotAFile)
	})
}

func TestMove(t *testing.T) {
	t.Run("reparents node and recomputes paths", func(t *testing.T) {
		e, _ := newTestEngine(t)

		a, _ := e.Create("a", "", types.KindFolder)
		b, _ := e.Create("b", "", types.KindFolder)
		file, _ := e.Create("x.txt", a, types.KindFile)

		require.NoError(t, e.Move(file, b))

		n, _ := e.Find(file)
		assert.Equal(t, b, n.ParentID)
		assert.Equal(t, "b/x.txt", n.Path)
		checkInvariants(t, e.Snapshot())
	})

	t.Run("moves folder with descendants", func(t *testing.T) {
		e, _ := newTestEngine(t)

		a, _ := e.Create("a", "", types.KindFolder)
		b, _ := e.Create("b", "", types.KindFolder)
		file, _ := e.Create("deep.txt", a, types.KindFile)

		require.NoError(t, e.Move(a, b))

		path, _ := e.ResolvePath(file)
		assert.Equal(t, "b/a/deep.txt", path, "descendant paths embed the new position")
	})

	t.Run("rejects move into own descendant", func(t *testing.T) {
		e, _ := newTestEngine(t)

		a, _ := e.Create("a", "", types.KindFolder)
		b, _ := e.Create("b", a, types.KindFolder)

		before := e.Snapshot()
		err := e.Move(a, b)
		assert.ErrorIs(t, err, engine.ErrInvalidMove)

		after := e.Snapshot()
		assert.Equal(t, len(before.Files), len(after.Files), "tree unchanged")
		n, _ := e.Find(a)
		assert.Empty(t, n.ParentID)
	})

	t.Run("rejects move into itself", func(t *testing.T) {
		e, _ := newTestEngine(t)
		a, _ := e.Create("a", "", types.KindFolder)
		assert.ErrorIs(t, e.Move(a, a), engine.ErrInvalidMove)
	})

	t.Run("empty parent means root", func(t *testing.T) {
		e, _ := newTestEngine(t)

		a, _ := e.Create("a", "", types.KindFolder)
		file, _ := e.Create("x.txt", a, types.KindFile)

		require.NoError(t, e.Move(file, ""))

		n, _ := e.Find(file)
		assert.Empty(t, n.ParentID)
		assert.Equal(t, "x.txt", n.Path)
	})

	t.Run("unknown source is a silent no-op", func(t *testing.T) {
		e, _ := newTestEngine(t)
		assert.NoError(t, e.Move("missing", ""))
	})
}

func TestUpdateContent(t *testing.T) {
	t.Run("writes content through", func(t *testing.T) {
		e, gw := newTestEngine(t)

		id, _ := e.Create("a.txt", "", types.KindFile)
		require.NoError(t, e.UpdateContent(id, "hello"))

		n, _ := e.Find(id)
		assert.Equal(t, "hello", n.Content)
		assert.Equal(t, int64(5), n.Size)

		saved, err := gw.GetProject(e.ProjectID())
		require.NoError(t, err)
		assert.Equal(t, "hello", saved.FindByID(id).Content)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		e, _ := newTestEngine(t)
		assert.NoError(t, e.UpdateContent("missing", "x"))
	})
}

func TestInvariantsUnderMutationSequences(t *testing.T) {
	e, _ := newTestEngine(t)

	src, _ := e.Create("src", "", types.KindFolder)
	docs, _ := e.Create("docs", "", types.KindFolder)
	main, _ := e.Create("main.go", src, types.KindFile)
	readme, _ := e.Create("README.md", "", types.KindFile)
	checkInvariants(t, e.Snapshot())

	require.NoError(t, e.Move(readme, docs))
	checkInvariants(t, e.Snapshot())

	require.NoError(t, e.Rename(src, "lib"))
	checkInvariants(t, e.Snapshot())

	_, err := e.Duplicate(main)
	require.NoError(t, err)
	checkInvariants(t, e.Snapshot())

	require.NoError(t, e.Move(docs, src))
	checkInvariants(t, e.Snapshot())

	require.NoError(t, e.Delete(src))
	checkInvariants(t, e.Snapshot())

	// Moved folder and its former children are all gone.
	_, ok := e.Find(docs)
	assert.False(t, ok)
	_, ok = e.Find(readme)
	assert.False(t, ok)
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	gw := newMemGateway()
	e := engine.New(gw, &ident.Sequence{Prefix: "n"})
	_, err := e.NewProject("test")
	require.NoError(t, err)

	gw.failSave = errors.New("quota exceeded")

	id, err := e.Create("a.txt", "", types.KindFile)
	require.Error(t, err, "persistence failure surfaces to the caller")
	require.NotEmpty(t, id)

	// Optimistic: in-memory tree keeps the mutation.
	_, ok := e.Find(id)
	assert.True(t, ok)
}

func TestMutationsBroadcastSnapshots(t *testing.T) {
	gw := newMemGateway()
	bc := broadcaster.New()
	defer bc.Close()
	e := engine.NewWithBroadcaster(gw, &ident.Sequence{Prefix: "n"}, bc)

	// Subscribe before the first mutation: events published with no
	// subscribers are dropped, not queued.
	sub := bc.Subscribe()

	_, err := e.NewProject("test")
	require.NoError(t, err)

	id, err := e.Create("a.txt", "", types.KindFile)
	require.NoError(t, err)

	// NewProject broadcast first, then the create.
	ev := <-sub.Events
	assert.Equal(t, broadcaster.EventTreeReplaced, ev.Type)
	ev = <-sub.Events
	assert.Equal(t, broadcaster.EventCreated, ev.Type)
	assert.Equal(t, id, ev.FileID)
	require.NotNil(t, ev.Snapshot)
	assert.NotNil(t, ev.Snapshot.FindByID(id))
}

func TestLoadRebuildsFromPosition(t *testing.T) {
	e, _ := newTestEngine(t)

	// Stored copy with a deliberately wrong parent back-reference and
	// stale path: position wins on load.
	p := &types.Project{
		ID:   "p-loaded",
		Name: "loaded",
		Files: []*types.FileNode{
			{
				ID:   "d1",
				Name: "src",
				Kind: types.KindFolder,
				Children: []*types.FileNode{
					{ID: "f1", Name: "a.go", Kind: types.KindFile, ParentID: "bogus", Path: "stale/a.go", Content: "x"},
				},
			},
		},
	}
	e.Load(p)

	n, ok := e.Find("f1")
	require.True(t, ok)
	assert.Equal(t, "d1", n.ParentID)
	assert.Equal(t, "src/a.go", n.Path)
	checkInvariants(t, e.Snapshot())
}

func TestReplaceInstallsNewTree(t *testing.T) {
	e, _ := newTestEngine(t)

	old, _ := e.Create("old.txt", "", types.KindFile)

	require.NoError(t, e.Replace([]*types.FileNode{
		{ID: "n1", Name: "new.txt", Kind: types.KindFile, Content: "fresh"},
	}))

	_, ok := e.Find(old)
	assert.False(t, ok)
	n, ok := e.Find("n1")
	require.True(t, ok)
	assert.Equal(t, "fresh", n.Content)
}
