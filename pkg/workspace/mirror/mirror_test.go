package mirror_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-editor/atelier/pkg/atelier/ident"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
	"github.com/atelier-editor/atelier/pkg/workspace/engine"
	"github.com/atelier-editor/atelier/pkg/workspace/mirror"
)

type memGateway struct {
	mu       sync.Mutex
	projects map[string]*types.Project
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
	g.projects[p.ID] = p
	return nil
}

func (g *memGateway) ListProjectSummaries() ([]types.ProjectSummary, error) { return nil, nil }
func (g *memGateway) DeleteProject(id string) error                        { return nil }
func (g *memGateway) GetSettings() (*types.Settings, error)                { return types.DefaultSettings(), nil }
func (g *memGateway) SaveSettings(s *types.Settings) error                 { return nil }

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(&memGateway{projects: make(map[string]*types.Project)}, &ident.Sequence{Prefix: "n"})
	_, err := eng.NewProject("test")
	require.NoError(t, err)
	return eng
}

func TestMaterialize(t *testing.T) {
	eng := newEngine(t)
	dir, _ := eng.Create("src", "", types.KindFolder)
	file, _ := eng.Create("main.go", dir, types.KindFile)
	require.NoError(t, eng.UpdateContent(file, "package main"))

	root := t.TempDir()
	m, err := mirror.New(eng, root)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Materialize())

	data, err := os.ReadFile(filepath.Join(root, "src", "main.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main", string(data))
}

func TestExternalEditRoutesThroughEngine(t *testing.T) {
	eng := newEngine(t)
	file, _ := eng.Create("notes.txt", "", types.KindFile)
	require.NoError(t, eng.UpdateContent(file, "before"))

	root := t.TempDir()
	m, err := mirror.New(eng, root)
	require.NoError(t, err)
	require.NoError(t, m.Materialize())

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		_ = m.Watch()
	}()
	// Give the watcher a moment to install its watches.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("after"), 0o644))

	require.Eventually(t, func() bool {
		n, ok := eng.Find(file)
		return ok && n.Content == "after"
	}, 2*time.Second, 20*time.Millisecond, "external edit must reach the engine")

	require.NoError(t, m.Close())
	select {
	case <-watchDone:
	case <-time.After(time.Second):
		t.Fatal("watch did not stop after close")
	}
}

func TestUnknownPathIgnored(t *testing.T) {
	eng := newEngine(t)
	file, _ := eng.Create("a.txt", "", types.KindFile)
	require.NoError(t, eng.UpdateContent(file, "keep"))

	root := t.TempDir()
	m, err := mirror.New(eng, root)
	require.NoError(t, err)
	require.NoError(t, m.Materialize())

	go func() { _ = m.Watch() }()
	time.Sleep(100 * time.Millisecond)
	defer m.Close()

	// A file the project does not know about must not disturb anything.
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	n, ok := eng.Find(file)
	require.True(t, ok)
	assert.Equal(t, "keep", n.Content)
}
