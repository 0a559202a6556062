package preview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-editor/atelier/pkg/atelier/preview"
	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

func project() *types.Project {
	return &types.Project{
		ID: "p1",
		Files: []*types.FileNode{
			{ID: "f1", Name: "notes.txt", Kind: types.KindFile, Path: "notes.txt", Content: "a < b"},
			{ID: "f2", Name: "doc.md", Kind: types.KindFile, Path: "doc.md", Content: "# Title"},
		},
	}
}

func TestPlainFallback(t *testing.T) {
	r := preview.NewRegistry()

	out, err := r.Render(project(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "<pre>a &lt; b</pre>", out)
}

func TestRegisteredRenderer(t *testing.T) {
	r := preview.NewRegistry()
	r.Register("markdown", preview.RendererFunc(func(p *types.Project, fileID string) (string, error) {
		return "<h1>Title</h1>", nil
	}))

	out, err := r.Render(project(), "f2")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Title</h1>", out)
}

func TestUnknownFile(t *testing.T) {
	r := preview.NewRegistry()
	_, err := r.Render(project(), "missing")
	assert.Error(t, err)
}
