// Package preview defines the contract between the workspace and content
// preview renderers. Renderers are pure: they read a project snapshot and
// a selected file and produce markup, holding no state between calls.
// Format-specific rendering lives behind the Renderer interface; this
// package ships only the registry and a plain-text fallback.
package preview

import (
	"errors"
	"fmt"
	"html"

	"github.com/atelier-editor/atelier/pkg/atelier/types"
)

// ErrNotFound reports a render request for a file absent from the
// snapshot.
var ErrNotFound = errors.New("file not found")

// Renderer produces preview markup for a file in a project snapshot.
type Renderer interface {
	Render(p *types.Project, fileID string) (string, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(p *types.Project, fileID string) (string, error)

// Render calls the wrapped function.
func (f RendererFunc) Render(p *types.Project, fileID string) (string, error) {
	return f(p, fileID)
}

// Registry maps language tags to renderers, with a plain-text fallback
// for everything unregistered.
type Registry struct {
	renderers map[string]Renderer
	fallback  Renderer
}

// NewRegistry returns a registry with the plain-text fallback installed.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[string]Renderer),
		fallback:  RendererFunc(renderPlain),
	}
}

// Register installs a renderer for a language tag.
func (r *Registry) Register(language string, renderer Renderer) {
	r.renderers[language] = renderer
}

// Render renders the file with the renderer registered for its language,
// falling back to plain text.
func (r *Registry) Render(p *types.Project, fileID string) (string, error) {
	file := p.FindByID(fileID)
	if file == nil {
		return "", fmt.Errorf("preview %s: %w", fileID, ErrNotFound)
	}

	language := types.DetectLanguage(file.Name)
	if renderer, ok := r.renderers[language]; ok {
		return renderer.Render(p, fileID)
	}
	return r.fallback.Render(p, fileID)
}

// renderPlain wraps escaped content in a pre block.
func renderPlain(p *types.Project, fileID string) (string, error) {
	file := p.FindByID(fileID)
	if file == nil {
		return "", fmt.Errorf("preview %s: %w", fileID, ErrNotFound)
	}
	return "<pre>" + html.EscapeString(file.Content) + "</pre>", nil
}
