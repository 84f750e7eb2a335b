// Package json renders snapshots and histories as JSON, in the same shape
// they are published in.
package json

import (
	"encoding/json"
	"io"

	"github.com/sonnes/chaukidar/core"
)

// Renderer renders documents to JSON.
type Renderer struct {
	// Indent controls pretty-printing. When true, output is indented.
	Indent bool
}

// New returns an indenting Renderer.
func New() *Renderer {
	return &Renderer{Indent: true}
}

// Render writes the snapshot.
func (r *Renderer) Render(w io.Writer, s *core.Snapshot) error {
	return r.encode(w, s)
}

// RenderHistory writes the history.
func (r *Renderer) RenderHistory(w io.Writer, h *core.History) error {
	return r.encode(w, h)
}

// Encode writes any document the way Render does.
func (r *Renderer) Encode(w io.Writer, v any) error {
	return r.encode(w, v)
}

func (r *Renderer) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if r.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
