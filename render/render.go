// Package render defines the interfaces for rendering status snapshots and
// session histories into output formats.
package render

import (
	"io"

	"github.com/sonnes/chaukidar/core"
)

// Renderer writes a snapshot to the given writer in a specific format.
type Renderer interface {
	Render(w io.Writer, s *core.Snapshot) error
}

// HistoryRenderer writes one session history.
type HistoryRenderer interface {
	RenderHistory(w io.Writer, h *core.History) error
}
