// Package html renders status snapshots and session histories as standalone
// HTML pages styled with Tailwind CSS v4 (CDN). History text is rendered as
// markdown with syntax highlighting via goldmark + chroma.
package html

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/sonnes/chaukidar/core"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var content embed.FS

// Renderer renders snapshots and histories to standalone HTML pages.
type Renderer struct {
	md   goldmark.Markdown
	tmpl *template.Template

	// Location is used for absolute times. Nil means time.Local.
	Location *time.Location

	// HistoryHref, when non-nil, links agent cards to a history page. The
	// server sets it to its own session routes.
	HistoryHref func(rec core.StatusRecord) string
}

// New creates an HTML Renderer with goldmark configured for GFM and syntax
// highlighting. Raw HTML in markdown is not passed through.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("dracula"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(false), // inline styles for standalone pages
				),
			),
		),
	)

	tmpl := template.Must(
		template.New("status.html").
			Funcs(funcMap()).
			ParseFS(content, "templates/*.html"),
	)

	return &Renderer{md: md, tmpl: tmpl}
}

type statusData struct {
	Snapshot    *core.Snapshot
	GeneratedAt time.Time
	Records     []recordData
	Feed        []delegationData
}

type recordData struct {
	Record         core.StatusRecord
	StatusClass    string
	Href           string
	Communications []delegationData
}

type delegationData struct {
	Delegation core.Delegation
	FromName   string
	ToName     string
}

// Render writes the status page of a snapshot: one card per agent in roster
// order, the communications feed and the fleet metrics.
func (r *Renderer) Render(w io.Writer, s *core.Snapshot) error {
	names := make(map[string]string, len(s.Agents))
	for id, rec := range s.Agents {
		names[id] = rec.Name
	}

	data := statusData{
		Snapshot:    s,
		GeneratedAt: r.in(s.GeneratedAt),
		Feed:        delegations(s.Communications, names),
	}
	for _, rec := range s.Records() {
		rd := recordData{
			Record:         rec,
			StatusClass:    statusClass(rec.Status),
			Communications: delegations(rec.Communications, names),
		}
		if r.HistoryHref != nil {
			rd.Href = r.HistoryHref(rec)
		}
		data.Records = append(data.Records, rd)
	}
	if err := r.tmpl.ExecuteTemplate(w, "status.html", data); err != nil {
		return fmt.Errorf("render status page: %w", err)
	}
	return nil
}

func delegations(ds []core.Delegation, names map[string]string) []delegationData {
	out := make([]delegationData, 0, len(ds))
	for _, d := range ds {
		out = append(out, delegationData{
			Delegation: d,
			FromName:   nameOr(names[d.From], d.From),
			ToName:     nameOr(names[d.To], d.To),
		})
	}
	return out
}

func nameOr(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func (r *Renderer) in(t time.Time) time.Time {
	if r.Location != nil {
		return t.In(r.Location)
	}
	return t.Local()
}

func statusClass(s core.Status) string {
	switch s {
	case core.StatusRunning:
		return "text-emerald-700 dark:text-emerald-400 bg-emerald-50 dark:bg-emerald-950"
	case core.StatusActive:
		return "text-blue-700 dark:text-blue-400 bg-blue-50 dark:bg-blue-950"
	case core.StatusIdle:
		return "text-amber-700 dark:text-amber-400 bg-amber-50 dark:bg-amber-950"
	case core.StatusError:
		return "text-red-700 dark:text-red-400 bg-red-50 dark:bg-red-950"
	default:
		return "text-slate-600 dark:text-slate-400 bg-slate-100 dark:bg-slate-800"
	}
}
