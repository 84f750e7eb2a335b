// Package terminal renders status snapshots as ANSI-colored agent cards and
// session histories as message cards.
package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/sonnes/chaukidar/core"
)

const (
	defaultWidth = 100
	barWidth     = 10
)

// Renderer pretty-prints snapshots and histories to the terminal.
type Renderer struct {
	// Width overrides terminal width detection. Zero means auto-detect.
	Width int
	// Location is used for absolute times. Nil means time.Local.
	Location *time.Location
}

// New creates a terminal Renderer.
func New() *Renderer {
	return &Renderer{}
}

// Render writes one card per agent in roster order, then the
// communications feed and the metrics footer.
func (r *Renderer) Render(w io.Writer, s *core.Snapshot) error {
	width := r.termWidth()

	fmt.Fprintln(w, styleTitle.Render("Agents"))
	meta := []string{"generated " + r.in(s.GeneratedAt).Format("15:04:05"), plural(len(s.Agents), "agent")}
	fmt.Fprintln(w, styleMeta.Render(strings.Join(meta, "  ")))

	names := make(map[string]string, len(s.Agents))
	for id, rec := range s.Agents {
		names[id] = rec.Name
	}

	for _, rec := range s.Records() {
		writeSeparator(w, width)
		writeRecord(w, rec, names, width)
	}

	if len(s.Communications) > 0 {
		writeSeparator(w, width)
		fmt.Fprintln(w)
		fmt.Fprintln(w, " "+styleTitle.Render("Communications"))
		for _, d := range s.Communications {
			fmt.Fprintln(w, "  "+delegationLine(d, names, width-4))
		}
	}

	writeSeparator(w, width)
	fmt.Fprintln(w)
	writeMetrics(w, s.Metrics)
	fmt.Fprintln(w)
	return nil
}

func (r *Renderer) termWidth() int {
	if r.Width > 0 {
		return r.Width
	}
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

func (r *Renderer) in(t time.Time) time.Time {
	if r.Location != nil {
		return t.In(r.Location)
	}
	return t.Local()
}

func writeRecord(w io.Writer, rec core.StatusRecord, names map[string]string, width int) {
	contentWidth := max(width-6, 40)

	name := rec.Name
	if name == "" {
		name = rec.ID
	}
	header := agentStyle(rec.Color).Render(strings.TrimSpace(rec.Emoji + " " + name))
	header += "  " + statusStyle(rec.Status).Render(strings.ToUpper(string(rec.Status)))
	if rec.Status == core.StatusRunning {
		header += "  " + progressBar(rec.Progress)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, " "+header)
	if rec.Desc != "" {
		fmt.Fprintln(w, "   "+styleMeta.Render(rec.Desc))
	}
	if rec.Task != "" {
		fmt.Fprintln(w, "   "+styleTask.Render("▸ "+truncate(rec.Task, contentWidth-2)))
	}

	for _, l := range rec.Logs {
		line := styleMeta.Render(l.Time) + " " + roleBadge(l.Role)
		prefix := lipgloss.Width(l.Time + " " + strings.ToUpper(string(l.Role)) + " ")
		if l.ToolCall {
			line += " " + styleToolName.Render("⚙")
			prefix += 2
		}
		line += " " + truncate(l.Text, contentWidth-prefix)
		fmt.Fprintln(w, "   "+line)
	}

	for _, d := range rec.Communications {
		fmt.Fprintln(w, "   "+delegationLine(d, names, contentWidth))
	}

	if rec.Tokens.Total > 0 {
		fmt.Fprintln(w, "   "+styleMeta.Render(fmt.Sprintf("%s tokens (%s in / %s out)",
			formatNumber(rec.Tokens.Total), formatNumber(rec.Tokens.Input), formatNumber(rec.Tokens.Output))))
	}
}

// delegationLine renders "12:51  er Hineda → er Coder  [spawn] task".
func delegationLine(d core.Delegation, names map[string]string, width int) string {
	from, to := displayName(d.From, names), displayName(d.To, names)
	head := d.Time + "  " + from + " → " + to + "  [" + string(d.Kind) + "] "
	return styleMeta.Render(d.Time) + "  " +
		styleToolName.Render(from+" → "+to) + "  " +
		styleToolDetail.Render("["+string(d.Kind)+"]") + " " +
		truncate(d.Task, width-lipgloss.Width(head))
}

func displayName(id string, names map[string]string) string {
	if n := names[id]; n != "" {
		return n
	}
	return id
}

func progressBar(pct int) string {
	pct = min(max(pct, 0), 100)
	filled := pct * barWidth / 100
	return styleBarFill.Render(strings.Repeat("█", filled)) +
		styleBarEmpty.Render(strings.Repeat("░", barWidth-filled)) +
		styleMeta.Render(fmt.Sprintf(" %d%%", pct))
}

// writeMetrics renders the fleet counters in two rows: values then labels.
func writeMetrics(w io.Writer, m core.Metrics) {
	type stat struct {
		value int
		label string
	}
	stats := []stat{
		{m.Tokens.Total, "TOKENS"},
		{m.ActiveAgents, "ACTIVE"},
		{m.IdleAgents, "IDLE"},
		{m.OfflineAgents, "OFFLINE"},
	}

	var values, labels []string
	for _, s := range stats {
		formatted := formatNumber(s.value)
		colWidth := max(len(formatted), len(s.label))
		values = append(values, fmt.Sprintf("%*s", colWidth, formatted))
		labels = append(labels, fmt.Sprintf("%-*s", colWidth, s.label))
	}

	fmt.Fprintln(w, "  "+styleStat.Render(strings.Join(values, "    ")))
	fmt.Fprintln(w, "  "+styleStatLabel.Render(strings.Join(labels, "    ")))
}

// writeSeparator renders a horizontal rule.
func writeSeparator(w io.Writer, width int) {
	n := min(width, 72)
	fmt.Fprintln(w)
	fmt.Fprintln(w, styleSeparator.Render(strings.Repeat("─", n)))
}

func roleBadge(role core.Role) string {
	label := strings.ToUpper(string(role))
	switch role {
	case core.RoleUser:
		return styleUserBadge.Render(label)
	case core.RoleAssistant:
		return styleAssistantBadge.Render(label)
	case core.RoleSystem:
		return styleSystemBadge.Render(label)
	default:
		return styleMeta.Render(label)
	}
}

// truncate shortens text to maxWidth, appending "..." if needed.
// Multi-line text is reduced to the first line.
func truncate(s string, maxWidth int) string {
	if maxWidth < 4 {
		maxWidth = 4
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if lipgloss.Width(s) <= maxWidth {
		return s
	}

	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+3 > maxWidth {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func formatTime(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return formatNumber(n/1000) + "," + fmt.Sprintf("%03d", n%1000)
}
