package terminal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sonnes/chaukidar/core"
)

// RenderHistory writes the session as message cards, oldest first.
func (r *Renderer) RenderHistory(w io.Writer, h *core.History) error {
	width := r.termWidth()

	fmt.Fprintln(w, styleTitle.Render("Session "+h.SessionKey))
	fmt.Fprintln(w, styleMeta.Render(plural(len(h.Messages), "message")))

	var prev *time.Time
	for _, msg := range h.Messages {
		var ts *time.Time
		if t, ok := core.ParseTime(msg.Timestamp); ok {
			t = r.in(t)
			ts = &t
		}
		var duration string
		if ts != nil && prev != nil {
			duration = formatDuration(ts.Sub(*prev))
		}
		if ts != nil {
			prev = ts
		}
		writeMessage(w, msg, ts, duration, width)
	}

	fmt.Fprintln(w)
	return nil
}

// writeMessage renders a single message card. Messages with nothing to show
// are skipped.
func writeMessage(w io.Writer, msg core.HistoryMessage, ts *time.Time, duration string, width int) bool {
	contentWidth := max(width-4, 40)

	var lines []string
	if !msg.Content.IsBlocks {
		if text := strings.TrimSpace(msg.Content.Text); text != "" {
			lines = append(lines, truncate(text, contentWidth))
		}
	}
	for _, b := range msg.Content.Blocks {
		switch b.Type {
		case core.BlockText:
			if text := strings.TrimSpace(b.Text); text != "" {
				lines = append(lines, truncate(text, contentWidth))
			}
		case core.BlockThinking:
			lines = append(lines, styleThinking.Render("▸ Thinking..."))
		case core.BlockToolCall:
			name := b.Name
			if name == "" {
				name = "tool"
			}
			line := styleToolName.Render("⚙ " + name)
			if summary := extractToolSummary(strings.ToLower(name), b.Args()); summary != "" {
				nameWidth := lipgloss.Width("⚙ " + name + "  ")
				line += "  " + styleToolDetail.Render(truncate(summary, contentWidth-nameWidth))
			}
			lines = append(lines, line)
		case core.BlockToolResult:
			if text := b.ResultText(); strings.TrimSpace(text) != "" {
				lines = append(lines, styleToolDetail.Render(truncate(text, contentWidth)))
			}
		}
	}

	if len(lines) == 0 {
		return false
	}

	writeSeparator(w, width)

	header := roleBadge(msg.Role)
	var meta []string
	if ts != nil {
		meta = append(meta, formatTime(*ts))
	}
	if duration != "" {
		meta = append(meta, duration)
	}
	if len(meta) > 0 {
		header += "    " + styleMeta.Render(strings.Join(meta, "    "))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, " "+header)
	for _, line := range lines {
		fmt.Fprintln(w, "  "+line)
	}
	return true
}
