package html

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sonnes/chaukidar/core"
)

type historyData struct {
	History  *core.History
	Messages []messageData
}

type messageData struct {
	ID          string
	RoleLabel   string
	BorderClass string
	BadgeClass  string
	Timestamp   time.Time
	Duration    string // time since the previous message
	Blocks      []template.HTML
}

// RenderHistory writes a session history page, oldest message first.
// Messages with nothing to show are skipped.
func (r *Renderer) RenderHistory(w io.Writer, h *core.History) error {
	var prev *time.Time
	var messages []messageData
	for i, msg := range h.Messages {
		md := messageData{
			ID:          fmt.Sprintf("msg-%d", i),
			RoleLabel:   roleLabel(msg.Role),
			BorderClass: borderClass(msg.Role),
			BadgeClass:  badgeClass(msg.Role),
		}
		if t, ok := core.ParseTime(msg.Timestamp); ok {
			t = r.in(t)
			if prev != nil {
				md.Duration = formatDuration(t.Sub(*prev))
			}
			md.Timestamp = t
			prev = &t
		}

		blocks, err := r.renderContent(msg.Role, msg.Content)
		if err != nil {
			return fmt.Errorf("render message %d: %w", i, err)
		}
		if len(blocks) == 0 {
			continue
		}
		md.Blocks = blocks
		messages = append(messages, md)
	}

	data := historyData{History: h, Messages: messages}
	if err := r.tmpl.ExecuteTemplate(w, "history.html", data); err != nil {
		return fmt.Errorf("render history page: %w", err)
	}
	return nil
}

func roleLabel(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "User"
	case core.RoleAssistant:
		return "Assistant"
	case core.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}

func borderClass(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "border-l-4 border-l-blue-500"
	case core.RoleAssistant:
		return "border-l-4 border-l-emerald-500"
	case core.RoleSystem:
		return "border-l-4 border-l-slate-400"
	default:
		return "border-l-4 border-l-violet-400"
	}
}

func badgeClass(role core.Role) string {
	switch role {
	case core.RoleUser:
		return "text-blue-700 dark:text-blue-400 bg-blue-50 dark:bg-blue-950"
	case core.RoleAssistant:
		return "text-emerald-700 dark:text-emerald-400 bg-emerald-50 dark:bg-emerald-950"
	default:
		return "text-slate-600 dark:text-slate-400 bg-slate-100 dark:bg-slate-800"
	}
}
