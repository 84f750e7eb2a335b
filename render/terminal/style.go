package terminal

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sonnes/chaukidar/core"
)

var (
	colorUser      = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorAssistant = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorSystem    = lipgloss.AdaptiveColor{Light: "#64748b", Dark: "#94a3b8"}

	colorBright = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#f1f5f9"}
	colorDim    = lipgloss.AdaptiveColor{Light: "#94a3b8", Dark: "#64748b"}
	colorTool   = lipgloss.AdaptiveColor{Light: "#7c3aed", Dark: "#a78bfa"}

	// Status colors.
	colorRunning = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorActive  = lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#60a5fa"}
	colorIdle    = lipgloss.AdaptiveColor{Light: "#d97706", Dark: "#fbbf24"}
	colorError   = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
)

var (
	styleUserBadge      = lipgloss.NewStyle().Foreground(colorUser).Bold(true)
	styleAssistantBadge = lipgloss.NewStyle().Foreground(colorAssistant).Bold(true)
	styleSystemBadge    = lipgloss.NewStyle().Foreground(colorSystem).Bold(true)

	styleTitle = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleMeta  = lipgloss.NewStyle().Foreground(colorDim)
	styleTask  = lipgloss.NewStyle().Foreground(colorBright)

	styleStat      = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	styleStatLabel = lipgloss.NewStyle().Foreground(colorDim)

	styleToolName   = lipgloss.NewStyle().Foreground(colorTool).Bold(true)
	styleToolDetail = lipgloss.NewStyle().Foreground(colorDim)
	styleThinking   = lipgloss.NewStyle().Foreground(colorDim).Italic(true)

	styleSeparator = lipgloss.NewStyle().Foreground(colorDim)
	styleBarFill   = lipgloss.NewStyle().Foreground(colorRunning)
	styleBarEmpty  = lipgloss.NewStyle().Foreground(colorDim)
)

func statusStyle(s core.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case core.StatusRunning:
		return base.Foreground(colorRunning)
	case core.StatusActive:
		return base.Foreground(colorActive)
	case core.StatusIdle:
		return base.Foreground(colorIdle)
	case core.StatusError:
		return base.Foreground(colorError)
	default:
		return base.Foreground(colorDim)
	}
}

// agentStyle colors an agent name with its roster color, when it has one.
func agentStyle(color string) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(true)
	if color == "" {
		return s.Foreground(colorBright)
	}
	return s.Foreground(lipgloss.Color(color))
}
