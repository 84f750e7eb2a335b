// Package extract pulls display text and tool-call facts out of session
// messages.
package extract

import (
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/noise"
)

// Significance thresholds, in characters of cleaned text.
const (
	// MinUserChars is the shortest user text that counts as dialogue.
	MinUserChars = 10
	// MinAssistantChars is the length assistant text must exceed.
	MinAssistantChars = 20
)

// Text returns the raw text of a message: the first text block for block
// content, the string itself for string content.
func Text(m *core.Message) string {
	if m == nil {
		return ""
	}
	if !m.Content.IsBlocks {
		return m.Content.Text
	}
	for _, b := range m.Content.Blocks {
		if b.Type == core.BlockText {
			return b.Text
		}
	}
	return ""
}

// CleanText returns the message text cleaned for display and cut to maxLen
// characters.
func CleanText(m *core.Message, maxLen int) string {
	return core.CleanText(Text(m), maxLen)
}

// IsSignificant reports whether the message is substantive dialogue.
// User text is significant once it reaches MinUserChars. Assistant text must
// exceed MinAssistantChars and must not be noise. Other roles never are.
func IsSignificant(m *core.Message, maxLen int) bool {
	if m == nil {
		return false
	}
	text := CleanText(m, maxLen)
	switch m.Role {
	case core.RoleUser:
		return core.Len(text) >= MinUserChars
	case core.RoleAssistant:
		return core.Len(text) > MinAssistantChars && !noise.IsNoise(text)
	default:
		return false
	}
}

// HasToolCall reports whether the message content holds a tool invocation.
func HasToolCall(m *core.Message) bool {
	if m == nil || !m.Content.IsBlocks {
		return false
	}
	for _, b := range m.Content.Blocks {
		if b.Type == core.BlockToolCall {
			return true
		}
	}
	return false
}

// ToolCalls returns the tool invocation blocks of a message, in order.
func ToolCalls(m *core.Message) []core.ContentBlock {
	if m == nil || !m.Content.IsBlocks {
		return nil
	}
	var calls []core.ContentBlock
	for _, b := range m.Content.Blocks {
		if b.Type == core.BlockToolCall {
			calls = append(calls, b)
		}
	}
	return calls
}
