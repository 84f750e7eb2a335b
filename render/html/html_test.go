package html

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sonnes/chaukidar/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 1, 22, 9, 8, 6, 0, time.UTC)

func buildTestSnapshot() *core.Snapshot {
	spawn := core.Delegation{
		Kind: core.KindSpawn, From: "er-hineda", To: "er-coder",
		Task: "fix the <parser> bug", Time: "09:05", Timestamp: now.Add(-3 * time.Minute),
	}
	return &core.Snapshot{
		GeneratedAt: now,
		Order:       []string{"er-hineda", "er-coder"},
		Agents: map[string]core.StatusRecord{
			"er-hineda": {
				Agent:    core.Agent{ID: "er-hineda", Name: "er Hineda", Emoji: "🧉", Color: "#ec4899", Folder: "main"},
				Status:   core.StatusRunning,
				Task:     "Coordinate the release",
				Progress: 55,
				Logs: []core.LogLine{
					{Role: core.RoleAssistant, Text: "Handing the parser to the coder", Time: "09:05", ToolCall: true},
				},
				Communications: []core.Delegation{spawn},
				Tokens:         core.Tokens{Input: 4000, Output: 1000, Total: 5000},
			},
			"er-coder": {
				Agent:  core.Agent{ID: "er-coder", Name: "er Coder", Folder: "coder"},
				Status: core.StatusIdle,
				Task:   "No previous activity",
			},
		},
		Communications: []core.Delegation{spawn},
		Metrics: core.Metrics{
			Tokens:       core.Tokens{Input: 4000, Output: 1000, Total: 5000},
			ActiveAgents: 1,
			IdleAgents:   1,
		},
	}
}

func TestRenderStatusPage(t *testing.T) {
	r := New()
	r.Location = time.UTC
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, buildTestSnapshot()))
	html := buf.String()

	t.Run("page structure", func(t *testing.T) {
		assert.Contains(t, html, "<!DOCTYPE html>")
		assert.Contains(t, html, `<html lang="en">`)
		assert.Contains(t, html, "<title>Agent status</title>")
		assert.Contains(t, html, "@tailwindcss/browser@4")
		assert.Contains(t, html, "</html>")
	})

	t.Run("header", func(t *testing.T) {
		assert.Contains(t, html, "Generated 09:08:06")
		assert.Contains(t, html, "2 agents")
	})

	t.Run("cards in roster order", func(t *testing.T) {
		hineda := strings.Index(html, `id="agent-er-hineda"`)
		coder := strings.Index(html, `id="agent-er-coder"`)
		require.True(t, hineda >= 0 && coder >= 0)
		assert.Less(t, hineda, coder)
		assert.Contains(t, html, "color: #ec4899")
		assert.Contains(t, html, "Coordinate the release")
		assert.Contains(t, html, "width: 55%")
		assert.Equal(t, 1, strings.Count(html, "bg-emerald-500\" style=\"width"))
		assert.Contains(t, html, "Handing the parser to the coder")
		assert.Contains(t, html, "5,000 tokens")
	})

	t.Run("feed is escaped", func(t *testing.T) {
		assert.Contains(t, html, `id="communications"`)
		assert.Contains(t, html, "er Hineda &rarr; er Coder")
		assert.Contains(t, html, "fix the &lt;parser&gt; bug")
		assert.NotContains(t, html, "<parser>")
	})

	t.Run("metrics", func(t *testing.T) {
		assert.Contains(t, html, `id="metrics"`)
		assert.Contains(t, html, "OFFLINE")
	})

	t.Run("no links without href", func(t *testing.T) {
		assert.NotContains(t, html, "<a href")
	})
}

func TestRenderStatusPageLinks(t *testing.T) {
	r := New()
	r.HistoryHref = func(rec core.StatusRecord) string { return "/sessions/" + rec.Folder }
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, buildTestSnapshot()))
	assert.Contains(t, buf.String(), `<a href="/sessions/main"`)
	assert.Contains(t, buf.String(), `<a href="/sessions/coder"`)
}

func TestRenderStatusPageWithoutFeed(t *testing.T) {
	s := buildTestSnapshot()
	s.Communications = nil
	var buf bytes.Buffer
	require.NoError(t, New().Render(&buf, s))
	assert.NotContains(t, buf.String(), `id="communications"`)
}

func buildTestHistory() *core.History {
	return &core.History{
		SessionKey: "agent:coder:s1",
		Messages: []core.HistoryMessage{
			{Role: core.RoleUser, Timestamp: "2026-01-22T09:00:00Z", Content: core.TextContent("Fix **the** authentication bug")},
			{Role: core.RoleAssistant, Timestamp: "2026-01-22T09:00:30Z", Content: core.BlockContent(
				core.ContentBlock{Type: core.BlockThinking, Thinking: "Let me analyze the auth code..."},
				core.ContentBlock{Type: core.BlockText, Text: "I'll fix the bug in `auth.go`."},
				core.ContentBlock{Type: core.BlockToolCall, Name: "exec", Arguments: map[string]any{"command": "grep -n 'func Login' auth.go"}},
			)},
			{Role: "toolResult", Content: core.BlockContent(
				core.ContentBlock{Type: core.BlockToolResult, Content: "exit status 1", IsError: true},
			)},
			{Role: core.RoleAssistant, Content: core.BlockContent(core.ContentBlock{Type: core.BlockText, Text: "  "})},
		},
	}
}

func TestRenderHistoryPage(t *testing.T) {
	r := New()
	r.Location = time.UTC
	var buf bytes.Buffer
	require.NoError(t, r.RenderHistory(&buf, buildTestHistory()))
	html := buf.String()

	t.Run("page structure", func(t *testing.T) {
		assert.Contains(t, html, "<!DOCTYPE html>")
		assert.Contains(t, html, "<title>Session agent:coder:s1</title>")
		assert.Contains(t, html, "4 messages")
	})

	t.Run("message cards", func(t *testing.T) {
		assert.Equal(t, 3, strings.Count(html, "font-semibold uppercase rounded"))
		assert.Contains(t, html, "border-l-blue-500")
		assert.Contains(t, html, "border-l-emerald-500")
		assert.Contains(t, html, "border-l-violet-400")
		assert.Contains(t, html, "Jan 22, 2026 9:00 AM")
		assert.Contains(t, html, `datetime="2026-01-22T09:00:30Z"`)
		assert.Contains(t, html, "30s")
	})

	t.Run("user text is verbatim", func(t *testing.T) {
		assert.Contains(t, html, "Fix **the** authentication bug")
	})

	t.Run("assistant text is markdown", func(t *testing.T) {
		assert.Contains(t, html, `class="prose`)
		assert.Contains(t, html, "<code>auth.go</code>")
	})

	t.Run("thinking", func(t *testing.T) {
		assert.Contains(t, html, "<details")
		assert.Contains(t, html, "Let me analyze the auth code...")
	})

	t.Run("tool call and error result", func(t *testing.T) {
		assert.Contains(t, html, ">exec</span>")
		assert.Contains(t, html, "grep -n")
		assert.Contains(t, html, "bg-red-50")
		assert.Contains(t, html, "exit status 1")
	})
}
