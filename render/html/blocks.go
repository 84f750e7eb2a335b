package html

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/sonnes/chaukidar/core"
)

// renderContent renders every visible part of a message. Assistant text is
// markdown; text from anyone else is shown verbatim.
func (r *Renderer) renderContent(role core.Role, c core.Content) ([]template.HTML, error) {
	markdown := role == core.RoleAssistant
	if !c.IsBlocks {
		if strings.TrimSpace(c.Text) == "" {
			return nil, nil
		}
		h, err := r.renderText(c.Text, markdown)
		if err != nil {
			return nil, err
		}
		return []template.HTML{h}, nil
	}

	var out []template.HTML
	for _, b := range c.Blocks {
		h, err := r.renderBlock(b, markdown)
		if err != nil {
			return nil, fmt.Errorf("render %s block: %w", b.Type, err)
		}
		if h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

// renderBlock dispatches on block type. Unknown and empty blocks render to
// nothing.
func (r *Renderer) renderBlock(b core.ContentBlock, markdown bool) (template.HTML, error) {
	switch b.Type {
	case core.BlockText:
		if strings.TrimSpace(b.Text) == "" {
			return "", nil
		}
		return r.renderText(b.Text, markdown)
	case core.BlockThinking:
		return renderThinkingBlock(b), nil
	case core.BlockToolCall:
		return r.renderToolCallBlock(b), nil
	case core.BlockToolResult:
		return renderToolResultBlock(b), nil
	default:
		return "", nil
	}
}

func (r *Renderer) renderText(text string, markdown bool) (template.HTML, error) {
	if markdown {
		var buf bytes.Buffer
		if err := r.md.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("goldmark convert: %w", err)
		}
		return template.HTML(`<div class="prose dark:prose-invert max-w-none">` + buf.String() + `</div>`), nil
	}
	escaped := template.HTMLEscapeString(text)
	return template.HTML(`<p class="whitespace-pre-wrap text-sm">` + escaped + `</p>`), nil
}

func renderThinkingBlock(b core.ContentBlock) template.HTML {
	escaped := template.HTMLEscapeString(b.Thinking)
	return template.HTML(`<details class="group">` +
		`<summary class="text-xs font-medium text-slate-400 dark:text-slate-500 cursor-pointer select-none">Thinking…</summary>` +
		`<pre class="mt-2 text-xs text-slate-500 dark:text-slate-400 whitespace-pre-wrap bg-slate-50 dark:bg-slate-900 rounded p-3 max-h-96 overflow-y-auto">` + escaped + `</pre>` +
		`</details>`)
}

// renderToolCallBlock shows the tool name and its arguments as a
// highlighted JSON fence.
func (r *Renderer) renderToolCallBlock(b core.ContentBlock) template.HTML {
	var argsHTML string
	if args := formatToolArgs(b); args != "" {
		var buf bytes.Buffer
		fenced := "```json\n" + args + "\n```"
		if err := r.md.Convert([]byte(fenced), &buf); err != nil {
			argsHTML = `<pre class="px-4 py-3 text-xs font-mono overflow-x-auto">` + template.HTMLEscapeString(args) + `</pre>`
		} else {
			argsHTML = `<div class="px-4 py-3 text-xs overflow-x-auto">` + buf.String() + `</div>`
		}
	}

	name := b.Name
	if name == "" {
		name = "tool"
	}
	return template.HTML(`<div class="bg-slate-50 dark:bg-slate-900 border border-slate-200 dark:border-slate-700 rounded-lg overflow-hidden">` +
		`<div class="px-4 py-2 border-b border-slate-200 dark:border-slate-700 flex items-center gap-2 text-slate-900 dark:text-white">` +
		`<span class="text-xs">&#9881;</span>` +
		`<span class="text-xs font-semibold font-mono">` + template.HTMLEscapeString(name) + `</span>` +
		`</div>` +
		argsHTML +
		`</div>`)
}

func renderToolResultBlock(b core.ContentBlock) template.HTML {
	text := b.ResultText()
	if strings.TrimSpace(text) == "" {
		return ""
	}
	classes := "text-xs font-mono bg-slate-50 dark:bg-slate-900 rounded p-3 overflow-x-auto max-h-96 overflow-y-auto"
	if b.IsError {
		classes += " border-l-4 border-red-500 bg-red-50 dark:bg-red-950 text-red-700 dark:text-red-400"
	}
	return template.HTML(`<pre class="` + classes + `">` + template.HTMLEscapeString(text) + `</pre>`)
}

// formatToolArgs pretty-prints decoded arguments. Arguments that are not
// JSON objects are shown as they are.
func formatToolArgs(b core.ContentBlock) string {
	if b.Arguments == nil {
		return ""
	}
	var v any = b.Arguments
	if args := b.Args(); args != nil {
		v = args
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
