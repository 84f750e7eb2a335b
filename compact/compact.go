// Package compact provides a HistoryTransformer that replaces verbose tool
// payloads with line-count summaries, for reading long sessions at a glance.
package compact

import (
	"fmt"
	"maps"
	"strings"

	"github.com/sonnes/chaukidar/core"
)

// DefaultMinArgLines is the line count from which a tool argument is
// summarised.
const DefaultMinArgLines = 2

// LongArgs names the tool arguments that carry bulk text.
var LongArgs = []string{"task", "content", "command", "old_string", "new_string"}

// Config controls the compactor.
type Config struct {
	StripThinking bool
	// MinArgLines is the line count from which a LongArgs value is
	// summarised. Zero means DefaultMinArgLines.
	MinArgLines int
}

// Compactor rewrites tool calls and results of a history.
type Compactor struct {
	stripThinking bool
	minArgLines   int
}

// New creates a Compactor from the given config.
func New(cfg Config) *Compactor {
	c := &Compactor{stripThinking: cfg.StripThinking, minArgLines: cfg.MinArgLines}
	if c.minArgLines <= 0 {
		c.minArgLines = DefaultMinArgLines
	}
	return c
}

// TransformHistory implements core.HistoryTransformer.
func (c *Compactor) TransformHistory(h *core.History) error {
	for i := range h.Messages {
		content := &h.Messages[i].Content
		if !content.IsBlocks {
			continue
		}
		if c.stripThinking {
			content.Blocks = filterThinking(content.Blocks)
		}
		for j := range content.Blocks {
			c.compactBlock(&content.Blocks[j])
		}
	}
	return nil
}

func filterThinking(blocks []core.ContentBlock) []core.ContentBlock {
	out := make([]core.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != core.BlockThinking {
			out = append(out, b)
		}
	}
	return out
}

func (c *Compactor) compactBlock(b *core.ContentBlock) {
	switch b.Type {
	case core.BlockToolResult:
		label := "output"
		if b.IsError {
			label = "error"
		}
		b.Content = lineSummary(label, b.ResultText())
	case core.BlockToolCall:
		c.compactArgs(b)
	}
}

// compactArgs works on a copy so the decoded entry is left untouched.
func (c *Compactor) compactArgs(b *core.ContentBlock) {
	args := b.Args()
	if args == nil {
		return
	}
	out := maps.Clone(args)
	changed := false
	for _, key := range LongArgs {
		s, ok := out[key].(string)
		if !ok || countLines(s) < c.minArgLines {
			continue
		}
		out[key] = lineSummary(key, s)
		changed = true
	}
	if changed {
		b.Arguments = out
	}
}

// lineSummary returns a summary like "[output: 245 lines]".
func lineSummary(label, s string) string {
	n := countLines(s)
	if n == 1 {
		return fmt.Sprintf("[%s: 1 line]", label)
	}
	return fmt.Sprintf("[%s: %d lines]", label, n)
}

// countLines returns the number of lines in s. An empty string has none; a
// trailing newline does not start a new line.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n") + 1
	if strings.HasSuffix(s, "\n") {
		n--
	}
	return n
}
