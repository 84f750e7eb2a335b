// Package core defines the data model of the log-mining pipeline: the raw
// session log entries appended by the agent runtime, and the derived status
// records and snapshots that are published for the dashboard.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// EntryTypeMessage is the only entry type the pipeline processes.
const EntryTypeMessage = "message"

// Entry is one line of a session file.
type Entry struct {
	Type      string     `json:"type"`
	Timestamp string     `json:"timestamp"`
	Message   *Message   `json:"message,omitempty"`
	Tokens    TokenCount `json:"tokens,omitempty"`
}

// TokenCount is the optional token count some runtimes attach to an entry.
// Fractional counts are rounded; any other shape decodes as zero and never
// fails the entry.
type TokenCount int

// UnmarshalJSON implements json.Unmarshaler.
func (n *TokenCount) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = TokenCount(math.Round(f))
	return nil
}

// Time parses the entry timestamp. ok is false when the timestamp is missing
// or cannot be parsed.
func (e Entry) Time() (time.Time, bool) {
	return ParseTime(e.Timestamp)
}

// IsMessage reports whether the entry is a message entry with a defined role.
func (e Entry) IsMessage() bool {
	return e.Type == EntryTypeMessage && e.Message != nil && e.Message.Role != ""
}

// Message is the nested payload of a message entry.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// Role enumerates who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Content is either a plain string or an ordered sequence of typed blocks.
// IsBlocks tells the two shapes apart; an empty block array is still blocks.
type Content struct {
	Text     string
	Blocks   []ContentBlock
	IsBlocks bool
}

// TextContent returns string content.
func TextContent(s string) Content {
	return Content{Text: s}
}

// BlockContent returns block-sequence content.
func BlockContent(blocks ...ContentBlock) Content {
	return Content{Blocks: blocks, IsBlocks: true}
}

// UnmarshalJSON accepts a string, an array of blocks, or anything else
// (which decodes to empty content). Array elements that are not objects are
// skipped.
func (c *Content) UnmarshalJSON(data []byte) error {
	*c = Content{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &c.Text)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		c.IsBlocks = true
		c.Blocks = make([]ContentBlock, 0, len(raw))
		for _, r := range raw {
			var b ContentBlock
			if err := json.Unmarshal(r, &b); err != nil {
				continue
			}
			c.Blocks = append(c.Blocks, b)
		}
		return nil
	default:
		return nil
	}
}

// MarshalJSON writes the content back in the shape it was read in.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsBlocks {
		blocks := c.Blocks
		if blocks == nil {
			blocks = []ContentBlock{}
		}
		return json.Marshal(blocks)
	}
	return json.Marshal(c.Text)
}

// BlockType enumerates content block kinds.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockThinking   BlockType = "thinking"
	BlockToolCall   BlockType = "toolCall"
	BlockToolResult BlockType = "toolResult"
)

// ContentBlock is one piece of a block-sequence message. The Type field
// determines which other fields are populated.
type ContentBlock struct {
	Type      BlockType `json:"type"`
	Text      string    `json:"text,omitempty"`      // set for "text"
	Thinking  string    `json:"thinking,omitempty"`  // set for "thinking"
	ID        string    `json:"id,omitempty"`        // tool call id
	Name      string    `json:"name,omitempty"`      // tool name, set for "toolCall"
	Arguments any       `json:"arguments,omitempty"` // tool arguments, set for "toolCall"
	Content   any       `json:"content,omitempty"`   // tool output, set for "toolResult"
	IsError   bool      `json:"isError,omitempty"`
}

// Args returns the tool call arguments as a map. Runtimes write arguments
// either as an object or as a JSON-encoded string; anything else yields nil.
func (b ContentBlock) Args() map[string]any {
	switch a := b.Arguments.(type) {
	case map[string]any:
		return a
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(a), &m); err != nil {
			return nil
		}
		return m
	default:
		return nil
	}
}

// StringArg returns a string argument of a tool call, or "".
func (b ContentBlock) StringArg(key string) string {
	s, _ := b.Args()[key].(string)
	return s
}

// ResultText flattens tool result content, which can be a string or an
// array of {"type":"text","text":"..."} objects.
func (b ContentBlock) ResultText() string {
	switch c := b.Content.(type) {
	case string:
		return c
	case []any:
		var parts []string
		for _, item := range c {
			if m, ok := item.(map[string]any); ok {
				if text, ok := m["text"].(string); ok {
					parts = append(parts, text)
				}
			}
		}
		return strings.Join(parts, "\n")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", c)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTime parses an ISO-8601 timestamp as written by the agent runtime.
// Timestamps without a zone are taken as UTC.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
