// Package spawn detects agent-to-agent delegations from structured tool
// calls in assistant messages.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/extract"
	"github.com/sonnes/chaukidar/reader"
)

// Tool is the name of a tool call that starts another agent's session.
type Tool string

const (
	ToolSessionsSpawn Tool = "sessions_spawn"
	ToolDelegate      Tool = "delegate"
)

// DefaultTools are the delegation primitives recognised out of the box.
var DefaultTools = []Tool{ToolSessionsSpawn, ToolDelegate}

// Argument keys read from a delegation call.
const (
	ArgAgentID = "agentId"
	ArgTask    = "task"
	ArgLabel   = "label"
)

// Defaults for a zero-valued Correlator.
const (
	DefaultSessions  = 5
	DefaultTaskChars = 200
)

// Map holds, per target agent id, the most recent delegation to it.
type Map map[string]core.Delegation

// Put records d unless a delegation to the same target at the same or a
// later instant is already held.
func (m Map) Put(d core.Delegation) {
	if cur, ok := m[d.To]; ok && !d.Timestamp.After(cur.Timestamp) {
		return
	}
	m[d.To] = d
}

// Merge folds other into m, keeping the latest delegation per target.
func (m Map) Merge(other Map) {
	for _, d := range other {
		m.Put(d)
	}
}

// Sorted returns the delegations newest first. Ties order by target id.
func (m Map) Sorted() []core.Delegation {
	out := make([]core.Delegation, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders delegations by instant, newest first, with stable
// tie-breaking on target, then source.
func SortNewestFirst(ds []core.Delegation) {
	slices.SortStableFunc(ds, func(a, b core.Delegation) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		if c := strings.Compare(a.To, b.To); c != 0 {
			return c
		}
		return strings.Compare(a.From, b.From)
	})
}

// Correlator scans agents' recent sessions for delegation calls.
type Correlator struct {
	Store  reader.Store
	Roster *core.Roster
	Clock  clock.Clock
	Locale clock.Locale

	// Tools names the delegation primitives. Nil means DefaultTools.
	Tools []Tool
	// Sessions is how many of the newest sessions are scanned per folder.
	Sessions int
	// TaskChars caps the recorded task description.
	TaskChars int

	Logger *log.Logger
}

// Detect scans the newest sessions of one agent and returns the delegations
// it issued today, keyed by target agent id. Unreadable sessions are skipped.
func (c *Correlator) Detect(ctx context.Context, from core.Agent) (Map, error) {
	sessions, err := c.Store.ListSessions(ctx, from.Folder, c.sessions())
	if err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", from.ID, err)
	}

	now := c.Clock.Now()
	out := Map{}
	for _, sess := range sessions {
		entries, err := c.Store.ReadEntries(ctx, sess)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			c.logger().Debug("skip session", "agent", from.ID, "file", sess.Path, "err", err)
			continue
		}
		for _, e := range entries {
			c.scanEntry(e, from, now, out)
		}
	}
	return out, nil
}

// DetectAll runs Detect for every roster agent and merges the results into
// one process-wide map. A failing agent is logged and skipped.
func (c *Correlator) DetectAll(ctx context.Context) Map {
	all := Map{}
	for _, a := range c.Roster.Agents() {
		m, err := c.Detect(ctx, a)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				c.logger().Warn("spawn scan interrupted", "agent", a.ID, "err", err)
				all.Merge(m)
				return all
			}
			c.logger().Warn("spawn scan failed", "agent", a.ID, "err", err)
			continue
		}
		all.Merge(m)
	}
	return all
}

func (c *Correlator) scanEntry(e core.Entry, from core.Agent, now time.Time, out Map) {
	if !e.IsMessage() || e.Message.Role != core.RoleAssistant {
		return
	}
	ts, ok := e.Time()
	if !ok || !c.Locale.SameDay(ts, now) {
		return
	}
	for _, call := range extract.ToolCalls(e.Message) {
		if !c.isDelegation(call.Name) {
			continue
		}
		d, ok := c.delegation(call, from, ts)
		if !ok {
			continue
		}
		out.Put(d)
	}
}

// delegation builds the event for one call. Calls without a target or with
// a target outside the roster are ignored.
func (c *Correlator) delegation(call core.ContentBlock, from core.Agent, ts time.Time) (core.Delegation, bool) {
	target := call.StringArg(ArgAgentID)
	if target == "" {
		return core.Delegation{}, false
	}
	to, ok := c.Roster.Resolve(target)
	if !ok {
		return core.Delegation{}, false
	}
	return core.Delegation{
		Kind:       core.KindSpawn,
		From:       from.ID,
		FromFolder: from.Folder,
		To:         to.ID,
		ToFolder:   to.Folder,
		Task:       core.Truncate(call.StringArg(ArgTask), c.taskChars()),
		Label:      call.StringArg(ArgLabel),
		Time:       c.Locale.TimeOfDay(ts),
		Timestamp:  ts,
	}, true
}

func (c *Correlator) isDelegation(name string) bool {
	tools := c.Tools
	if tools == nil {
		tools = DefaultTools
	}
	return slices.Contains(tools, Tool(name))
}

func (c *Correlator) sessions() int {
	if c.Sessions > 0 {
		return c.Sessions
	}
	return DefaultSessions
}

func (c *Correlator) taskChars() int {
	if c.TaskChars > 0 {
		return c.TaskChars
	}
	return DefaultTaskChars
}

func (c *Correlator) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
