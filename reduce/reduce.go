// Package reduce folds one agent's session entries into a status record.
package reduce

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/extract"
	"github.com/sonnes/chaukidar/noise"
	"github.com/sonnes/chaukidar/reader"
)

// Progress values. A running agent reports a pseudo-random value in
// [ProgressRunningMin, ProgressRunningMax) on every run: it signals work in
// flight, not a measured ratio.
const (
	ProgressRunningMin = 40
	ProgressRunningMax = 80
	ProgressDone       = 100
)

// Task placeholders.
const (
	TaskWaiting    = "Waiting for instructions..."
	TaskNoActivity = "No previous activity"
	TaskError      = "Error"
)

// MinLogChars is the shortest cleaned text shown in the log excerpt.
const MinLogChars = 10

// Defaults for a zero-valued Reducer.
const (
	DefaultTextChars      = 150
	DefaultLogLines       = 10
	DefaultCommunications = 5
	DefaultRecentWindow   = 10 * time.Minute
)

// Reducer derives status records. A Reducer is safe for concurrent use as
// long as Rand is.
type Reducer struct {
	Clock  clock.Clock
	Locale clock.Locale

	TextChars      int
	LogLines       int
	Communications int
	// RecentWindow is how far back a user message still counts as the
	// current task.
	RecentWindow time.Duration

	// Mentions enables keyword mention detection. Nil disables it.
	Mentions *MentionDetector

	// Rand returns a value in [0, n). Nil means math/rand/v2.
	Rand func(n int) int
}

// EstimateTokens approximates the token count of text at four characters
// per token, rounded up.
func EstimateTokens(text string) int {
	return (core.Len(text) + 3) / 4
}

// scoped is a message entry of today with its parsed instant.
type scoped struct {
	at  time.Time
	msg *core.Message
}

// Reduce folds entries into a record for agent. Only today's message
// entries count; order is re-established from parsed timestamps.
// hadSessions tells idle from offline when nothing happened today.
func (r *Reducer) Reduce(agent core.Agent, entries []core.Entry, hadSessions bool) core.StatusRecord {
	now := r.Clock.Now()
	scope := r.scope(entries, now)

	rec := core.StatusRecord{
		Agent:          agent,
		Logs:           []core.LogLine{},
		Communications: []core.Delegation{},
	}

	var (
		hasToolCalls bool
		recentTask   string
		lastUser     string
	)
	since := now.Add(-r.recentWindow())
	for _, s := range scope {
		m := s.msg
		if m.Role == core.RoleAssistant && extract.HasToolCall(m) {
			hasToolCalls = true
		}
		if !extract.IsSignificant(m, r.textChars()) {
			continue
		}
		text := extract.CleanText(m, r.textChars())
		if core.Len(text) < MinLogChars || noise.IsNoise(text) {
			continue
		}

		est := EstimateTokens(text)
		if m.Role == core.RoleUser {
			rec.Tokens.Add(core.Tokens{Input: est})
		} else {
			rec.Tokens.Add(core.Tokens{Output: est})
		}

		rec.Logs = append(rec.Logs, core.LogLine{
			Role:      m.Role,
			Text:      text,
			Time:      r.Locale.TimeOfDay(s.at),
			Timestamp: s.at,
			ToolCall:  extract.HasToolCall(m),
		})

		if m.Role == core.RoleAssistant && r.Mentions != nil {
			if d, ok := r.Mentions.Detect(agent, text, s.at); ok {
				rec.Communications = append(rec.Communications, d)
			}
		}

		if m.Role == core.RoleUser {
			if lastUser == "" {
				lastUser = text
			}
			if recentTask == "" && s.at.After(since) {
				recentTask = text
			}
		}
	}

	switch {
	case hasToolCalls:
		rec.Status = core.StatusRunning
		rec.Progress = ProgressRunningMin + r.randN(ProgressRunningMax-ProgressRunningMin)
	case len(rec.Logs) > 0:
		rec.Status = core.StatusActive
		rec.Progress = ProgressDone
	case hadSessions:
		rec.Status = core.StatusIdle
	default:
		rec.Status = core.StatusOffline
	}

	rec.Task = cmp.Or(recentTask, lastUser)
	if rec.Task == "" {
		rec.Task = TaskWaiting
		if rec.Status == core.StatusOffline {
			rec.Task = TaskNoActivity
		}
	}

	if len(rec.Logs) > 0 {
		started := rec.Logs[0].Timestamp
		rec.StartedAt = &started
	}
	rec.Logs = capped(rec.Logs, r.logLines())
	rec.Communications = capped(rec.Communications, r.communications())
	return rec
}

// ReduceAgent reads the agent's latest session from store and reduces it.
// A missing folder or session is not an error. Read failures return an
// error record together with the error.
func (r *Reducer) ReduceAgent(ctx context.Context, store reader.Store, agent core.Agent) (core.StatusRecord, error) {
	had, err := store.HadSessions(ctx, agent.Folder)
	if err != nil {
		return ErrorRecord(agent), fmt.Errorf("check sessions of %s: %w", agent.ID, err)
	}
	sess, err := store.LatestSession(ctx, agent.Folder)
	if errors.Is(err, reader.ErrNoSession) {
		return r.Reduce(agent, nil, had), nil
	}
	if err != nil {
		return ErrorRecord(agent), fmt.Errorf("latest session of %s: %w", agent.ID, err)
	}
	entries, err := store.ReadEntries(ctx, sess)
	if err != nil {
		return ErrorRecord(agent), fmt.Errorf("read session of %s: %w", agent.ID, err)
	}
	return r.Reduce(agent, entries, true), nil
}

// ErrorRecord is the record of an agent whose data could not be processed.
func ErrorRecord(agent core.Agent) core.StatusRecord {
	return core.StatusRecord{
		Agent:          agent,
		Status:         core.StatusError,
		Task:           TaskError,
		Logs:           []core.LogLine{},
		Communications: []core.Delegation{},
	}
}

// scope keeps today's message entries, newest first. Entries with equal
// instants keep their input order.
func (r *Reducer) scope(entries []core.Entry, now time.Time) []scoped {
	var out []scoped
	for _, e := range entries {
		if !e.IsMessage() {
			continue
		}
		at, ok := e.Time()
		if !ok || !r.Locale.SameDay(at, now) {
			continue
		}
		out = append(out, scoped{at: at, msg: e.Message})
	}
	slices.SortStableFunc(out, func(a, b scoped) int {
		return b.at.Compare(a.at)
	})
	return out
}

func (r *Reducer) randN(n int) int {
	if r.Rand != nil {
		return r.Rand(n)
	}
	return rand.IntN(n)
}

func (r *Reducer) textChars() int {
	return positive(r.TextChars, DefaultTextChars)
}

func (r *Reducer) logLines() int {
	return positive(r.LogLines, DefaultLogLines)
}

func (r *Reducer) communications() int {
	return positive(r.Communications, DefaultCommunications)
}

func (r *Reducer) recentWindow() time.Duration {
	if r.RecentWindow > 0 {
		return r.RecentWindow
	}
	return DefaultRecentWindow
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func capped[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
