// Package query answers read-only questions about individual sessions: the
// session listing, per-session status and history, subagent spawns noticed by
// the orchestrator and aggregate usage metrics.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/extract"
	"github.com/sonnes/chaukidar/reader"
	"golang.org/x/sync/errgroup"
)

// Defaults for query limits.
const (
	DefaultListLimit     = 20
	DefaultHistoryLimit  = 50
	DefaultSubagentLimit = 20
	DefaultMetricsLimit  = 50
)

const (
	subagentScanSessions = 20
	subagentContentChars = 200
)

// Session classification reported for every listed session.
const (
	KindSubagent    = "subagent"
	ChannelInternal = "internal"
)

// Session status values.
const (
	StatusNotFound = "not_found"
	StatusActive   = "active"
	StatusIdle     = "idle"
)

// OtherBucket collects usage of sessions outside the roster.
const OtherBucket = "other"

var subagentRE = regexp.MustCompile(`subagent:([a-f0-9-]+)`)

// Service answers session queries over a store.
type Service struct {
	Store  reader.Store
	Roster *core.Roster
	Clock  clock.Clock

	// Workers bounds how many agent folders are listed at once.
	Workers int

	// Transformers run over every history before it is returned.
	Transformers []core.HistoryTransformer

	Logger *log.Logger
}

// SessionSummary describes one session without its content.
type SessionSummary struct {
	Key          string    `json:"key"`
	Kind         string    `json:"kind"`
	Channel      string    `json:"channel"`
	Label        string    `json:"label,omitempty"`
	DisplayName  string    `json:"displayName"`
	UpdatedAt    time.Time `json:"updatedAt"`
	SessionID    string    `json:"sessionId"`
	AgentID      string    `json:"agentId"`
	TotalTokens  int       `json:"totalTokens"`
	MessageCount int       `json:"messageCount"`
}

// SessionList is the result of List. Count is the number of sessions found
// before the limit was applied.
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
	Count    int              `json:"count"`
}

// SessionStatus is the result of Status.
type SessionStatus struct {
	Status       string `json:"status"`
	SessionKey   string `json:"sessionKey"`
	LastActivity string `json:"lastActivity,omitempty"`
	MessageCount int    `json:"messageCount"`
}

// SubagentEvent is a subagent spawn noticed in the orchestrator's replies.
type SubagentEvent struct {
	From       string `json:"from"`
	To         string `json:"to"`
	SubagentID string `json:"subagentId"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	Type       string `json:"type"`
}

// List summarises every roster agent's sessions, newest first per agent and
// in roster order across agents. Each agent contributes at most
// limit/len(roster) sessions (at least one); limit <= 0 lists everything.
func (s *Service) List(ctx context.Context, limit int) (*SessionList, error) {
	agents := s.Roster.Agents()
	perAgent := 0
	if limit > 0 && len(agents) > 0 {
		perAgent = max(limit/len(agents), 1)
	}

	results := make([][]SessionSummary, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.Workers, 1))
	for i, a := range agents {
		g.Go(func() error {
			summaries, err := s.summarise(gctx, a, perAgent)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger().Warn("list sessions failed", "agent", a.ID, "err", err)
				return nil
			}
			results[i] = summaries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list := &SessionList{Sessions: []SessionSummary{}}
	for _, r := range results {
		list.Sessions = append(list.Sessions, r...)
	}
	list.Count = len(list.Sessions)
	if limit > 0 && len(list.Sessions) > limit {
		list.Sessions = list.Sessions[:limit]
	}
	return list, nil
}

func (s *Service) summarise(ctx context.Context, a core.Agent, n int) ([]SessionSummary, error) {
	sessions, err := s.Store.ListSessions(ctx, a.Folder, n)
	if err != nil {
		return nil, err
	}
	out := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		entries, err := s.Store.ReadEntries(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger().Debug("skip session", "file", sess.Path, "err", err)
			continue
		}
		sum := SessionSummary{
			Key:         Key{Folder: a.Folder, SessionID: sess.ID}.String(),
			Kind:        KindSubagent,
			Channel:     ChannelInternal,
			DisplayName: a.Name,
			UpdatedAt:   sess.ModTime.UTC(),
			SessionID:   sess.ID,
			AgentID:     a.ID,
		}
		for _, e := range entries {
			sum.TotalTokens += int(e.Tokens)
			if e.Type == core.EntryTypeMessage {
				sum.MessageCount++
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// Status reports whether a session exists and has content.
func (s *Service) Status(ctx context.Context, key string) (*SessionStatus, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, k)
	if errors.Is(err, reader.ErrNoSession) {
		return &SessionStatus{Status: StatusNotFound, SessionKey: key}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &SessionStatus{Status: StatusIdle, SessionKey: key}
	if len(entries) > 0 {
		st.Status = StatusActive
		st.LastActivity = entries[0].Timestamp
	}
	for _, e := range entries {
		if e.Type == core.EntryTypeMessage {
			st.MessageCount++
		}
	}
	return st, nil
}

// History returns the limit most recent message entries of a session,
// oldest first. A missing session yields an empty history.
func (s *Service) History(ctx context.Context, key string, limit int) (*core.History, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	h := &core.History{SessionKey: key, Messages: []core.HistoryMessage{}}
	entries, err := s.entries(ctx, k)
	if errors.Is(err, reader.ErrNoSession) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if len(h.Messages) == limit {
			break
		}
		if e.Type != core.EntryTypeMessage || e.Message == nil {
			continue
		}
		h.Messages = append(h.Messages, core.HistoryMessage{
			Role:      e.Message.Role,
			Content:   e.Message.Content,
			Timestamp: e.Timestamp,
		})
	}
	slices.Reverse(h.Messages)

	if err := core.ChainHistory(h, s.Transformers...); err != nil {
		return nil, fmt.Errorf("transform history: %w", err)
	}
	return h, nil
}

// Subagents scans the orchestrator's newest sessions for assistant replies
// naming a "subagent:<id>" and returns the last limit events.
func (s *Service) Subagents(ctx context.Context, limit int) ([]SubagentEvent, error) {
	if limit <= 0 {
		limit = DefaultSubagentLimit
	}
	orch, ok := s.Roster.Orchestrator()
	if !ok {
		return []SubagentEvent{}, nil
	}
	sessions, err := s.Store.ListSessions(ctx, orch.Folder, subagentScanSessions)
	if err != nil {
		return nil, fmt.Errorf("list orchestrator sessions: %w", err)
	}

	events := []SubagentEvent{}
	for _, sess := range sessions {
		entries, err := s.Store.ReadEntries(ctx, sess)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger().Debug("skip session", "file", sess.Path, "err", err)
			continue
		}
		// Entries come newest first; events are reported in file order.
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if !e.IsMessage() || e.Message.Role != core.RoleAssistant {
				continue
			}
			text := extract.Text(e.Message)
			if !strings.Contains(text, "subagent:") {
				continue
			}
			m := subagentRE.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			events = append(events, SubagentEvent{
				From:       orch.ID,
				To:         KindSubagent,
				SubagentID: m[1],
				Content:    core.Truncate(text, subagentContentChars),
				Timestamp:  e.Timestamp,
				Type:       "spawn",
			})
		}
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// LatestKey returns the key of a folder's most recently modified session.
func (s *Service) LatestKey(ctx context.Context, folder string) (string, error) {
	sess, err := s.Store.LatestSession(ctx, folder)
	if err != nil {
		return "", err
	}
	return Key{Folder: folder, SessionID: sess.ID}.String(), nil
}

func (s *Service) entries(ctx context.Context, k Key) ([]core.Entry, error) {
	sess, err := s.Store.FindSession(ctx, k.Folder, k.SessionID)
	if err != nil {
		return nil, err
	}
	return s.Store.ReadEntries(ctx, sess)
}

func (s *Service) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
