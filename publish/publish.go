// Package publish runs the log-mining pipeline across the roster and
// assembles the status snapshot.
package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/config"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/reader"
	"github.com/sonnes/chaukidar/reduce"
	"github.com/sonnes/chaukidar/snapshot"
	"github.com/sonnes/chaukidar/spawn"
	"golang.org/x/sync/errgroup"
)

// Defaults for a zero-valued Publisher.
const (
	DefaultFeed           = 15
	DefaultCommunications = 5
)

// Publisher builds snapshots. Each run reads every agent independently; a
// failing agent yields an error record and never aborts the run.
type Publisher struct {
	Store   reader.Store
	Roster  *core.Roster
	Clock   clock.Clock
	Reducer *reduce.Reducer
	Spawns  *spawn.Correlator

	// Workers bounds how many agents are processed at once.
	Workers int
	// Feed caps the global communications feed.
	Feed int
	// Communications caps each record's own communications.
	Communications int
	// RunTimeout bounds a whole run. Agents still being read when it fires
	// get error records.
	RunTimeout time.Duration

	// Transformers run over every snapshot before it leaves Run.
	Transformers []core.Transformer

	Logger *log.Logger
}

// New wires a Publisher from configuration.
func New(cfg *config.Config, store reader.Store, clk clock.Clock) (*Publisher, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	roster := cfg.Roster()
	locale := clock.Locale{Location: loc}

	r := &reduce.Reducer{
		Clock:          clk,
		Locale:         locale,
		TextChars:      cfg.Limits.TextChars,
		LogLines:       cfg.Limits.LogLines,
		Communications: cfg.Limits.Communications,
		RecentWindow:   cfg.Limits.RecentWindow,
	}
	if cfg.DetectMentions {
		table := make([]reduce.Mention, 0, len(cfg.Mentions))
		for _, m := range cfg.Mentions {
			table = append(table, reduce.Mention{Folder: m.Folder, Keywords: m.Keywords})
		}
		r.Mentions = &reduce.MentionDetector{
			Roster:   roster,
			Locale:   locale,
			Table:    table,
			MaxChars: cfg.Limits.MentionChars,
		}
	}

	var tools []spawn.Tool
	for _, name := range cfg.DelegationTools {
		tools = append(tools, spawn.Tool(name))
	}

	return &Publisher{
		Store:   store,
		Roster:  roster,
		Clock:   clk,
		Reducer: r,
		Spawns: &spawn.Correlator{
			Store:     store,
			Roster:    roster,
			Clock:     clk,
			Locale:    locale,
			Tools:     tools,
			Sessions:  cfg.Limits.SpawnSessions,
			TaskChars: cfg.Limits.TaskChars,
		},
		Workers:        cfg.Limits.Workers,
		Feed:           cfg.Limits.Feed,
		Communications: cfg.Limits.Communications,
		RunTimeout:     cfg.Limits.RunTimeout,
	}, nil
}

// agentResult is what one agent contributes to a run.
type agentResult struct {
	record core.StatusRecord
	spawns spawn.Map
}

// Run builds one complete snapshot covering every roster agent. Agents still
// being read when RunTimeout fires get error records; cancelling ctx aborts
// the run with no snapshot.
func (p *Publisher) Run(parent context.Context) (*core.Snapshot, error) {
	ctx := parent
	if p.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, p.RunTimeout)
		defer cancel()
	}

	agents := p.Roster.Agents()
	results := make([]agentResult, len(agents))

	var g errgroup.Group
	g.SetLimit(max(p.Workers, 1))
	for i, a := range agents {
		g.Go(func() error {
			results[i] = p.processAgent(ctx, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}

	// Merge in roster order so ties resolve the same way on every run.
	spawns := spawn.Map{}
	for _, res := range results {
		spawns.Merge(res.spawns)
	}

	snap := &core.Snapshot{
		GeneratedAt:    p.Clock.Now(),
		Order:          make([]string, 0, len(agents)),
		Agents:         make(map[string]core.StatusRecord, len(agents)),
		Communications: p.feed(results, spawns),
	}
	for _, res := range results {
		rec := res.record
		if rec.Status != core.StatusError {
			rec.Communications = p.ownCommunications(rec, spawns)
		}
		snap.Order = append(snap.Order, rec.ID)
		snap.Agents[rec.ID] = rec
	}
	snap.Metrics = Aggregate(snap.Records())

	if err := core.Chain(snap, p.Transformers...); err != nil {
		return nil, fmt.Errorf("transform snapshot: %w", err)
	}

	p.logger().Info("built snapshot",
		"agents", len(snap.Agents),
		"communications", len(snap.Communications),
		"tokens", snap.Metrics.Tokens.Total,
	)
	return snap, nil
}

// Publish runs the pipeline and atomically writes the snapshot to path.
func (p *Publisher) Publish(ctx context.Context, path string) (*core.Snapshot, error) {
	snap, err := p.Run(ctx)
	if err != nil {
		return nil, err
	}
	if err := snapshot.WriteFile(path, snap); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	p.logger().Info("published snapshot", "path", path)
	return snap, nil
}

// Aggregate sums tokens and counts agents per status bucket. Running agents
// count as active.
func Aggregate(records []core.StatusRecord) core.Metrics {
	var m core.Metrics
	for _, r := range records {
		m.Tokens.Add(r.Tokens)
		switch r.Status {
		case core.StatusActive, core.StatusRunning:
			m.ActiveAgents++
		case core.StatusIdle:
			m.IdleAgents++
		case core.StatusOffline:
			m.OfflineAgents++
		}
	}
	return m
}

// processAgent reduces one agent and scans it for delegations. Failures,
// panics included, are contained here.
func (p *Publisher) processAgent(ctx context.Context, a core.Agent) (res agentResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger().Warn("agent failed", "agent", a.ID, "err", fmt.Errorf("panic: %v", r))
			res = agentResult{record: reduce.ErrorRecord(a)}
		}
	}()

	rec, err := p.Reducer.ReduceAgent(ctx, p.Store, a)
	if err != nil {
		p.logger().Warn("agent failed", "agent", a.ID, "err", err)
	}
	res.record = rec

	if p.Spawns != nil {
		m, err := p.Spawns.Detect(ctx, a)
		if err != nil {
			p.logger().Warn("spawn scan failed", "agent", a.ID, "err", err)
		}
		res.spawns = m
	}
	return res
}

// ownCommunications returns the record's mentions plus the spawns the agent
// originated, newest first.
func (p *Publisher) ownCommunications(rec core.StatusRecord, spawns spawn.Map) []core.Delegation {
	out := append([]core.Delegation{}, rec.Communications...)
	for _, d := range spawns {
		if d.From == rec.ID {
			out = append(out, d)
		}
	}
	spawn.SortNewestFirst(out)
	return capped(out, positive(p.Communications, DefaultCommunications))
}

// feed is every spawn plus every mention, newest first.
func (p *Publisher) feed(results []agentResult, spawns spawn.Map) []core.Delegation {
	out := spawns.Sorted()
	for _, res := range results {
		for _, d := range res.record.Communications {
			if d.Kind == core.KindMention {
				out = append(out, d)
			}
		}
	}
	spawn.SortNewestFirst(out)
	return capped(out, positive(p.Feed, DefaultFeed))
}

func (p *Publisher) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
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
