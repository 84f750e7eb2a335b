package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/config"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/reader"
	"github.com/sonnes/chaukidar/reader/openclaw"
	"github.com/sonnes/chaukidar/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func jsonl(t *testing.T, entries ...core.Entry) *fstest.MapFile {
	t.Helper()
	var b strings.Builder
	for _, e := range entries {
		line, err := json.Marshal(e)
		require.NoError(t, err)
		b.Write(line)
		b.WriteByte('\n')
	}
	return &fstest.MapFile{Data: []byte(b.String()), ModTime: now.Add(-time.Minute)}
}

func msg(ts string, role core.Role, blocks ...core.ContentBlock) core.Entry {
	return core.Entry{
		Type:      core.EntryTypeMessage,
		Timestamp: ts,
		Message:   &core.Message{Role: role, Content: core.BlockContent(blocks...)},
	}
}

func text(s string) core.ContentBlock {
	return core.ContentBlock{Type: core.BlockText, Text: s}
}

func spawnCall(target, task string) core.ContentBlock {
	return core.ContentBlock{
		Type:      core.BlockToolCall,
		Name:      "sessions_spawn",
		Arguments: map[string]any{"agentId": target, "task": task},
	}
}

// fleet is an agents tree where:
// main delegates to coder and also mentions it, coder is running,
// pr-reviewer only has a deleted session, planner and netops have nothing.
func fleet(t *testing.T) fstest.MapFS {
	return fstest.MapFS{
		"main/sessions/s1.jsonl": jsonl(t,
			msg("2026-03-14T11:50:00Z", core.RoleUser, text("Please get the parser bug fixed today")),
			msg("2026-03-14T11:51:00Z", core.RoleAssistant,
				text("Sending this to the coder right away, then the deploy."),
				spawnCall("coder", "fix the parser bug"),
			),
		),
		"coder/sessions/s1.jsonl": jsonl(t,
			msg("2026-03-14T11:52:00Z", core.RoleUser, text("fix the parser bug")),
			msg("2026-03-14T11:53:00Z", core.RoleAssistant, core.ContentBlock{Type: core.BlockToolCall, Name: "exec"}),
		),
		"pr-reviewer/sessions/old.jsonl.deleted.1": &fstest.MapFile{Data: []byte("{}\n"), ModTime: now},
	}
}

func newPublisher(t *testing.T, store reader.Store) *Publisher {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Timezone = "UTC"
	p, err := New(cfg, store, clock.Fake(now))
	require.NoError(t, err)
	p.Reducer.Rand = func(int) int { return 3 }
	return p
}

func newStore(t *testing.T, fsys fstest.MapFS) *openclaw.Store {
	t.Helper()
	s, err := openclaw.New(fsys, openclaw.Options{})
	require.NoError(t, err)
	return s
}

func TestRun(t *testing.T) {
	p := newPublisher(t, newStore(t, fleet(t)))

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now, snap.GeneratedAt)
	assert.Equal(t, []string{"er-hineda", "er-plan", "er-coder", "er-serve", "er-pr"}, snap.Order)
	require.Len(t, snap.Agents, 5)

	assert.Equal(t, core.StatusRunning, snap.Agents["er-hineda"].Status)
	assert.Equal(t, core.StatusRunning, snap.Agents["er-coder"].Status)
	assert.Equal(t, 43, snap.Agents["er-coder"].Progress)
	assert.Equal(t, core.StatusOffline, snap.Agents["er-plan"].Status)
	assert.Equal(t, core.StatusOffline, snap.Agents["er-serve"].Status)
	assert.Equal(t, core.StatusIdle, snap.Agents["er-pr"].Status)

	assert.Equal(t, core.Metrics{
		Tokens:        snap.Metrics.Tokens,
		ActiveAgents:  2,
		IdleAgents:    1,
		OfflineAgents: 2,
	}, snap.Metrics)
	var total core.Tokens
	for _, r := range snap.Records() {
		total.Add(r.Tokens)
	}
	assert.Equal(t, total, snap.Metrics.Tokens)
	assert.Positive(t, total.Total)

	// Feed: the spawn to coder and the keyword mention, newest first.
	require.Len(t, snap.Communications, 2)
	for _, d := range snap.Communications {
		assert.Equal(t, "er-hineda", d.From)
	}
	kinds := []core.DelegationKind{snap.Communications[0].Kind, snap.Communications[1].Kind}
	assert.ElementsMatch(t, []core.DelegationKind{core.KindSpawn, core.KindMention}, kinds)

	var spawned core.Delegation
	for _, d := range snap.Communications {
		if d.Kind == core.KindSpawn {
			spawned = d
		}
	}
	assert.Equal(t, "er-coder", spawned.To)
	assert.Equal(t, "fix the parser bug", spawned.Task)

	// The orchestrator's own communications hold both events too.
	assert.Len(t, snap.Agents["er-hineda"].Communications, 2)
	assert.Empty(t, snap.Agents["er-coder"].Communications)
}

func TestRunIsIdempotent(t *testing.T) {
	fsys := fleet(t)
	p := newPublisher(t, newStore(t, fsys))
	p.Reducer.Rand = nil

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	normalise := func(s *core.Snapshot) {
		s.GeneratedAt = time.Time{}
		for id, r := range s.Agents {
			if r.Status == core.StatusRunning {
				r.Progress = 0
			}
			s.Agents[id] = r
		}
	}
	normalise(first)
	normalise(second)
	assert.Equal(t, first, second)
}

// flakyStore fails or panics for chosen folders.
type flakyStore struct {
	reader.Store
	failOn  string
	panicOn string
}

func (s flakyStore) HadSessions(ctx context.Context, folder string) (bool, error) {
	switch folder {
	case s.failOn:
		return false, errors.New("permission denied")
	case s.panicOn:
		panic("corrupt index")
	}
	return s.Store.HadSessions(ctx, folder)
}

func TestRunContainsAgentFailures(t *testing.T) {
	store := flakyStore{Store: newStore(t, fleet(t)), failOn: "coder", panicOn: "netops"}
	p := newPublisher(t, store)

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Agents, 5)
	assert.Equal(t, core.StatusError, snap.Agents["er-coder"].Status)
	assert.Equal(t, core.StatusError, snap.Agents["er-serve"].Status)
	assert.Equal(t, core.StatusRunning, snap.Agents["er-hineda"].Status)
	assert.Equal(t, 0, snap.Agents["er-coder"].Tokens.Total)
	assert.Empty(t, snap.Agents["er-coder"].Logs)
}

func TestRunErrorRecordHasNoCommunications(t *testing.T) {
	store := flakyStore{Store: newStore(t, fleet(t)), failOn: "main"}
	p := newPublisher(t, store)

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	rec := snap.Agents["er-hineda"]
	assert.Equal(t, core.StatusError, rec.Status)
	assert.Empty(t, rec.Logs)
	assert.Empty(t, rec.Communications)

	// The spawn it originated still reaches the global feed.
	require.NotEmpty(t, snap.Communications)
	assert.Equal(t, core.KindSpawn, snap.Communications[0].Kind)
	assert.Equal(t, "er-coder", snap.Communications[0].To)
}

// blockingStore never answers for one folder until its context ends.
type blockingStore struct {
	reader.Store
	blockOn string
}

func (s blockingStore) HadSessions(ctx context.Context, folder string) (bool, error) {
	if folder == s.blockOn {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return s.Store.HadSessions(ctx, folder)
}

func TestRunTimeoutYieldsErrorRecords(t *testing.T) {
	p := newPublisher(t, blockingStore{Store: newStore(t, fleet(t)), blockOn: "coder"})
	p.RunTimeout = 50 * time.Millisecond

	snap, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.StatusError, snap.Agents["er-coder"].Status)
	assert.Equal(t, core.StatusRunning, snap.Agents["er-hineda"].Status)
}

func TestRunAbortsWhenCancelled(t *testing.T) {
	p := newPublisher(t, newStore(t, fleet(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, snap)
}

func TestPublishKeepsSnapshotWhenCancelled(t *testing.T) {
	p := newPublisher(t, newStore(t, fleet(t)))
	path := filepath.Join(t.TempDir(), "agent-status.json")

	good, err := p.Publish(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Publish(ctx, path)
	require.ErrorIs(t, err, context.Canceled)

	got, err := snapshot.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, good.Metrics, got.Metrics)
	for _, r := range got.Records() {
		assert.NotEqual(t, core.StatusError, r.Status, r.ID)
	}
}

func TestRunCapsFeed(t *testing.T) {
	var entries []core.Entry
	targets := []string{"planner", "coder", "netops", "pr-reviewer"}
	for i := range 20 {
		ts := fmt.Sprintf("2026-03-14T11:%02d:00Z", 20+i)
		entries = append(entries, msg(ts, core.RoleAssistant, spawnCall(targets[i%len(targets)], "task")))
	}
	p := newPublisher(t, newStore(t, fstest.MapFS{"main/sessions/s.jsonl": jsonl(t, entries...)}))
	p.Feed = 3
	p.Communications = 2

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	// One spawn per target survives last-write-wins; the feed cap then applies.
	require.Len(t, snap.Communications, 3)
	assert.Equal(t, "2026-03-14T11:39:00Z", snap.Communications[0].Timestamp.Format(time.RFC3339))
	assert.Len(t, snap.Agents["er-hineda"].Communications, 2)
}

type stampTransformer struct{}

func (stampTransformer) Transform(s *core.Snapshot) error {
	for id, r := range s.Agents {
		r.Task = "[redacted]"
		s.Agents[id] = r
	}
	return nil
}

type failTransformer struct{}

func (failTransformer) Transform(*core.Snapshot) error { return errors.New("boom") }

func TestRunTransformers(t *testing.T) {
	p := newPublisher(t, newStore(t, fleet(t)))
	p.Transformers = []core.Transformer{stampTransformer{}}

	snap, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "[redacted]", snap.Agents["er-hineda"].Task)

	p.Transformers = []core.Transformer{failTransformer{}}
	_, err = p.Run(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestPublishWritesSnapshot(t *testing.T) {
	p := newPublisher(t, newStore(t, fleet(t)))
	path := filepath.Join(t.TempDir(), "public", "agent-status.json")

	snap, err := p.Publish(context.Background(), path)
	require.NoError(t, err)

	got, err := snapshot.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap.Order, got.Order)
	assert.Equal(t, snap.Metrics, got.Metrics)
}

func TestAggregate(t *testing.T) {
	records := []core.StatusRecord{
		{Status: core.StatusRunning, Tokens: core.Tokens{Input: 1, Output: 2, Total: 3}},
		{Status: core.StatusActive, Tokens: core.Tokens{Input: 4, Total: 4}},
		{Status: core.StatusIdle},
		{Status: core.StatusOffline},
		{Status: core.StatusError},
	}
	assert.Equal(t, core.Metrics{
		Tokens:        core.Tokens{Input: 5, Output: 2, Total: 7},
		ActiveAgents:  2,
		IdleAgents:    1,
		OfflineAgents: 1,
	}, Aggregate(records))
}
