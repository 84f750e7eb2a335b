package openclaw

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/reader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func file(data string, age time.Duration) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(data), ModTime: base.Add(-age)}
}

func newStore(t *testing.T, fsys fstest.MapFS, opts Options) *Store {
	t.Helper()
	s, err := New(fsys, opts)
	require.NoError(t, err)
	return s
}

func TestListSessions(t *testing.T) {
	fsys := fstest.MapFS{
		"coder/sessions/old.jsonl":              file("", 3*time.Hour),
		"coder/sessions/new.jsonl":              file("", time.Minute),
		"coder/sessions/mid.jsonl":              file("", time.Hour),
		"coder/sessions/gone.deleted.jsonl":     file("", 0),
		"coder/sessions/prev.jsonl.deleted.123": file("", 0),
		"coder/sessions/notes.txt":              file("", 0),
	}
	s := newStore(t, fsys, Options{})
	ctx := context.Background()

	t.Run("newest first, deleted excluded", func(t *testing.T) {
		sessions, err := s.ListSessions(ctx, "coder", 0)
		require.NoError(t, err)
		var ids []string
		for _, sess := range sessions {
			ids = append(ids, sess.ID)
		}
		assert.Equal(t, []string{"new", "mid", "old"}, ids)
		assert.Equal(t, "coder/sessions/new.jsonl", sessions[0].Path)
		assert.Equal(t, "coder", sessions[0].Folder)
	})

	t.Run("limit", func(t *testing.T) {
		sessions, err := s.ListSessions(ctx, "coder", 2)
		require.NoError(t, err)
		assert.Len(t, sessions, 2)
	})

	t.Run("missing folder", func(t *testing.T) {
		sessions, err := s.ListSessions(ctx, "planner", 0)
		require.NoError(t, err)
		assert.Empty(t, sessions)
	})
}

func TestLatestSession(t *testing.T) {
	fsys := fstest.MapFS{
		"main/sessions/a.jsonl":           file("", time.Hour),
		"main/sessions/b.jsonl":           file("", time.Minute),
		"main/sessions/c.deleted.jsonl":   file("", 0),
		"netops/sessions/x.jsonl.deleted": file("", 0),
	}
	s := newStore(t, fsys, Options{})
	ctx := context.Background()

	sess, err := s.LatestSession(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "b", sess.ID)

	_, err = s.LatestSession(ctx, "netops")
	assert.ErrorIs(t, err, reader.ErrNoSession)

	_, err = s.LatestSession(ctx, "missing")
	assert.ErrorIs(t, err, reader.ErrNoSession)
}

func TestFindSession(t *testing.T) {
	fsys := fstest.MapFS{
		"main/sessions/abc-123.jsonl": file("", 0),
	}
	s := newStore(t, fsys, Options{})
	ctx := context.Background()

	sess, err := s.FindSession(ctx, "main", "abc-123")
	require.NoError(t, err)
	assert.Equal(t, "abc-123.jsonl", sess.Name)

	sess, err = s.FindSession(ctx, "main", "abc-123.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", sess.ID)

	_, err = s.FindSession(ctx, "main", "nope")
	assert.ErrorIs(t, err, reader.ErrNoSession)

	_, err = s.FindSession(ctx, "main", "")
	assert.ErrorIs(t, err, reader.ErrNoSession)
}

func TestHadSessions(t *testing.T) {
	fsys := fstest.MapFS{
		"netops/sessions/x.jsonl.deleted.2026": file("", 0),
		"planner/sessions/notes.txt":           file("", 0),
		"coder/sessions/live.jsonl":            file("", 0),
	}
	s := newStore(t, fsys, Options{})
	ctx := context.Background()

	tests := []struct {
		folder string
		want   bool
	}{
		{"netops", true},
		{"coder", true},
		{"planner", false},
		{"missing", false},
	}
	for _, tt := range tests {
		t.Run(tt.folder, func(t *testing.T) {
			got, err := s.HadSessions(ctx, tt.folder)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func line(ts, role, text string) string {
	return `{"type":"message","timestamp":"` + ts + `","message":{"role":"` + role + `","content":"` + text + `"}}`
}

func TestReadEntries(t *testing.T) {
	content := strings.Join([]string{
		line("2026-03-14T08:00:00Z", "user", "first"),
		"",
		"not json at all",
		`{"type":"custom","timestamp":"2026-03-14T08:00:30Z"}`,
		line("2026-03-14T08:01:00Z", "assistant", "second"),
		`{"type":"message","timestamp":"2026-03-14T08:02:00Z","mess`,
	}, "\n")
	fsys := fstest.MapFS{"main/sessions/s.jsonl": file(content, 0)}
	s := newStore(t, fsys, Options{})
	ctx := context.Background()

	sess, err := s.LatestSession(ctx, "main")
	require.NoError(t, err)
	entries, err := s.ReadEntries(ctx, sess)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, "second", entries[0].Message.Content.Text)
	assert.Equal(t, core.RoleAssistant, entries[0].Message.Role)
	assert.Equal(t, "custom", entries[1].Type)
	assert.Equal(t, "first", entries[2].Message.Content.Text)
}

func TestReadEntriesLenientTokens(t *testing.T) {
	content := strings.Join([]string{
		`{"type":"message","timestamp":"2026-03-14T08:00:00Z","tokens":{"input":12,"output":40},"message":{"role":"user","content":"first"}}`,
		`{"type":"message","timestamp":"2026-03-14T08:01:00Z","tokens":12.5,"message":{"role":"user","content":"second"}}`,
		`{"type":"message","timestamp":"2026-03-14T08:02:00Z","tokens":"many","message":{"role":"user","content":"third"}}`,
		`{"type":"message","timestamp":"2026-03-14T08:03:00Z","tokens":7,"message":{"role":"user","content":"fourth"}}`,
	}, "\n")
	fsys := fstest.MapFS{"main/sessions/s.jsonl": file(content, 0)}
	s := newStore(t, fsys, Options{})
	ctx := context.Background()

	sess, err := s.LatestSession(ctx, "main")
	require.NoError(t, err)
	entries, err := s.ReadEntries(ctx, sess)
	require.NoError(t, err)

	require.Len(t, entries, 4)
	assert.Equal(t, core.TokenCount(7), entries[0].Tokens)
	assert.Equal(t, core.TokenCount(0), entries[1].Tokens)
	assert.Equal(t, core.TokenCount(13), entries[2].Tokens)
	assert.Equal(t, "second", entries[2].Message.Content.Text)
	assert.Equal(t, core.TokenCount(0), entries[3].Tokens)
	assert.Equal(t, "first", entries[3].Message.Content.Text)
}

func TestReadEntriesTailsLargeFiles(t *testing.T) {
	l1 := line("2026-03-14T08:00:00Z", "user", "one")
	l2 := line("2026-03-14T08:01:00Z", "user", "two")
	l3 := line("2026-03-14T08:02:00Z", "user", "three")
	content := l1 + "\n" + l2 + "\n" + l3 + "\n"
	fsys := fstest.MapFS{"main/sessions/s.jsonl": file(content, 0)}
	ctx := context.Background()

	tests := []struct {
		name     string
		maxBytes int64
		want     []string
	}{
		{"window inside first line", int64(len(l2)+len(l3)+2+5), []string{"three", "two"}},
		{"window on line boundary", int64(len(l2) + len(l3) + 2), []string{"three", "two"}},
		{"window inside second line", int64(len(l3) + 2 + 3), []string{"three"}},
		{"window covers file", int64(len(content)), []string{"three", "two", "one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, fsys, Options{MaxFileBytes: tt.maxBytes})
			sess, err := s.LatestSession(ctx, "main")
			require.NoError(t, err)
			entries, err := s.ReadEntries(ctx, sess)
			require.NoError(t, err)

			var got []string
			for _, e := range entries {
				got = append(got, e.Message.Content.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadEntriesHonoursContext(t *testing.T) {
	fsys := fstest.MapFS{
		"main/sessions/s.jsonl": file(line("2026-03-14T08:00:00Z", "user", "hi")+"\n", 0),
	}
	s := newStore(t, fsys, Options{FileTimeout: time.Second})
	sess, err := s.LatestSession(context.Background(), "main")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.ReadEntries(ctx, sess)
	assert.ErrorIs(t, err, context.Canceled)
}
