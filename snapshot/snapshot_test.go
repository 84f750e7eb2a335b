package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sonnes/chaukidar/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *core.Snapshot {
	started := time.Date(2026, 3, 14, 11, 58, 0, 0, time.UTC)
	return &core.Snapshot{
		GeneratedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Order:       []string{"er-coder"},
		Agents: map[string]core.StatusRecord{
			"er-coder": {
				Agent:     core.Agent{ID: "er-coder", Name: "er Coder", Folder: "coder"},
				Status:    core.StatusActive,
				Task:      "Implement retries",
				Progress:  100,
				StartedAt: &started,
				Logs: []core.LogLine{
					{Role: core.RoleUser, Text: "Implement retries", Time: "11:58:00", Timestamp: started},
				},
				Communications: []core.Delegation{},
				Tokens:         core.Tokens{Input: 5, Total: 5},
			},
		},
		Communications: []core.Delegation{},
		Metrics:        core.Metrics{Tokens: core.Tokens{Input: 5, Total: 5}, ActiveAgents: 1},
	}
}

func TestReadFileNotExist(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "agent-status.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-status.json")
	require.NoError(t, WriteFile(path, sample()))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent-status.json")

	require.NoError(t, WriteFile(path, sample()))
	require.NoError(t, WriteFile(path, sample()))

	// No leftover temp files.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "agent-status.json", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())
}

func TestWriteFileCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "public", "agent-status.json")
	require.NoError(t, WriteFile(path, sample()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestReadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent-status.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse snapshot")
}

func TestWriteJSONUnmarshalable(t *testing.T) {
	err := WriteJSON(filepath.Join(t.TempDir(), "x.json"), map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
