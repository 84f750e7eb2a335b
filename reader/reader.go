// Package reader defines the interface for locating and parsing agent
// session logs.
package reader

import (
	"context"
	"errors"
	"time"

	"github.com/sonnes/chaukidar/core"
)

// ErrNoSession is returned when an agent folder has no eligible session
// file, or when a named session does not exist.
var ErrNoSession = errors.New("no session")

// Session identifies one session file of one agent.
type Session struct {
	Folder  string    // agent session folder
	ID      string    // file name without the log suffix
	Name    string    // file name
	Path    string    // path inside the store
	ModTime time.Time // filesystem modification time
	Size    int64
}

// Store locates and parses session logs. Implementations are safe for
// concurrent use; they only read.
type Store interface {
	// LatestSession returns the eligible session with the most recent
	// modification time. It returns ErrNoSession when the folder is missing
	// or holds no eligible file.
	LatestSession(ctx context.Context, folder string) (Session, error)

	// ListSessions returns up to n eligible sessions, newest first. n <= 0
	// returns all of them. A missing folder yields an empty list.
	ListSessions(ctx context.Context, folder string, n int) ([]Session, error)

	// FindSession looks a session up by id among the eligible files.
	FindSession(ctx context.Context, folder, id string) (Session, error)

	// HadSessions reports whether the folder holds any session file at all,
	// deleted ones included.
	HadSessions(ctx context.Context, folder string) (bool, error)

	// ReadEntries parses the session file and returns its entries newest
	// first. Malformed lines are dropped.
	ReadEntries(ctx context.Context, s Session) ([]core.Entry, error)
}
