// Package openclaw reads agent session logs laid out as
// <agentsDir>/<folder>/sessions/*.jsonl, one JSON entry per line.
package openclaw

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gobwas/glob"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/reader"
)

// Default file name globs.
const (
	DefaultInclude = "*.jsonl"
	DefaultDeleted = "*.deleted.*"
	DefaultHistory = "*.jsonl*"
)

// sessionsDir is the directory under each agent folder holding its logs.
const sessionsDir = "sessions"

// defaultMaxLine bounds a single line when file tailing is disabled.
const defaultMaxLine = 64 << 20

// Options configures a Store. Zero values fall back to the defaults.
type Options struct {
	Include string // glob of live session files
	Deleted string // glob of files marked deleted
	History string // glob of any file proving a past session

	// MaxFileBytes caps how much of a session file is read. Larger files
	// are tailed. Zero disables the cap.
	MaxFileBytes int64

	// FileTimeout bounds reading one file. Zero disables it.
	FileTimeout time.Duration

	Logger *log.Logger
}

// Store reads session logs from an agents tree.
type Store struct {
	fsys         fs.FS
	include      glob.Glob
	deleted      glob.Glob
	history      glob.Glob
	maxFileBytes int64
	fileTimeout  time.Duration
	logger       *log.Logger
}

var _ reader.Store = (*Store)(nil)

// New returns a Store over fsys, whose root is the agents directory.
func New(fsys fs.FS, opts Options) (*Store, error) {
	s := &Store{
		fsys:         fsys,
		maxFileBytes: opts.MaxFileBytes,
		fileTimeout:  opts.FileTimeout,
		logger:       opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	var err error
	if s.include, err = compile(opts.Include, DefaultInclude); err != nil {
		return nil, fmt.Errorf("include glob: %w", err)
	}
	if s.deleted, err = compile(opts.Deleted, DefaultDeleted); err != nil {
		return nil, fmt.Errorf("deleted glob: %w", err)
	}
	if s.history, err = compile(opts.History, DefaultHistory); err != nil {
		return nil, fmt.Errorf("history glob: %w", err)
	}
	return s, nil
}

func compile(pattern, fallback string) (glob.Glob, error) {
	if pattern == "" {
		pattern = fallback
	}
	return glob.Compile(pattern)
}

// LatestSession returns the eligible session with the newest mtime.
func (s *Store) LatestSession(ctx context.Context, folder string) (reader.Session, error) {
	sessions, err := s.ListSessions(ctx, folder, 1)
	if err != nil {
		return reader.Session{}, err
	}
	if len(sessions) == 0 {
		return reader.Session{}, fmt.Errorf("%w in %s", reader.ErrNoSession, folder)
	}
	return sessions[0], nil
}

// ListSessions returns up to n eligible sessions in folder, newest first.
func (s *Store) ListSessions(ctx context.Context, folder string, n int) ([]reader.Session, error) {
	dir, entries, err := s.readDir(folder)
	if err != nil || len(entries) == 0 {
		return nil, err
	}

	var sessions []reader.Session
	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if de.IsDir() || !s.eligible(de.Name()) {
			continue
		}
		info, err := de.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// Removed between listing and stat.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		sessions = append(sessions, reader.Session{
			Folder:  folder,
			ID:      sessionID(de.Name()),
			Name:    de.Name(),
			Path:    path.Join(dir, de.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	slices.SortFunc(sessions, func(a, b reader.Session) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if n > 0 && len(sessions) > n {
		sessions = sessions[:n]
	}
	return sessions, nil
}

// FindSession looks an eligible session up by id or file name.
func (s *Store) FindSession(ctx context.Context, folder, id string) (reader.Session, error) {
	if id != "" {
		sessions, err := s.ListSessions(ctx, folder, 0)
		if err != nil {
			return reader.Session{}, err
		}
		for _, sess := range sessions {
			if sess.ID == id || sess.Name == id {
				return sess, nil
			}
		}
	}
	return reader.Session{}, fmt.Errorf("%w: %s/%s", reader.ErrNoSession, folder, id)
}

// HadSessions reports whether any file in folder's sessions directory
// matches the history glob.
func (s *Store) HadSessions(_ context.Context, folder string) (bool, error) {
	_, entries, err := s.readDir(folder)
	if err != nil {
		return false, err
	}
	for _, de := range entries {
		if !de.IsDir() && s.history.Match(de.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// ReadEntries parses a session file and returns its entries newest first.
// Files larger than MaxFileBytes are tailed: only the last MaxFileBytes are
// read and the first, partial, line is dropped.
func (s *Store) ReadEntries(ctx context.Context, sess reader.Session) ([]core.Entry, error) {
	if s.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fileTimeout)
		defer cancel()
	}

	f, err := s.fsys.Open(sess.Path)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	r, err := s.window(f)
	if err != nil {
		return nil, fmt.Errorf("tail %s: %w", sess.Path, err)
	}

	entries, dropped, err := scanEntries(ctx, r, s.maxLine())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", sess.Path, err)
	}
	if dropped > 0 {
		s.logger.Debug("dropped malformed lines", "file", sess.Path, "dropped", dropped)
	}

	slices.Reverse(entries)
	return entries, nil
}

func (s *Store) readDir(folder string) (string, []fs.DirEntry, error) {
	dir := path.Join(folder, sessionsDir)
	if folder == "" || !fs.ValidPath(dir) {
		return dir, nil, nil
	}
	entries, err := fs.ReadDir(s.fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return dir, nil, nil
	}
	if err != nil {
		return dir, nil, fmt.Errorf("read sessions directory: %w", err)
	}
	return dir, entries, nil
}

func (s *Store) eligible(name string) bool {
	return s.include.Match(name) && !s.deleted.Match(name)
}

func (s *Store) maxLine() int {
	if s.maxFileBytes <= 0 {
		return defaultMaxLine
	}
	return int(s.maxFileBytes) + 1
}

// window positions f at the start of the readable tail and bounds the read
// to MaxFileBytes, so a concurrently growing file is never read unbounded.
func (s *Store) window(f fs.File) (io.Reader, error) {
	if s.maxFileBytes <= 0 {
		return f, nil
	}
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	start := info.Size() - s.maxFileBytes
	if start <= 0 {
		return io.LimitReader(f, s.maxFileBytes), nil
	}

	// Read the byte before the window to learn whether it opens on a line
	// boundary.
	if err := skip(f, start-1); err != nil {
		return nil, err
	}
	var prev [1]byte
	if _, err := io.ReadFull(f, prev[:]); err != nil {
		return nil, err
	}
	br := bufio.NewReader(io.LimitReader(f, s.maxFileBytes))
	if prev[0] != '\n' {
		if err := discardLine(br); err != nil {
			return nil, err
		}
	}
	return br, nil
}

// discardLine consumes br up to and including the next newline.
func discardLine(br *bufio.Reader) error {
	for {
		_, err := br.ReadSlice('\n')
		switch {
		case err == nil, errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			return err
		}
	}
}

// skip advances f by n bytes, seeking when the file supports it.
func skip(f fs.File, n int64) error {
	if seeker, ok := f.(io.Seeker); ok {
		_, err := seeker.Seek(n, io.SeekStart)
		return err
	}
	_, err := io.CopyN(io.Discard, f, n)
	return err
}

// scanEntries parses JSONL lines. Empty and malformed lines are dropped and
// counted.
func scanEntries(ctx context.Context, r io.Reader, maxLine int) ([]core.Entry, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var (
		entries []core.Entry
		dropped int
	)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, dropped, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry core.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}
	return entries, dropped, scanner.Err()
}

func sessionID(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
