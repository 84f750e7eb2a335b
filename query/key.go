package query

import (
	"errors"
	"strings"
)

// ErrInvalidKeyFormat is returned for session keys with fewer than two
// colon-delimited parts.
var ErrInvalidKeyFormat = errors.New("invalid session key format")

// keyPrefix is the first part of every key this package issues.
const keyPrefix = "agent"

// Key addresses one session as "agent:<folder>:<sessionId>".
type Key struct {
	Folder    string
	SessionID string
}

// ParseKey splits a session key. The first part is not checked; a key with
// only two parts has an empty session id and never resolves.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return Key{}, ErrInvalidKeyFormat
	}
	k := Key{Folder: parts[1]}
	if len(parts) > 2 {
		k.SessionID = parts[2]
	}
	return k, nil
}

func (k Key) String() string {
	return keyPrefix + ":" + k.Folder + ":" + k.SessionID
}
