package reduce

import (
	"strings"
	"time"

	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/core"
)

// DefaultMentionChars caps the text excerpt attached to a mention.
const DefaultMentionChars = 100

// Mention maps keywords to the agent folder they refer to.
type Mention struct {
	Folder   string
	Keywords []string
}

// MentionDetector flags assistant text that names another agent by keyword.
// It is a coarse heuristic: the first matching keyword of the first
// matching table row wins, and substrings count ("pr" matches "prueba").
type MentionDetector struct {
	Roster *core.Roster
	Locale clock.Locale

	// Table is checked in order. Rows for the speaking agent's own folder
	// are skipped.
	Table []Mention

	// MaxChars caps the recorded excerpt.
	MaxChars int
}

// Detect returns a mention event when text refers to an agent other than
// from.
func (d *MentionDetector) Detect(from core.Agent, text string, ts time.Time) (core.Delegation, bool) {
	lower := strings.ToLower(text)
	for _, row := range d.Table {
		if row.Folder == from.Folder {
			continue
		}
		to, ok := d.Roster.ByFolder(row.Folder)
		if !ok {
			continue
		}
		for _, kw := range row.Keywords {
			kw = strings.ToLower(kw)
			if kw == "" || !strings.Contains(lower, kw) {
				continue
			}
			return core.Delegation{
				Kind:       core.KindMention,
				From:       from.ID,
				FromFolder: from.Folder,
				To:         to.ID,
				ToFolder:   to.Folder,
				Task:       core.Truncate(text, d.maxChars()),
				Label:      kw,
				Time:       d.Locale.TimeOfDay(ts),
				Timestamp:  ts,
			}, true
		}
	}
	return core.Delegation{}, false
}

func (d *MentionDetector) maxChars() int {
	if d.MaxChars > 0 {
		return d.MaxChars
	}
	return DefaultMentionChars
}
