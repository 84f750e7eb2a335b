package redact

import (
	"regexp"
	"slices"

	"github.com/sonnes/chaukidar/core"
)

// Config selects the rules a Redactor applies.
type Config struct {
	Secrets    bool
	PII        bool
	ExtraRules []Rule
	Allowlist  []string // regexes; matching values are left alone
}

// DefaultConfig enables every built-in rule.
func DefaultConfig() Config {
	return Config{Secrets: true, PII: true}
}

// Redactor rewrites every free-text field of snapshots and histories. It
// implements core.Transformer and core.HistoryTransformer.
type Redactor struct {
	rules     []Rule
	allowlist []*regexp.Regexp
	secrets   bool
}

// New builds a Redactor. Allowlist patterns that do not compile are
// ignored.
func New(cfg Config) *Redactor {
	var rules []Rule
	if cfg.Secrets {
		rules = append(rules, SecretRules()...)
	}
	if cfg.PII {
		rules = append(rules, PIIRules()...)
	}
	rules = append(rules, cfg.ExtraRules...)

	allowlist := make([]*regexp.Regexp, 0, len(cfg.Allowlist))
	for _, pattern := range cfg.Allowlist {
		if re, err := regexp.Compile(pattern); err == nil {
			allowlist = append(allowlist, re)
		}
	}
	return &Redactor{rules: rules, allowlist: allowlist, secrets: cfg.Secrets}
}

// Transform redacts tasks, log lines and delegations of a snapshot.
func (r *Redactor) Transform(s *core.Snapshot) error {
	for id, rec := range s.Agents {
		rec.Task = r.String(rec.Task)
		for i := range rec.Logs {
			rec.Logs[i].Text = r.String(rec.Logs[i].Text)
		}
		r.delegations(rec.Communications)
		s.Agents[id] = rec
	}
	r.delegations(s.Communications)
	return nil
}

// TransformHistory redacts message text, tool arguments and tool results.
func (r *Redactor) TransformHistory(h *core.History) error {
	for i := range h.Messages {
		c := &h.Messages[i].Content
		if !c.IsBlocks {
			c.Text = r.String(c.Text)
			continue
		}
		for j := range c.Blocks {
			r.block(&c.Blocks[j])
		}
	}
	return nil
}

func (r *Redactor) delegations(ds []core.Delegation) {
	for i := range ds {
		ds[i].Task = r.String(ds[i].Task)
		ds[i].Label = r.String(ds[i].Label)
	}
}

func (r *Redactor) block(b *core.ContentBlock) {
	switch b.Type {
	case core.BlockText:
		b.Text = r.String(b.Text)
	case core.BlockThinking:
		b.Thinking = r.String(b.Thinking)
	case core.BlockToolCall:
		b.Arguments = r.payload(b.Arguments, 0)
	case core.BlockToolResult:
		b.Content = r.payload(b.Content, 0)
	}
}

type replacement struct {
	start, end int
	text       string
}

// String applies every rule to s. Overlapping matches resolve to the
// earliest start, then the longest match.
func (r *Redactor) String(s string) string {
	if s == "" || len(r.rules) == 0 {
		return s
	}

	var reps []replacement
	for _, rule := range r.rules {
		for _, m := range rule.Detect(s) {
			if r.allowed(m.Value) {
				continue
			}
			reps = append(reps, replacement{start: m.Start, end: m.End, text: rule.Replacement(m)})
		}
	}
	if len(reps) == 0 {
		return s
	}

	slices.SortFunc(reps, func(a, b replacement) int {
		if a.start != b.start {
			return a.start - b.start
		}
		return b.end - a.end
	})

	out := make([]byte, 0, len(s))
	pos := 0
	for _, rep := range reps {
		if rep.start < pos {
			continue
		}
		out = append(out, s[pos:rep.start]...)
		out = append(out, rep.text...)
		pos = rep.end
	}
	out = append(out, s[pos:]...)
	return string(out)
}

func (r *Redactor) allowed(value string) bool {
	for _, re := range r.allowlist {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
