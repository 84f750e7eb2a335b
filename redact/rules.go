// Package redact scrubs secrets and personal data from status snapshots and
// session histories before they are written or served.
package redact

import (
	"fmt"
	"regexp"
)

// Rule kinds.
const (
	KindSecret = "secret"
	KindPII    = "pii"
)

// Rule detects sensitive data in a string and provides a replacement.
type Rule interface {
	Name() string
	Kind() string
	Detect(s string) []Match
	Replacement(m Match) string
}

// Match is one detected occurrence, as byte offsets into the input.
type Match struct {
	Start int
	End   int
	Value string
}

type regexRule struct {
	name    string
	kind    string
	pattern *regexp.Regexp
}

// NewRegexRule returns a rule replacing every match of pattern with
// "[REDACTED:<name>]".
func NewRegexRule(name, kind, pattern string) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", name, err)
	}
	return &regexRule{name: name, kind: kind, pattern: re}, nil
}

func mustRule(name, kind, pattern string) Rule {
	return &regexRule{name: name, kind: kind, pattern: regexp.MustCompile(pattern)}
}

func (r *regexRule) Name() string { return r.name }
func (r *regexRule) Kind() string { return r.kind }

func (r *regexRule) Detect(s string) []Match {
	locs := r.pattern.FindAllStringIndex(s, -1)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{Start: loc[0], End: loc[1], Value: s[loc[0]:loc[1]]})
	}
	return matches
}

func (r *regexRule) Replacement(Match) string {
	return "[REDACTED:" + r.name + "]"
}

// SecretRules returns the built-in credential rules.
func SecretRules() []Rule {
	return []Rule{
		mustRule("aws_key", KindSecret, `AKIA[0-9A-Z]{16}`),
		mustRule("api_key", KindSecret,
			`(?:sk-(?:ant-)?[a-zA-Z0-9_\-]{32,}|gh[pousr]_[a-zA-Z0-9]{36,}|glpat-[a-zA-Z0-9\-]{20,}|xox[abpr]-[a-zA-Z0-9\-]{10,})`),
		mustRule("private_key", KindSecret, `-----BEGIN [A-Z ]*PRIVATE KEY-----`),
		mustRule("connection_string", KindSecret,
			`(?:postgres(?:ql)?|mongodb(?:\+srv)?|mysql|redis|amqp)://[^\s"'`+"`"+`]+`),
		mustRule("bearer_token", KindSecret, `(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{16,}=*`),
		mustRule("jwt", KindSecret, `eyJ[A-Za-z0-9\-_]+\.eyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_.+/=]+`),
	}
}

// PIIRules returns the built-in personal data rules.
func PIIRules() []Rule {
	return []Rule{
		mustRule("email", KindPII, `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		mustRule("ipv4", KindPII, `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
		mustRule("phone", KindPII, `(?:\+\d{1,3}[\s\-]?)?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{4}\b`),
	}
}
