// Package noise classifies log text as dialogue or operational noise.
//
// Session logs are dominated by tool stdout/stderr and framework banners.
// The classifier applies four layers in order and stops at the first hit:
// substring keywords, structural patterns, a JSON-blob heuristic and a
// symbol-only check for short strings. Keyword matching is case-sensitive.
package noise

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule identifies which layer classified a text as noise.
type Rule string

const (
	RuleKeyword    Rule = "keyword"
	RulePattern    Rule = "pattern"
	RuleJSONBlob   Rule = "json_blob"
	RuleSymbolOnly Rule = "symbol_only"
)

// Keyword is a substring marker of tool, shell or build output.
type Keyword string

// Keywords is the substring denylist. Keep it narrow: a false positive hides
// real dialogue.
var Keywords = []Keyword{
	// exec tool lifecycle
	"Command still running", "signal SIGTERM", "Exec completed", "Exec failed",
	// dev servers and bundlers
	"vite v", "vite ready", "transforming", "built in", "npm run", "Use process",
	"Starting dev server", "Compiled", "Hash:", "assets by", "Entrypoint", "landing.",
	"waiting for", "file changed", "reload",
	// runtime internals and errors
	"sessionId", "Error:", "Exception", "ENOENT", "no such file", "permission denied",
	"node_modules", ".jsonl", "undefined", "null",
	// markup and shell fragments
	"$$", ">>", "## ",
	// serialized payload keys
	`"status":`, `"tool":`, `"error":`,
	// source code
	"import ", "export ", "const ", "function ",
	// merge conflict markers
	"<<<<<<<", "=======", ">>>>>>>",
	// directory listings
	"total ", "drwx", "-rw", "-rwx",
	// secrets prompts
	"(no output)", "passphrase", "credentials",
	// package managers
	"npm ERR", "npm WARN", "yarn ", "pnpm ",
	// HTTP access logs
	"GET /", "POST /", "200 OK", "404 ", "500 ",
}

// Pattern is a structural regular expression that indicates raw command
// output.
type Pattern struct {
	Name string
	re   *regexp.Regexp
}

// Match reports whether text matches the pattern.
func (p Pattern) Match(text string) bool { return p.re.MatchString(text) }

// Patterns is the structural pattern table.
var Patterns = []Pattern{
	{Name: "numbered_code_line", re: regexp.MustCompile(`(?m)^\s*\d+:\w`)},
	{Name: "json_line_start", re: regexp.MustCompile(`(?m)^\s*[{\[]"`)},
	{Name: "file_listing", re: regexp.MustCompile(`^\s*(total|drwx|-rw)`)},
	{Name: "number_columns", re: regexp.MustCompile(`^\s*\d+\s+\d+`)},
	{Name: "git_on_branch", re: regexp.MustCompile(`^On branch`)},
	{Name: "git_not_staged", re: regexp.MustCompile(`^Changes not staged`)},
	{Name: "git_untracked", re: regexp.MustCompile(`^Untracked files`)},
	{Name: "git_clean", re: regexp.MustCompile(`^nothing to commit`)},
}

const (
	// jsonBlobMinLen is the length above which brace-heavy text is taken as
	// a serialized payload.
	jsonBlobMinLen = 80
	// jsonBlobMinBraces is the number of opening braces that marks a blob.
	jsonBlobMinBraces = 2
	// symbolOnlyMaxLen bounds the symbol-only check to short strings.
	symbolOnlyMaxLen = 15
)

// symbolOnlyRE matches strings made only of non-word characters and digits.
var symbolOnlyRE = regexp.MustCompile(`^[\W\d]+$`)

// IsNoise reports whether text is operational noise rather than dialogue.
func IsNoise(text string) bool {
	return Classify(text) != ""
}

// Classify returns the rule that classifies text as noise, or "" when the
// text is signal.
func Classify(text string) Rule {
	for _, kw := range Keywords {
		if strings.Contains(text, string(kw)) {
			return RuleKeyword
		}
	}
	for _, p := range Patterns {
		if p.Match(text) {
			return RulePattern
		}
	}
	if isJSONBlob(text) {
		return RuleJSONBlob
	}
	if utf8.RuneCountInString(text) < symbolOnlyMaxLen && symbolOnlyRE.MatchString(text) {
		return RuleSymbolOnly
	}
	return ""
}

// isJSONBlob catches serialized tool payloads without parsing them.
func isJSONBlob(text string) bool {
	if !strings.Contains(text, "{") || !strings.Contains(text, ":") {
		return false
	}
	if utf8.RuneCountInString(text) <= jsonBlobMinLen {
		return false
	}
	return strings.Count(text, "{") >= jsonBlobMinBraces
}
