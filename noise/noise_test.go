package noise

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Rule
	}{
		{"vite banner", "vite v5.0.8 ready in 300 ms", RuleKeyword},
		{"git clean tree", "nothing to commit, working tree clean", RulePattern},
		{"git branch", "On branch main\nYour branch is up to date", RulePattern},
		{"exec lifecycle", "Command still running (session calm-reef, pid 4121)", RuleKeyword},
		{"npm error", "npm ERR! code ELIFECYCLE", RuleKeyword},
		{"access log", "GET /api/status 304 2ms", RuleKeyword},
		{"status key", `{"status": "ok"}`, RuleKeyword},
		{"merge marker", "<<<<<<< HEAD", RuleKeyword},
		{"numbered code", "12:package main", RulePattern},
		{"json line start", "[\"a\", \"b\"]", RulePattern},
		{"number columns", "  42   17 src", RulePattern},
		{
			"json blob",
			"payload {alpha: {beta: 1}} plus {gamma: 2} with a longer explanation that keeps going for a while",
			RuleJSONBlob,
		},
		{"symbols and digits", "--- 123 ---", RuleSymbolOnly},
		{"emoticon", ":)", RuleSymbolOnly},
		{"question", "Can you help me write a function?", ""},
		{"spanish dialogue", "¿Puedes revisar el despliegue de mañana?", ""},
		{"short word", "ok", ""},
		{"short blob", "{a: {b}}", ""},
		{"long symbols", "=-=-=-=-=-=-=-=-=-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
			assert.Equal(t, tt.want != "", IsNoise(tt.text))
		})
	}
}

func TestEveryKeywordIsNoise(t *testing.T) {
	for _, kw := range Keywords {
		t.Run(string(kw), func(t *testing.T) {
			assert.True(t, IsNoise("some words "+string(kw)+" more words"))
		})
	}
}

func TestKeywordsAreCaseSensitive(t *testing.T) {
	assert.True(t, IsNoise("npm ERR!"))
	assert.False(t, IsNoise("the npm err output was empty"))
}

func TestPatternsHaveNames(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Patterns {
		assert.NotEmpty(t, p.Name)
		assert.False(t, seen[p.Name], "duplicate pattern %s", p.Name)
		seen[p.Name] = true
	}
}

func TestLongDialogueWithLettersIsSignal(t *testing.T) {
	text := strings.Repeat("please summarise the design review ", 3)
	assert.False(t, IsNoise(text))
}
