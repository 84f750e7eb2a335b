package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{
			name:   "reference markers stripped",
			in:     "[telegram 10:02] [msg 42] Deploy the new build",
			maxLen: 150,
			want:   "Deploy the new build",
		},
		{
			name:   "backticks stripped",
			in:     "Run ```go test``` and check `main.go`",
			maxLen: 150,
			want:   "Run go test and check main.go",
		},
		{
			name:   "newlines collapsed",
			in:     "first line\n\nsecond line\r\nthird",
			maxLen: 150,
			want:   "first line second line third",
		},
		{
			name:   "trimmed",
			in:     "   padded   ",
			maxLen: 150,
			want:   "padded",
		},
		{
			name:   "truncated to max length",
			in:     strings.Repeat("a", 200),
			maxLen: 100,
			want:   strings.Repeat("a", 100),
		},
		{
			name:   "truncation keeps runes whole",
			in:     "código código",
			maxLen: 5,
			want:   "códig",
		},
		{
			name:   "zero max disables truncation",
			in:     strings.Repeat("b", 300),
			maxLen: 0,
			want:   strings.Repeat("b", 300),
		},
		{
			name:   "empty string",
			in:     "",
			maxLen: 100,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in, tt.maxLen))
		})
	}
}

func TestLen(t *testing.T) {
	assert.Equal(t, 6, Len("código"))
	assert.Equal(t, 0, Len(""))
}
