package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncateRunes(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "hello", tp.TruncateRunes("hello", 10))
	assert.Equal(t, "hello", tp.TruncateRunes("hello", 0))
	assert.Equal(t, "비밀번…", tp.TruncateRunes("비밀번호입니다", 4))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "ok", tp.SanitizeUTF8("ok"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
}

func TestNormalize(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	assert.Equal(t, "caf\u00e9", tp.Normalize("cafe\u0301"))
}

func TestCleanModelOutput(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		in   string
		want string
	}{
		{"  비번 ab12  ", "비번 ab12"},
		{"```\n비번 ab12\n```", "비번 ab12"},
		{"```text\nline one\nline two\n```", "line one\nline two"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tp.CleanModelOutput(tt.in))
	}
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "ab", tp.ProcessText("a\xffb", 10))
	assert.Equal(t, "비밀…", tp.ProcessText("비밀\xff번호", 3))
}
