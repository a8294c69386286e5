package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestExtractFromText(t *testing.T) {
	e := NewExtractor(zaptest.NewLogger(t))

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"keyword with colon", "password: Ab12cd", "Ab12cd", true},
		{"mixed token beside url", "Join here http://open.kakao.com/xyz abc123", "abc123", true},
		{"korean keyword", "비밀번호 1234", "1234", true},
		{"korean short keyword", "비번:abcd", "abcd", true},
		{"keyword is case-insensitive", "PASSWORD = Xy77", "Xy77", true},
		{"keyword on a later line", "오픈채팅 입장하세요\n비번은 qwer1234 입니다", "qwer1234", true},
		{"mixed wins over alphabetic", "hello world code99", "code99", true},
		{"numeric fallback", "입장 안내 5821", "5821", true},
		{"only a url", "안녕하세요 http://open.kakao.com/o/gAbc", "", false},
		{"too short", "pw: abc", "", false},
		{"too long", "abcdefghij1234567890k", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.ExtractFromText(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestURLTokensAreNeverReturned(t *testing.T) {
	e := NewExtractor(nil)

	got, ok := e.ExtractFromText("join http://open.kakao.com/o/gHx12 then gHx12")
	require.True(t, ok)
	assert.NotEqual(t, "gHx12", got)
	assert.Equal(t, "join", got)

	_, ok = e.ExtractFromText("open kakao https://open.kakao.com/o/x")
	assert.False(t, ok)
}

func TestVocabulary(t *testing.T) {
	v := newVocabulary([]string{"https://open.kakao.com/o/gAbc?x=ab"})

	for _, w := range []string{"open", "KAKAO", "gabc", "com", "http", "www"} {
		assert.True(t, v.contains(w), w)
	}
	assert.False(t, v.contains("ab"))
	assert.False(t, v.contains("o"))
}

func TestAccept(t *testing.T) {
	v := newVocabulary(nil)

	assert.True(t, v.accept("abcd"))
	assert.True(t, v.accept("12345678901234567890"))
	assert.False(t, v.accept("abc"))
	assert.False(t, v.accept("123456789012345678901"))
	assert.False(t, v.accept("HTTPS"))
	assert.False(t, v.accept("me@x.io"))
	assert.False(t, v.accept("https://a"))
	assert.False(t, v.accept("----"))
}

func TestClassifyAndBest(t *testing.T) {
	assert.Equal(t, Mixed, Classify("abc1").Composition)
	assert.Equal(t, Alphabetic, Classify("abcd").Composition)
	assert.Equal(t, Numeric, Classify("1234").Composition)

	assert.Greater(t, Mixed.Rank(), Alphabetic.Rank())
	assert.Greater(t, Alphabetic.Rank(), Numeric.Rank())

	best, ok := Best([]Candidate{
		Classify("hello"),
		Classify("2024"),
		Classify("room7"),
		Classify("x9y9"),
	})
	require.True(t, ok)
	assert.Equal(t, "room7", best.Text)

	_, ok = Best(nil)
	assert.False(t, ok)
}
