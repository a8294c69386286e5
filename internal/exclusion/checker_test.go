package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/link-joiner/internal/core"
)

type staticKeywords struct {
	keyword  string
	excluded []string
}

func (k staticKeywords) Keyword() string            { return k.keyword }
func (k staticKeywords) ExcludedKeywords() []string { return k.excluded }

func TestShouldIgnore(t *testing.T) {
	keywords := staticKeywords{keyword: "open.kakao.com", excluded: []string{"광고", "Spam"}}
	rules := Rules{TargetChatID: -100123, ExcludedChatIDs: []int64{-100999}}
	c := NewChecker(keywords, rules, zaptest.NewLogger(t))

	link := "join https://open.kakao.com/o/abc"

	tests := []struct {
		name   string
		msg    core.InboundMessage
		reason string
	}{
		{"plain message passes", core.InboundMessage{ChatID: -100123, Text: link}, ""},
		{"target compared by absolute value", core.InboundMessage{ChatID: 100123, Text: link}, ""},
		{"bot sender", core.InboundMessage{ChatID: -100123, Text: link, SenderIsBot: true}, ReasonBot},
		{"outgoing with keyword passes", core.InboundMessage{ChatID: -100123, Text: link, Outgoing: true}, ""},
		{"outgoing keyword is case-insensitive", core.InboundMessage{ChatID: -100123, Text: "OPEN.KAKAO.COM/o/x", Outgoing: true}, ""},
		{"outgoing without keyword", core.InboundMessage{ChatID: -100123, Text: "hello", Outgoing: true}, ReasonOutgoing},
		{"channel", core.InboundMessage{ChatID: -100123, Text: link, IsChannel: true}, ReasonChannel},
		{"empty", core.InboundMessage{ChatID: -100123, Text: "  "}, ReasonEmpty},
		{"photo only passes", core.InboundMessage{ChatID: -100123, Photo: &core.MediaRef{FileID: "f"}}, ""},
		{"other chat", core.InboundMessage{ChatID: -100555, Text: link}, ReasonNotTarget},
		{"excluded keyword", core.InboundMessage{ChatID: -100123, Text: link + " 광고"}, ReasonExcludedKeyword},
		{"excluded keyword ignores case", core.InboundMessage{ChatID: -100123, Text: link + " SPAM"}, ReasonExcludedKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, ignored := c.ShouldIgnore(&tt.msg)
			assert.Equal(t, tt.reason != "", ignored)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestExcludedChatWithoutTarget(t *testing.T) {
	c := NewChecker(staticKeywords{keyword: "kakao"}, Rules{ExcludedChatIDs: []int64{-100999}}, nil)

	reason, ignored := c.ShouldIgnore(&core.InboundMessage{ChatID: 100999, Text: "kakao"})
	assert.True(t, ignored)
	assert.Equal(t, ReasonExcludedChat, reason)

	_, ignored = c.ShouldIgnore(&core.InboundMessage{ChatID: 42, Text: "kakao"})
	assert.False(t, ignored)
}

func TestChannelsAllowed(t *testing.T) {
	c := NewChecker(staticKeywords{keyword: "kakao"}, Rules{AllowChannels: true}, nil)
	_, ignored := c.ShouldIgnore(&core.InboundMessage{ChatID: 7, Text: "kakao", IsChannel: true})
	assert.False(t, ignored)
}
