// Package exclusion decides which inbound messages the pipeline skips.
package exclusion

import (
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

// Reasons reported for an ignored message
const (
	ReasonBot             = "bot sender"
	ReasonOutgoing        = "outgoing message without keyword"
	ReasonChannel         = "broadcast channel"
	ReasonEmpty           = "no text and no photo"
	ReasonNotTarget       = "not the target chat"
	ReasonExcludedChat    = "excluded chat"
	ReasonExcludedKeyword = "excluded keyword"
)

// Keywords supplies the live trigger keyword and exclusion list
type Keywords interface {
	Keyword() string
	ExcludedKeywords() []string
}

// Rules are the static parts of the ignore gate
type Rules struct {
	TargetChatID    int64
	ExcludedChatIDs []int64
	AllowChannels   bool
}

// Checker implements the ignore gate
type Checker struct {
	keywords Keywords
	target   int64
	excluded map[int64]struct{}
	channels bool
	logger   *zap.Logger
}

// NewChecker creates a new exclusion checker
func NewChecker(keywords Keywords, rules Rules, logger *zap.Logger) *Checker {
	excluded := make(map[int64]struct{}, len(rules.ExcludedChatIDs))
	for _, id := range rules.ExcludedChatIDs {
		if id != 0 {
			excluded[abs(id)] = struct{}{}
		}
	}

	if len(excluded) > 0 && logger != nil {
		logger.Info("Initialized exclusion checker",
			zap.Int64s("excluded_chats", rules.ExcludedChatIDs),
			zap.Int64("target_chat", rules.TargetChatID))
	}

	return &Checker{
		keywords: keywords,
		target:   abs(rules.TargetChatID),
		excluded: excluded,
		channels: rules.AllowChannels,
		logger:   logger,
	}
}

// ShouldIgnore returns the reason a message is skipped, if any
func (c *Checker) ShouldIgnore(msg *core.InboundMessage) (string, bool) {
	reason, ignored := c.check(msg)
	if ignored && c.logger != nil {
		c.logger.Debug("Message ignored",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int64("message_id", msg.ID),
			zap.String("reason", reason))
	}
	return reason, ignored
}

func (c *Checker) check(msg *core.InboundMessage) (string, bool) {
	if msg.SenderIsBot {
		return ReasonBot, true
	}
	if msg.Outgoing && !containsFold(msg.Text, c.keywords.Keyword()) {
		return ReasonOutgoing, true
	}
	if msg.IsChannel && !c.channels {
		return ReasonChannel, true
	}
	if strings.TrimSpace(msg.Text) == "" && msg.Photo == nil {
		return ReasonEmpty, true
	}
	if c.target != 0 && abs(msg.ChatID) != c.target {
		return ReasonNotTarget, true
	}
	if _, ok := c.excluded[abs(msg.ChatID)]; ok {
		return ReasonExcludedChat, true
	}
	for _, kw := range c.keywords.ExcludedKeywords() {
		if containsFold(msg.Text, kw) {
			return ReasonExcludedKeyword, true
		}
	}
	return "", false
}

func containsFold(text, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(sub))
}

func abs(id int64) int64 {
	if id < 0 {
		return -id
	}
	return id
}
