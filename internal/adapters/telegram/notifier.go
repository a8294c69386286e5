package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mikey/link-joiner/internal/core"
	"github.com/mikey/link-joiner/internal/utils"
)

// Bot API limits, counted in characters
const (
	maxMessageLength = 4096
	maxCaptionLength = 1024
)

// Notifier sends summaries to a chat
type Notifier struct {
	api           API
	chatID        int64
	limiter       *rate.Limiter
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// NewNotifier creates a notifier for chatID. ratePerSecond of zero disables
// throttling.
func NewNotifier(api API, chatID int64, ratePerSecond float64, textProcessor *utils.TextProcessor, logger *zap.Logger) *Notifier {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Notifier{
		api:           api,
		chatID:        chatID,
		limiter:       rate.NewLimiter(limit, 1),
		textProcessor: textProcessor,
		logger:        logger,
	}
}

// Notify sends the summary. With a photo, short text rides along as the
// caption; longer text follows in its own message.
func (n *Notifier) Notify(ctx context.Context, note *core.Notification) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	text := n.textProcessor.ProcessText(note.Text, maxMessageLength)

	if note.PhotoPath != "" {
		photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FilePath(note.PhotoPath))
		fits := len([]rune(text)) <= maxCaptionLength
		if fits {
			photo.Caption = text
		}
		if _, err := n.api.Send(photo); err != nil {
			return fmt.Errorf("failed to send photo to %d: %w", n.chatID, err)
		}
		if fits || strings.TrimSpace(text) == "" {
			n.logger.Debug("Notification sent", zap.Int64("chat_id", n.chatID), zap.Bool("photo", true))
			return nil
		}
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", n.chatID, err)
	}
	n.logger.Debug("Notification sent", zap.Int64("chat_id", n.chatID), zap.Int("links", len(note.Links)))
	return nil
}
