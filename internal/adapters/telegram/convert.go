package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mikey/link-joiner/internal/core"
)

// ToInbound converts a Bot API message. selfID is the bot's own user ID and
// marks messages the bot authored.
func ToInbound(m *tgbotapi.Message, selfID int64) *core.InboundMessage {
	msg := &core.InboundMessage{
		ID:         int64(m.MessageID),
		ReceivedAt: m.Time(),
		Text:       m.Text,
	}

	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
		msg.ChatTitle = m.Chat.Title
		msg.IsChannel = m.Chat.IsChannel()
	}
	if m.From != nil {
		msg.SenderID = m.From.ID
		msg.SenderIsBot = m.From.IsBot
		msg.Outgoing = selfID != 0 && m.From.ID == selfID
		if msg.Outgoing {
			// our own messages are judged by content, not by the bot flag
			msg.SenderIsBot = false
		}
	}

	entities := m.Entities
	if msg.Text == "" {
		msg.Text = m.Caption
		entities = m.CaptionEntities
	}
	for _, e := range entities {
		msg.Entities = append(msg.Entities, core.Entity{
			Type:   e.Type,
			Offset: e.Offset,
			Length: e.Length,
			URL:    e.URL,
		})
	}

	if n := len(m.Photo); n > 0 {
		largest := m.Photo[n-1]
		msg.Photo = &core.MediaRef{FileID: largest.FileID, FileSize: largest.FileSize}
	}
	return msg
}
