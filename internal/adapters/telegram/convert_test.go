package telegram

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInboundText(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID: 11,
		Date:      1700000000,
		From:      &tgbotapi.User{ID: 5},
		Chat:      &tgbotapi.Chat{ID: -100123, Type: "supergroup", Title: "deals"},
		Text:      "join https://open.kakao.com/o/abc",
		Entities:  []tgbotapi.MessageEntity{{Type: "url", Offset: 5, Length: 28}},
	}

	msg := ToInbound(m, 42)
	assert.Equal(t, int64(11), msg.ID)
	assert.Equal(t, int64(-100123), msg.ChatID)
	assert.Equal(t, "deals", msg.ChatTitle)
	assert.Equal(t, int64(5), msg.SenderID)
	assert.False(t, msg.Outgoing)
	assert.False(t, msg.IsChannel)
	assert.Equal(t, time.Unix(1700000000, 0), msg.ReceivedAt)
	require.Len(t, msg.Entities, 1)
	assert.Equal(t, "url", msg.Entities[0].Type)
	assert.Equal(t, 5, msg.Entities[0].Offset)
	assert.Nil(t, msg.Photo)
}

func TestToInboundCaptionAndPhoto(t *testing.T) {
	m := &tgbotapi.Message{
		MessageID:       3,
		Chat:            &tgbotapi.Chat{ID: -1001, Type: "channel"},
		Caption:         "비번은 사진 참고",
		CaptionEntities: []tgbotapi.MessageEntity{{Type: "text_link", Offset: 0, Length: 2, URL: "https://open.kakao.com/o/x"}},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", FileSize: 100},
			{FileID: "large", FileSize: 9000},
		},
	}

	msg := ToInbound(m, 42)
	assert.True(t, msg.IsChannel)
	assert.Equal(t, "비번은 사진 참고", msg.Text)
	require.Len(t, msg.Entities, 1)
	assert.Equal(t, "https://open.kakao.com/o/x", msg.Entities[0].URL)
	require.NotNil(t, msg.Photo)
	assert.Equal(t, "large", msg.Photo.FileID)
	assert.Equal(t, 9000, msg.Photo.FileSize)
}

func TestToInboundOwnAndBotMessages(t *testing.T) {
	own := ToInbound(&tgbotapi.Message{
		From: &tgbotapi.User{ID: 42, IsBot: true},
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "x",
	}, 42)
	assert.True(t, own.Outgoing)
	assert.False(t, own.SenderIsBot)

	other := ToInbound(&tgbotapi.Message{
		From: &tgbotapi.User{ID: 99, IsBot: true},
		Chat: &tgbotapi.Chat{ID: 1},
		Text: "x",
	}, 42)
	assert.False(t, other.Outgoing)
	assert.True(t, other.SenderIsBot)
}
