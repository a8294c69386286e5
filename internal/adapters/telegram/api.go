// Package telegram connects the pipeline to the Telegram Bot API: it feeds
// inbound messages, delivers notifications, downloads photos and answers
// bot commands.
package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API is the part of tgbotapi.BotAPI the adapter uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
	GetMe() (tgbotapi.User, error)
}

// NewBot authenticates with the Bot API
func NewBot(token string, debug bool, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	if err := tgbotapi.SetLogger(botLogger{logger.Sugar()}); err != nil {
		logger.Warn("Failed to set bot API logger", zap.Error(err))
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	bot.Debug = debug

	logger.Info("Connected to Telegram",
		zap.String("bot", bot.Self.UserName),
		zap.Int64("bot_id", bot.Self.ID))
	return bot, nil
}

// botLogger routes tgbotapi's log output through zap
type botLogger struct {
	s *zap.SugaredLogger
}

func (l botLogger) Println(v ...interface{}) {
	l.s.Debug(fmt.Sprint(v...))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.s.Debugf(format, v...)
}
