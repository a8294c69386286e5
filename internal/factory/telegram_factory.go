package factory

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/telegram"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/ports"
)

// TelegramFactory creates the bot connection and the components built on it
type TelegramFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTelegramFactory creates a new Telegram factory
func NewTelegramFactory(cfg *config.Config, logger *zap.Logger) *TelegramFactory {
	return &TelegramFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateBot connects to the Bot API
func (f *TelegramFactory) CreateBot() (*tgbotapi.BotAPI, error) {
	tg := f.cfg.GetTelegram()
	return telegram.NewBot(tg.BotToken, tg.Debug, f.logger)
}

// CreateCommands creates the bot command handler
func (f *TelegramFactory) CreateCommands(api telegram.API, runtime *config.Runtime, status func() telegram.Status, shutdown func()) *telegram.Commands {
	return telegram.NewCommands(api, runtime, status, shutdown, f.cfg.GetTelegram().AdminChatID, f.logger)
}

// CreateSource creates the inbound message source
func (f *TelegramFactory) CreateSource(api telegram.API, commands *telegram.Commands) (ports.MessageSource, error) {
	sourceType := f.cfg.GetString("source.type")

	switch sourceType {
	case "telegram":
		tg := f.cfg.GetTelegram()
		return telegram.NewSource(api, commands, tg.PollTimeout, tg.HealthInterval, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}

// CreateMediaFetcher creates the photo downloader
func (f *TelegramFactory) CreateMediaFetcher(api telegram.API) *telegram.MediaFetcher {
	return telegram.NewMediaFetcher(api, f.cfg.GetInt("telegram.download_retries"), f.logger)
}
