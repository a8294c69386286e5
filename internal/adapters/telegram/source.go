package telegram

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/ports"
)

// Source feeds Bot API updates into the pipeline. Commands are answered
// here and never reach the handler.
type Source struct {
	api         API
	commands    *Commands
	pollTimeout int
	health      time.Duration
	logger      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSource creates a new update source. commands may be nil.
func NewSource(api API, commands *Commands, pollTimeout int, health time.Duration, logger *zap.Logger) *Source {
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	return &Source{
		api:         api,
		commands:    commands,
		pollTimeout: pollTimeout,
		health:      health,
		logger:      logger,
	}
}

var _ ports.MessageSource = (*Source)(nil)

// Start polls for updates until ctx is cancelled or Stop is called
func (s *Source) Start(ctx context.Context, handler ports.MessageHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()
	defer close(done)
	defer cancel()

	me, err := s.api.GetMe()
	if err != nil {
		s.logger.Warn("Failed to read bot identity", zap.Error(err))
	}

	if s.health > 0 {
		go MonitorConnection(ctx, s.api, s.health, s.logger)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = s.pollTimeout
	updates := s.api.GetUpdatesChan(u)

	s.logger.Info("Listening for messages", zap.String("bot", me.UserName))
	for {
		select {
		case <-ctx.Done():
			s.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.dispatch(ctx, update, me.ID, handler)
		}
	}
}

func (s *Source) dispatch(ctx context.Context, update tgbotapi.Update, selfID int64, handler ports.MessageHandler) {
	m := update.Message
	if m == nil {
		m = update.ChannelPost
	}
	if m == nil {
		return
	}

	if m.IsCommand() && s.commands != nil {
		s.commands.Handle(ctx, m)
		return
	}
	handler(ctx, ToInbound(m, selfID))
}

// Stop ends polling and waits for Start to return
func (s *Source) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

// MonitorConnection checks the bot connection every interval until ctx ends
func MonitorConnection(ctx context.Context, api API, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			me, err := api.GetMe()
			if err != nil {
				logger.Error("Telegram connection check failed", zap.Error(err))
				continue
			}
			logger.Info("Telegram connection healthy", zap.String("bot", me.UserName))
		}
	}
}
